package config

import (
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/flowmesh/rdmashuffle/pkg/shuffleerrors"
)

// Store is the generic key-value configuration store the resolver wraps.
// The host framework owns the store; the resolver only holds a reference
// for its lifetime.
//
// GetInt, GetBool and GetSizeAsBytes return the default when the key is
// absent, and an error when the configured text cannot be coerced to the
// requested type. The resolver never catches those coercion errors.
type Store interface {
	// Get returns the raw value for key, or def when the key is absent.
	Get(key, def string) string
	// GetRequired returns the raw value for key, or an error when absent.
	GetRequired(key string) (string, error)
	// GetInt returns the value coerced to an integer.
	GetInt(key string, def int) (int, error)
	// GetBool returns the value coerced to a boolean.
	GetBool(key string, def bool) (bool, error)
	// GetSizeAsBytes returns the value parsed as a unit-suffixed byte size.
	// The default is a byte-size string parsed the same way.
	GetSizeAsBytes(key, def string) (int64, error)
	// Set stores a raw value under key.
	Set(key, value string)
	// Contains reports whether key is present.
	Contains(key string) bool
}

// MapStore is an in-memory Store backed by a mutex-guarded map. The host
// embedding uses it to mirror the framework's live configuration; tests use
// it directly.
type MapStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMapStore creates an empty MapStore.
func NewMapStore() *MapStore {
	return &MapStore{values: make(map[string]string)}
}

// NewMapStoreFrom creates a MapStore seeded with the given values.
func NewMapStoreFrom(values map[string]string) *MapStore {
	s := NewMapStore()
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

func (s *MapStore) lookup(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Get returns the value for key, or def when absent.
func (s *MapStore) Get(key, def string) string {
	if v, ok := s.lookup(key); ok {
		return v
	}
	return def
}

// GetRequired returns the value for key, or a config error when absent.
func (s *MapStore) GetRequired(key string) (string, error) {
	if v, ok := s.lookup(key); ok {
		return v, nil
	}
	return "", shuffleerrors.Newf(shuffleerrors.ErrorTypeConfig,
		"required configuration key %q is not set", key)
}

// GetInt returns the value coerced to an integer. Malformed numeric text
// is an error, absent keys resolve to def.
func (s *MapStore) GetInt(key string, def int) (int, error) {
	raw, ok := s.lookup(key)
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, shuffleerrors.Wrap(err, shuffleerrors.ErrorTypeValidation,
			"malformed integer value").WithDetail("key", key).WithDetail("value", raw)
	}
	return v, nil
}

// GetBool returns the value coerced to a boolean.
func (s *MapStore) GetBool(key string, def bool) (bool, error) {
	raw, ok := s.lookup(key)
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, shuffleerrors.Wrap(err, shuffleerrors.ErrorTypeValidation,
			"malformed boolean value").WithDetail("key", key).WithDetail("value", raw)
	}
	return v, nil
}

// GetSizeAsBytes returns the value parsed as a unit-suffixed byte size.
func (s *MapStore) GetSizeAsBytes(key, def string) (int64, error) {
	raw, ok := s.lookup(key)
	if !ok {
		raw = def
	}
	return ParseByteString(raw)
}

// Set stores value under key.
func (s *MapStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Contains reports whether key is present.
func (s *MapStore) Contains(key string) bool {
	_, ok := s.lookup(key)
	return ok
}

// ViperStore adapts a viper instance to the Store interface, so properties
// files, environment overrides, and anything else viper reads can back a
// resolver. Numeric coercion goes through the same strict parsing as
// MapStore rather than viper's zero-on-failure conversion, preserving the
// malformed-input failure mode.
type ViperStore struct {
	v *viper.Viper
}

// NewViperStore wraps a viper instance. The caller keeps ownership of v.
func NewViperStore(v *viper.Viper) *ViperStore {
	return &ViperStore{v: v}
}

// Get returns the value for key, or def when absent.
func (s *ViperStore) Get(key, def string) string {
	if s.v.IsSet(key) {
		return s.v.GetString(key)
	}
	return def
}

// GetRequired returns the value for key, or a config error when absent.
func (s *ViperStore) GetRequired(key string) (string, error) {
	if s.v.IsSet(key) {
		return s.v.GetString(key), nil
	}
	return "", shuffleerrors.Newf(shuffleerrors.ErrorTypeConfig,
		"required configuration key %q is not set", key)
}

// GetInt returns the value coerced to an integer.
func (s *ViperStore) GetInt(key string, def int) (int, error) {
	if !s.v.IsSet(key) {
		return def, nil
	}
	raw := s.v.GetString(key)
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, shuffleerrors.Wrap(err, shuffleerrors.ErrorTypeValidation,
			"malformed integer value").WithDetail("key", key).WithDetail("value", raw)
	}
	return v, nil
}

// GetBool returns the value coerced to a boolean.
func (s *ViperStore) GetBool(key string, def bool) (bool, error) {
	if !s.v.IsSet(key) {
		return def, nil
	}
	raw := s.v.GetString(key)
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, shuffleerrors.Wrap(err, shuffleerrors.ErrorTypeValidation,
			"malformed boolean value").WithDetail("key", key).WithDetail("value", raw)
	}
	return v, nil
}

// GetSizeAsBytes returns the value parsed as a unit-suffixed byte size.
func (s *ViperStore) GetSizeAsBytes(key, def string) (int64, error) {
	raw := def
	if s.v.IsSet(key) {
		raw = s.v.GetString(key)
	}
	return ParseByteString(raw)
}

// Set stores value under key.
func (s *ViperStore) Set(key, value string) {
	s.v.Set(key, value)
}

// Contains reports whether key is present.
func (s *ViperStore) Contains(key string) bool {
	return s.v.IsSet(key)
}
