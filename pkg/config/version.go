package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/flowmesh/rdmashuffle/pkg/logger"
	"github.com/flowmesh/rdmashuffle/pkg/metrics"
	"github.com/flowmesh/rdmashuffle/pkg/shuffleerrors"
)

// SupportedMajorVersion is the single host framework major version line
// this plugin supports. The version gate rejects everything else.
const SupportedMajorVersion = 2

var hostVersionPattern = regexp.MustCompile(`^(\d+)\.(\d+)(\..*)?$`)

// VersionInfo is the parsed host framework version, immutable for the
// process lifetime once the gate has run.
type VersionInfo struct {
	Major int
	Minor int
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

type gateResult struct {
	info VersionInfo
	err  error
}

var (
	gateOnce  sync.Once
	gateState atomic.Pointer[gateResult]
)

// ParseHostVersion parses and validates a host framework version string.
// It fails when the string does not match major.minor[.anything] or when
// the major version is unsupported. Pure; does not touch process state.
func ParseHostVersion(version string) (VersionInfo, error) {
	m := hostVersionPattern.FindStringSubmatch(strings.TrimSpace(version))
	if m == nil {
		metrics.VersionChecks.WithLabelValues("unparseable").Inc()
		return VersionInfo{}, shuffleerrors.Newf(shuffleerrors.ErrorTypeConfig,
			"unable to parse host framework version %q", version)
	}

	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	if major != SupportedMajorVersion {
		metrics.VersionChecks.WithLabelValues("unsupported").Inc()
		return VersionInfo{}, shuffleerrors.Newf(shuffleerrors.ErrorTypeConfig,
			"unsupported host framework version %s, supported major version is %d",
			version, SupportedMajorVersion).
			WithDetail("major", major).
			WithDetail("minor", minor)
	}

	metrics.VersionChecks.WithLabelValues("ok").Inc()
	return VersionInfo{Major: major, Minor: minor}, nil
}

// CheckHostVersion runs the version gate exactly once per process. The
// first call parses and validates the given version string; every later
// call returns the first outcome unchanged, regardless of its argument.
// A non-nil error is fatal for the transport layer: no transport
// functionality may activate after a failed gate.
func CheckHostVersion(version string) (VersionInfo, error) {
	gateOnce.Do(func() {
		info, err := ParseHostVersion(version)
		gateState.Store(&gateResult{info: info, err: err})
		if err != nil {
			logger.Error("host framework version check failed", zap.Error(err))
			return
		}
		logger.Info("host framework version accepted",
			zap.String("version", info.String()))
	})
	res := gateState.Load()
	return res.info, res.err
}

// HostVersion returns the process-wide version established by
// CheckHostVersion, or an error when the gate has not run or failed.
func HostVersion() (VersionInfo, error) {
	res := gateState.Load()
	if res == nil {
		return VersionInfo{}, shuffleerrors.New(shuffleerrors.ErrorTypeInternal,
			"host framework version has not been checked")
	}
	return res.info, res.err
}
