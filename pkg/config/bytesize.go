package config

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/flowmesh/rdmashuffle/pkg/shuffleerrors"
)

// sizePattern matches a non-negative integer followed by an optional unit
// suffix, with optional whitespace between them.
var sizePattern = regexp.MustCompile(`^([0-9]+)\s*([a-z]*)$`)

// sizeUnits maps unit suffixes to binary multipliers. Suffixes are matched
// case-insensitively; bare letters and b-suffixed forms are equivalent
// ("8m" == "8M" == "8mb").
var sizeUnits = map[string]int64{
	"":   1,
	"b":  1,
	"k":  1 << 10,
	"kb": 1 << 10,
	"m":  1 << 20,
	"mb": 1 << 20,
	"g":  1 << 30,
	"gb": 1 << 30,
	"t":  1 << 40,
	"tb": 1 << 40,
	"p":  1 << 50,
	"pb": 1 << 50,
}

// ParseByteString converts a human-readable byte size such as "4k", "8M" or
// "1gb" into a byte count. Multipliers are binary (1k = 1024). A bare number
// is a count of bytes.
func ParseByteString(s string) (int64, error) {
	m := sizePattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return 0, shuffleerrors.Newf(shuffleerrors.ErrorTypeValidation,
			"invalid byte size %q", s)
	}

	mult, ok := sizeUnits[m[2]]
	if !ok {
		return 0, shuffleerrors.Newf(shuffleerrors.ErrorTypeValidation,
			"invalid byte size %q: unknown unit %q", s, m[2])
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, shuffleerrors.Wrap(err, shuffleerrors.ErrorTypeValidation,
			"invalid byte size").WithDetail("value", s)
	}

	if n > math.MaxInt64/mult {
		return 0, shuffleerrors.Newf(shuffleerrors.ErrorTypeValidation,
			"byte size %q overflows int64", s)
	}

	return n * mult, nil
}
