// Package bytesize parses human-readable byte sizes used in chunk
// configuration ("1Mi", "512Ki", "100MB", or plain numbers).
package bytesize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ByteSize represents a size in bytes that can be unmarshaled from
// human-readable strings.
//
// Supported formats:
//   - Plain numbers: 1024, 1073741824
//   - Binary units (×1024): Ki/KiB, Mi/MiB, Gi/GiB, Ti/TiB
//   - Decimal units (×1000): K/KB, M/MB, G/GB, T/TB
//   - Bytes: B
type ByteSize uint64

// Common byte size constants
const (
	B  ByteSize = 1
	KB ByteSize = 1000
	MB ByteSize = 1000 * KB
	GB ByteSize = 1000 * MB
	TB ByteSize = 1000 * GB

	KiB ByteSize = 1024
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
	TiB ByteSize = 1024 * GiB
)

// byteSizePattern matches a number followed by an optional unit suffix
var byteSizePattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*([a-z]*)\s*$`)

// unitMultipliers maps unit suffixes to their byte multipliers
var unitMultipliers = map[string]ByteSize{
	"":    B,
	"b":   B,
	"k":   KB,
	"kb":  KB,
	"m":   MB,
	"mb":  MB,
	"g":   GB,
	"gb":  GB,
	"t":   TB,
	"tb":  TB,
	"ki":  KiB,
	"kib": KiB,
	"mi":  MiB,
	"mib": MiB,
	"gi":  GiB,
	"gib": GiB,
	"ti":  TiB,
	"tib": TiB,
}

// Parse converts a human-readable size string into a ByteSize.
func Parse(s string) (ByteSize, error) {
	m := byteSizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}

	mult, ok := unitMultipliers[strings.ToLower(m[2])]
	if !ok {
		return 0, fmt.Errorf("unknown byte size unit %q in %q", m[2], s)
	}

	return ByteSize(value * float64(mult)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so ByteSize fields can be
// decoded directly from config files.
func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Int64 returns the size as int64.
func (b ByteSize) Int64() int64 { return int64(b) }

// String returns a human-readable representation using binary units.
func (b ByteSize) String() string {
	switch {
	case b >= TiB && b%TiB == 0:
		return fmt.Sprintf("%dTi", b/TiB)
	case b >= GiB && b%GiB == 0:
		return fmt.Sprintf("%dGi", b/GiB)
	case b >= MiB && b%MiB == 0:
		return fmt.Sprintf("%dMi", b/MiB)
	case b >= KiB && b%KiB == 0:
		return fmt.Sprintf("%dKi", b/KiB)
	default:
		return strconv.FormatUint(uint64(b), 10)
	}
}
