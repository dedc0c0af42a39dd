package utils

import (
	"fmt"
	"math"
	"strings"
)

// MemorySize represents a memory size in bytes
type MemorySize int64

const (
	Byte MemorySize = 1
	KB   MemorySize = 1024 * Byte
	MB   MemorySize = 1024 * KB
	GB   MemorySize = 1024 * MB
	TB   MemorySize = 1024 * GB
	PB   MemorySize = 1024 * TB
)

// FromKB converts a kilobyte count as printed in GC logs to a MemorySize.
func FromKB(kb int64) MemorySize {
	return MemorySize(kb) * KB
}

// String returns a human-readable representation of the memory size
func (m MemorySize) String() string {
	if m <= 0 {
		return "0B"
	}

	formatValue := func(val float64, unit string) string {
		if val == float64(int64(val)) {
			return fmt.Sprintf("%.0f%s", val, unit)
		}
		return fmt.Sprintf("%.2f%s", val, unit)
	}

	switch {
	case m >= PB:
		return formatValue(float64(m)/float64(PB), "P")
	case m >= TB:
		return formatValue(float64(m)/float64(TB), "T")
	case m >= GB:
		return formatValue(float64(m)/float64(GB), "G")
	case m >= MB:
		return formatValue(float64(m)/float64(MB), "M")
	case m >= KB:
		return formatValue(float64(m)/float64(KB), "K")
	default:
		return fmt.Sprintf("%dB", m)
	}
}

// Bytes returns the memory size as bytes
func (m MemorySize) Bytes() int64 {
	return int64(m)
}

// KBytes returns the memory size as whole kilobytes, rounding down.
func (m MemorySize) KBytes() int64 {
	return int64(m / KB)
}

// KB returns the memory size as kilobytes
func (m MemorySize) KB() float64 {
	return float64(m) / float64(KB)
}

// MB returns the memory size as megabytes
func (m MemorySize) MB() float64 {
	return float64(m) / float64(MB)
}

func unitMultiplier(c byte) (MemorySize, bool) {
	switch c {
	case 'B', 'b':
		return Byte, true
	case 'K', 'k':
		return KB, true
	case 'M', 'm':
		return MB, true
	case 'G', 'g':
		return GB, true
	case 'T', 't':
		return TB, true
	}
	return 0, false
}

// ParseMemorySize parses a memory size string like "9M", "2G", "1024K"
func ParseMemorySize(s string) (MemorySize, error) {
	return ParseMemorySizeSep(s, '.')
}

// ParseMemorySizeSep parses sizes such as "3968K" or "24.0M" where sep is the
// decimal separator the JVM used when writing the log.
func ParseMemorySizeSep(s string, sep byte) (MemorySize, error) {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return 0, fmt.Errorf("empty memory size string")
	}

	multiplier := Byte
	valueStr := s
	if m, ok := unitMultiplier(s[len(s)-1]); ok {
		multiplier = m
		valueStr = s[:len(s)-1]
	}

	if strings.IndexByte(valueStr, sep) < 0 {
		value, err := ParseLongString(valueStr)
		if err != nil {
			return 0, fmt.Errorf("invalid memory size %s: %w", s, err)
		}
		if value > math.MaxInt64/int64(multiplier) || value < math.MinInt64/int64(multiplier) {
			return 0, fmt.Errorf("invalid memory size %s: %w", s, ErrOverflow)
		}
		return MemorySize(value) * multiplier, nil
	}

	value, err := ParseFixed(valueStr, sep)
	if err != nil {
		return 0, fmt.Errorf("invalid memory size %s: %w", s, err)
	}
	return MemorySize(value * float64(multiplier)), nil
}

// MarshalJSON implements json.Marshaler
func (m MemorySize) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, m.String())), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (m *MemorySize) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	size, err := ParseMemorySize(str)
	if err != nil {
		return err
	}
	*m = size
	return nil
}

// MarshalYAML renders the size the same way as String.
func (m MemorySize) MarshalYAML() (any, error) {
	return m.String(), nil
}
