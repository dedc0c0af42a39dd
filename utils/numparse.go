package utils

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrOverflow = errors.New("value out of range")
	ErrFormat   = errors.New("invalid number format")
)

// NumberError records a failed numeric conversion.
type NumberError struct {
	Input string
	Err   error
}

func (e *NumberError) Error() string {
	return fmt.Sprintf("parse number %q: %v", e.Input, e.Err)
}

func (e *NumberError) Unwrap() error {
	return e.Err
}

// ParseInt parses an optionally negative run of ASCII digits into an int32.
func ParseInt(b []byte) (int32, error) {
	v, err := parseSigned(b, math.MaxInt32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// ParseLong parses an optionally negative run of ASCII digits into an int64.
func ParseLong(b []byte) (int64, error) {
	return parseSigned(b, math.MaxInt64)
}

func ParseIntString(s string) (int32, error) {
	v, err := parseSigned(s, math.MaxInt32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

func ParseLongString(s string) (int64, error) {
	return parseSigned(s, math.MaxInt64)
}

// parseSigned accumulates negatively so that the minimum value of the target
// width (one larger in magnitude than max) is still representable.
func parseSigned[T ~string | ~[]byte](b T, max int64) (int64, error) {
	n := len(b)
	if n == 0 {
		return 0, &NumberError{Input: string(b), Err: ErrFormat}
	}

	negative := b[0] == '-'
	i := 0
	if negative {
		i = 1
		if n == 1 {
			return 0, &NumberError{Input: string(b), Err: ErrFormat}
		}
	}

	limit := -max
	if negative {
		limit = -max - 1
	}
	multMin := limit / 10

	var result int64
	for ; i < n; i++ {
		c := b[i]
		if c < '0' || c > '9' {
			return 0, &NumberError{Input: string(b), Err: ErrFormat}
		}
		digit := int64(c - '0')
		if result < multMin {
			return 0, &NumberError{Input: string(b), Err: ErrOverflow}
		}
		result *= 10
		if result < limit+digit {
			return 0, &NumberError{Input: string(b), Err: ErrOverflow}
		}
		result -= digit
	}

	if negative {
		return result, nil
	}
	return -result, nil
}

// maxFractionDigits keeps 10^digits inside int64.
const maxFractionDigits = 18

// ParseFixed parses a fixed-point decimal such as "0.0055780" using sep as
// the decimal separator. Both the integer and the fraction part go through
// ParseLongString, so the same overflow and format rules apply.
func ParseFixed(s string, sep byte) (float64, error) {
	dot := -1
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			dot = i
			break
		}
	}

	if dot < 0 {
		whole, err := ParseLongString(s)
		if err != nil {
			return 0, err
		}
		return float64(whole), nil
	}

	intPart, fracPart := s[:dot], s[dot+1:]
	if intPart == "" || fracPart == "" || fracPart[0] == '-' {
		return 0, &NumberError{Input: s, Err: ErrFormat}
	}
	if len(fracPart) > maxFractionDigits {
		return 0, &NumberError{Input: s, Err: ErrOverflow}
	}

	whole, err := ParseLongString(intPart)
	if err != nil {
		return 0, err
	}
	frac, err := ParseLongString(fracPart)
	if err != nil {
		return 0, &NumberError{Input: s, Err: errors.Unwrap(err)}
	}

	value := float64(frac) / math.Pow10(len(fracPart))
	if whole < 0 || intPart[0] == '-' {
		return float64(whole) - value, nil
	}
	return float64(whole) + value, nil
}
