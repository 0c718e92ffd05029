package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Money is a whole-yen amount. Yen has no minor unit, so all arithmetic
// is integral and every fractional intermediate result passes through
// Round exactly once.
type Money struct {
	Yen int64
}

var ErrInvalidDecimal = errors.New("not a valid decimal number")

// NewMoney builds a Money from a whole yen amount.
func NewMoney(yen int64) Money {
	return Money{Yen: yen}
}

func (m Money) Add(other Money) Money {
	return Money{Yen: m.Yen + other.Yen}
}

func (m Money) IsZero() bool {
	return m.Yen == 0
}

func (m Money) IsNegative() bool {
	return m.Yen < 0
}

// String renders the amount with thousands separators, e.g. "12,345".
func (m Money) String() string {
	neg := m.Yen < 0
	s := strconv.FormatInt(m.Yen, 10)
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	out := b.String()
	if neg {
		out = "-" + out
	}
	return out
}

// Round converts a fractional yen value to a whole amount, rounding
// halves away from zero: 0.5 -> 1, -0.5 -> -1.
func Round(x float64) int64 {
	if x >= 0 {
		return int64(math.Floor(x + 0.5))
	}
	return int64(math.Ceil(x - 0.5))
}

// RoundMoney is Round wrapped into a Money.
func RoundMoney(x float64) Money {
	return Money{Yen: Round(x)}
}

// ParseDecimal parses a decimal string into a float64. Both "." and ","
// are accepted as the decimal separator. Empty input yields zero.
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidDecimal
	}
	return v, nil
}

// ParseYen parses a whole-yen string into a Money. Empty input yields
// zero; fractional input is rejected.
func ParseYen(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidDecimal
	}
	return Money{Yen: v}, nil
}
