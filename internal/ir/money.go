package ir

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"
)

// Money is an amount in minor units (cents).
//
// The backend sends prices as JSON decimal numbers (10.5, 20, 19.99).
// Money decodes them exactly and never goes through float64, so subtotals
// are exact sums of price × quantity.
type Money int64

var hundred = big.NewRat(100, 1)

// ParseMoney parses a decimal string ("10", "10.5", "-3.25", "1e1") into cents.
// Fractions of a cent are rounded half away from zero.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return 0, fmt.Errorf("invalid money amount %q", s)
	}
	r.Mul(r, hundred)

	num := new(big.Int).Set(r.Num())
	den := r.Denom()
	quo, rem := new(big.Int).QuoRem(num, den, new(big.Int))

	// Round half away from zero: compare 2*|rem| against den.
	twice := new(big.Int).Abs(rem)
	twice.Lsh(twice, 1)
	if twice.Cmp(den) >= 0 {
		if num.Sign() < 0 {
			quo.Sub(quo, big.NewInt(1))
		} else {
			quo.Add(quo, big.NewInt(1))
		}
	}
	if !quo.IsInt64() {
		return 0, fmt.Errorf("money amount %q out of range", s)
	}
	return Money(quo.Int64()), nil
}

// Cents returns the amount in minor units.
func (m Money) Cents() int64 {
	return int64(m)
}

// Times multiplies the amount by an integer quantity.
func (m Money) Times(qty int) Money {
	return m * Money(qty)
}

// String renders the amount with exactly two decimals ("20.00", "-0.50").
func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON decodes a JSON number (or numeric string) into cents.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
