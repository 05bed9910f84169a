// Package core provides money parsing and rounding utilities.
//
// Amounts are kept as float64 because the stored JSON carries plain
// numbers, but every arithmetic step goes through decimal values so that
// binary floating point artifacts never reach the stored data.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Round2 rounds v half away from zero to two decimal places.
//
// The rounding is applied to the shortest decimal representation of v,
// so values that print as a midpoint round up in magnitude:
//
//	Round2(10.005)  -> 10.01
//	Round2(500.555) -> 500.56
//	Round2(-1.005)  -> -1.01
//
// NaN and infinities are returned unchanged.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// SumRounded adds the amounts exactly and rounds the result to two
// decimals.
func SumRounded(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			continue
		}
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.Round(2).InexactFloat64()
}

// ParseAmount converts user input such as "1,250.50" or "₹ 99" to a
// float. Commas are treated as digit grouping (en-IN style), not as a
// decimal separator. Sign and range checks are left to Validate.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₹")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}
