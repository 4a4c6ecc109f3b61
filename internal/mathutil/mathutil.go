// Package mathutil rounds calculator output for display. Calculations run on
// raw float64 values; rounding happens only when a result is rendered.
package mathutil

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round rounds x half away from zero to places decimal digits.
// NaN and infinities are returned unchanged.
func Round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	f, _ := decimal.NewFromFloat(x).Round(places).Float64()
	return f
}

// Money rounds to cents.
func Money(x float64) float64 {
	return Round(x, 2)
}

// Pct rounds a percentage to two decimals.
func Pct(x float64) float64 {
	return Round(x, 2)
}

// Prob rounds a probability or price to four decimals.
func Prob(x float64) float64 {
	return Round(x, 4)
}

// Shares rounds a share quantity to two decimals.
func Shares(x float64) float64 {
	return Round(x, 2)
}
