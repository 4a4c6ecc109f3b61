package odds

import "math"

// Normalize coerces a probability that may be encoded as a percentage
// (46.9) or a fraction (0.469) into a fraction.
// Values above 1 are treated as percentages; everything else is returned as-is.
func Normalize(value float64) float64 {
	if value > 1 {
		return value / 100.0
	}
	return value
}

// NormalizePtr is Normalize for nullable store fields. A nil value maps to 0,
// which every calculator treats as "no data".
func NormalizePtr(value *float64) float64 {
	if value == nil {
		return 0
	}
	return Normalize(*value)
}

// ImpliedToDecimal converts an implied probability to decimal odds.
// Returns 0 when the probability is not positive (odds undefined).
func ImpliedToDecimal(prob float64) float64 {
	if prob <= 0 {
		return 0
	}
	return 1.0 / prob
}

// DecimalToImplied converts decimal odds (e.g. 2.50) to implied probability.
// Returns 0 for odds that are not positive.
func DecimalToImplied(decimal float64) float64 {
	if decimal <= 0 {
		return 0
	}
	return 1.0 / decimal
}

// AmericanToImplied converts American odds to implied probability
// Example: -150 → 0.6 (60%), +150 → 0.4 (40%)
func AmericanToImplied(odds int) float64 {
	if odds == 0 {
		return 0
	}

	if odds > 0 {
		// Underdog: probability = 100 / (odds + 100)
		return 100.0 / (float64(odds) + 100.0)
	}
	// Favorite: probability = |odds| / (|odds| + 100)
	return math.Abs(float64(odds)) / (math.Abs(float64(odds)) + 100.0)
}

// ParseQuote converts a caller-supplied price in any supported encoding to a
// probability:
//   - American odds: |value| >= 100 with an explicit sign convention (-150, +130)
//   - percentages: 1 < value < 100 (46.9 → 0.469)
//   - fractions: 0..1 used directly
//
// The american flag disambiguates values like 150 that are valid both as
// American odds and (nonsensically) as a percentage.
func ParseQuote(value float64, american bool) float64 {
	if american {
		return AmericanToImplied(int(math.Round(value)))
	}
	return Normalize(value)
}
