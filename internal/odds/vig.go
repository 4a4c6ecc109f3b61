package odds

import "math"

// Overround returns the bookmaker margin of a market in percent:
// (sum of implied probabilities − 1) × 100. Non-positive entries are skipped.
func Overround(implied []float64) float64 {
	sum := 0.0
	for _, p := range implied {
		if p > 0 {
			sum += p
		}
	}
	if sum == 0 {
		return 0
	}
	return (sum - 1.0) * 100.0
}

// RemoveVig removes the vig from a two-way market using the multiplicative
// method. Returns 0, 0 when either side is missing.
func RemoveVig(impliedA, impliedB float64) (float64, float64) {
	if impliedA <= 0 || impliedB <= 0 {
		return 0, 0
	}

	total := impliedA + impliedB
	return impliedA / total, impliedB / total
}

// RemoveVigN de-vigs an outright market (one probability per team) by
// scaling every entry by the same factor so the book sums to 1.
// Missing entries (≤ 0) stay 0 and are excluded from the total.
func RemoveVigN(implied []float64) []float64 {
	out := make([]float64, len(implied))

	total := 0.0
	for _, p := range implied {
		if p > 0 {
			total += p
		}
	}
	if total == 0 {
		return out
	}

	for i, p := range implied {
		if p > 0 {
			out[i] = p / total
		}
	}
	return out
}

// RemoveVigPower removes vig using the power method.
// Finds k such that p1^k + p2^k = 1. Longshots are deflated more than
// favourites, which corrects for the favourite-longshot bias.
func RemoveVigPower(impliedA, impliedB float64) (float64, float64) {
	if impliedA <= 0 || impliedB <= 0 || impliedA >= 1 || impliedB >= 1 {
		return RemoveVig(impliedA, impliedB)
	}

	if math.Abs(impliedA+impliedB-1.0) < 1e-9 {
		return impliedA, impliedB
	}

	k := powerExponent([]float64{impliedA, impliedB})
	return math.Pow(impliedA, k), math.Pow(impliedB, k)
}

// powerExponent finds k such that Σ p_i^k = 1 by bisection over [0.01, 10].
// For 0 < p < 1 the sum is decreasing in k.
func powerExponent(probs []float64) float64 {
	const (
		tolerance = 1e-9
		maxIters  = 100
	)

	low, high := 0.01, 10.0
	for i := 0; i < maxIters; i++ {
		mid := (low + high) / 2
		sum := 0.0
		for _, p := range probs {
			sum += math.Pow(p, mid)
		}

		if math.Abs(sum-1.0) < tolerance {
			return mid
		}
		if sum > 1 {
			low = mid
		} else {
			high = mid
		}
	}

	return (low + high) / 2
}
