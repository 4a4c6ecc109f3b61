package analysis

import "math"

// Leg is one side of a two-venue position, priced as an implied probability.
type Leg struct {
	Venue   string  `json:"venue"`
	Outcome string  `json:"outcome,omitempty"`
	Prob    float64 `json:"prob"`
}

// DecimalOdds returns 1/Prob, or 0 when the leg has no price.
func (l Leg) DecimalOdds() float64 {
	if !(l.Prob > 0) {
		return 0
	}
	return 1 / l.Prob
}

// HedgeAllocation splits a total stake across two legs so that either
// winning leg pays the same amount.
type HedgeAllocation struct {
	Leg1             Leg     `json:"leg1"`
	Leg2             Leg     `json:"leg2"`
	Stake1           float64 `json:"stake1"`
	Stake2           float64 `json:"stake2"`
	Odds1            float64 `json:"odds1"`
	Odds2            float64 `json:"odds2"`
	Total            float64 `json:"total"`
	GuaranteedReturn float64 `json:"guaranteed_return"`
	Profit           float64 `json:"profit"`
	ROI              float64 `json:"roi"`
	CombinedImplied  float64 `json:"combined_implied"`
	IsArbitrage      bool    `json:"is_arbitrage"`
}

// HedgeSingle allocates total across the same outcome priced on two venues.
// Stakes are proportional to implied probability, which equalises
// stakeA×oddsA and stakeB×oddsB. Returns nil when either leg is unpriced or
// total is not positive.
func HedgeSingle(a, b Leg, total float64) *HedgeAllocation {
	if !validLegs(a, b) || !(total > 0) || math.IsInf(total, 0) {
		return nil
	}

	stakeA := total * (a.Prob / (a.Prob + b.Prob))
	return allocate(a, b, stakeA, total)
}

// MatchPrices holds a two-outcome match priced on two venues.
type MatchPrices struct {
	VenueA string  `json:"venue_a"`
	VenueB string  `json:"venue_b"`
	AHome  float64 `json:"a_home"`
	AAway  float64 `json:"a_away"`
	BHome  float64 `json:"b_home"`
	BAway  float64 `json:"b_away"`
}

// HedgeMatch covers both outcomes of a match across two venues. Of the two
// cross-venue pairings it picks the one with the lower combined implied
// probability (ties go to A-home/B-away), then splits
// stake1 = total / (1 + odds1/odds2). Returns nil on missing prices.
func HedgeMatch(prices MatchPrices, total float64) *HedgeAllocation {
	if !(total > 0) || math.IsInf(total, 0) {
		return nil
	}

	venueA, venueB := prices.VenueA, prices.VenueB
	if venueA == "" {
		venueA = "A"
	}
	if venueB == "" {
		venueB = "B"
	}

	leg1 := Leg{Venue: venueA, Outcome: "home", Prob: prices.AHome}
	leg2 := Leg{Venue: venueB, Outcome: "away", Prob: prices.BAway}
	alt1 := Leg{Venue: venueA, Outcome: "away", Prob: prices.AAway}
	alt2 := Leg{Venue: venueB, Outcome: "home", Prob: prices.BHome}

	if !validLegs(leg1, leg2) || !validLegs(alt1, alt2) {
		return nil
	}
	if alt1.Prob+alt2.Prob < leg1.Prob+leg2.Prob {
		leg1, leg2 = alt1, alt2
	}

	d1, d2 := leg1.DecimalOdds(), leg2.DecimalOdds()
	stake1 := total / (1 + d1/d2)
	return allocate(leg1, leg2, stake1, total)
}

func allocate(leg1, leg2 Leg, stake1, total float64) *HedgeAllocation {
	stake2 := total - stake1
	if stake1 < 0 || stake2 < 0 {
		return nil
	}

	d1, d2 := leg1.DecimalOdds(), leg2.DecimalOdds()
	ret := math.Min(stake1*d1, stake2*d2)
	profit := ret - total
	combined := leg1.Prob + leg2.Prob

	return &HedgeAllocation{
		Leg1:             leg1,
		Leg2:             leg2,
		Stake1:           stake1,
		Stake2:           stake2,
		Odds1:            d1,
		Odds2:            d2,
		Total:            total,
		GuaranteedReturn: ret,
		Profit:           profit,
		ROI:              profit / total * 100,
		CombinedImplied:  combined,
		IsArbitrage:      combined < 1,
	}
}

func validLegs(legs ...Leg) bool {
	for _, l := range legs {
		if !(l.Prob > 0) || math.IsInf(l.Prob, 0) {
			return false
		}
	}
	return true
}
