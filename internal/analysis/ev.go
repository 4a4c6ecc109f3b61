package analysis

import (
	"math"
	"sort"
)

// Signal classifies a market price relative to the reference probability.
type Signal string

const (
	SignalUndervalued Signal = "undervalued" // market below reference, favourable to buy
	SignalOvervalued  Signal = "overvalued"
	SignalFair        Signal = "fair"
)

// DefaultValueBetThreshold is the |EV| percentage at which a price is flagged.
const DefaultValueBetThreshold = 5.0

// Policy holds value-bet detection settings.
type Policy struct {
	ValueBetThreshold float64 // |EV| in percent (e.g., 5 = 5%)
}

// DefaultPolicy returns the reference dashboard settings.
func DefaultPolicy() Policy {
	return Policy{ValueBetThreshold: DefaultValueBetThreshold}
}

// Pair is one outcome priced on two venues. Both values must already be
// normalised to fractions.
type Pair struct {
	Reference float64 `json:"reference"` // bookmaker-implied probability
	Market    float64 `json:"market"`    // prediction-market price
}

// EV is ComputeEV for the pair.
func (p Pair) EV() (float64, bool) {
	return ComputeEV(p.Reference, p.Market)
}

// ComputeEV returns the percentage gap of the reference probability over the
// market price: ((reference − market) / market) × 100.
// Positive means the market prices the outcome below the bookmaker.
// The second return is false when either input is missing (≤ 0).
func ComputeEV(reference, market float64) (float64, bool) {
	if !(reference > 0) || !(market > 0) {
		return 0, false
	}
	return (reference - market) / market * 100.0, true
}

// MarketFromEV recovers the market price from an EV and its reference
// probability. Returns 0 when the EV is −100% or lower.
func MarketFromEV(reference, ev float64) float64 {
	denom := 1 + ev/100.0
	if denom <= 0 {
		return 0
	}
	return reference / denom
}

// ClassifyEV maps an EV percentage to a signal using |EV| ≥ threshold.
func ClassifyEV(ev, threshold float64) Signal {
	switch {
	case ev >= threshold:
		return SignalUndervalued
	case ev <= -threshold:
		return SignalOvervalued
	default:
		return SignalFair
	}
}

// Quote is one normalised outcome row: an outright team or one side of a match.
type Quote struct {
	ID        int64    `json:"id,omitempty"`
	Sport     string   `json:"sport"`
	EventID   string   `json:"event_id,omitempty"`
	Name      string   `json:"name"`
	Side      string   `json:"side,omitempty"` // "home", "away", "draw" for matches
	Reference float64  `json:"reference"`
	Market    float64  `json:"market"`
	Liquidity *float64 `json:"liquidity,omitempty"`
	MarketURL string   `json:"market_url,omitempty"`
}

// Opportunity is a quote whose EV crosses the value-bet threshold.
type Opportunity struct {
	Quote
	EV     float64 `json:"ev"`
	Signal Signal  `json:"signal"`
}

// FindValueBets returns the quotes with |EV| ≥ threshold, largest |EV| first.
// Quotes with missing data are skipped.
func FindValueBets(quotes []Quote, policy Policy) []Opportunity {
	var opps []Opportunity

	for _, q := range quotes {
		ev, ok := ComputeEV(q.Reference, q.Market)
		if !ok {
			continue
		}
		signal := ClassifyEV(ev, policy.ValueBetThreshold)
		if signal == SignalFair {
			continue
		}
		opps = append(opps, Opportunity{Quote: q, EV: ev, Signal: signal})
	}

	sort.SliceStable(opps, func(i, j int) bool {
		return math.Abs(opps[i].EV) > math.Abs(opps[j].EV)
	})

	return opps
}
