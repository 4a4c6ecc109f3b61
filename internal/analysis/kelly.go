package analysis

import (
	"math"

	"polydelta/internal/fees"
)

// KellyStatus is the outcome of a sizing request.
type KellyStatus string

const (
	KellyOK               KellyStatus = "ok"
	KellyNegativeEV       KellyStatus = "negative_ev"
	KellyLoss             KellyStatus = "loss"
	KellyInsufficientData KellyStatus = "insufficient_data"
)

// Message is the user-facing explanation of a status.
func (s KellyStatus) Message() string {
	switch s {
	case KellyOK:
		return "Positive edge: stake recommended"
	case KellyNegativeEV:
		return "Your confidence does not beat the market price: no bet"
	case KellyLoss:
		return "Fees exceed the maximum payout at this price: no bet"
	default:
		return "Missing or invalid price data"
	}
}

// RiskMode selects the fractional-Kelly multiplier.
type RiskMode string

const (
	RiskConservative RiskMode = "conservative"
	RiskAggressive   RiskMode = "aggressive"
)

// KellyPolicy holds the sizing constants. They are product risk choices,
// so every one is configurable.
type KellyPolicy struct {
	Conservative     float64 // fractional multiplier, e.g. 0.25
	Aggressive       float64 // e.g. 0.50
	MaxStakeFraction float64 // hard cap as a fraction of bankroll
	TestInvestment   float64 // notional used to derive net odds after fees
}

// DefaultKellyPolicy returns quarter/half Kelly capped at 20% of bankroll.
func DefaultKellyPolicy() KellyPolicy {
	return KellyPolicy{
		Conservative:     0.25,
		Aggressive:       0.50,
		MaxStakeFraction: 0.20,
		TestInvestment:   100,
	}
}

// Fraction returns the multiplier for a risk mode. Unknown modes are conservative.
func (p KellyPolicy) Fraction(mode RiskMode) float64 {
	if mode == RiskAggressive {
		return p.Aggressive
	}
	return p.Conservative
}

// KellyRecommendation is the sizer output. Percent fields are in 0..100.
type KellyRecommendation struct {
	Status          KellyStatus `json:"status"`
	Message         string      `json:"message"`
	NetOdds         float64     `json:"net_odds"` // b after fees
	Edge            float64     `json:"edge"`     // p(1+b) − 1
	RawKellyPct     float64     `json:"raw_kelly_pct"`
	AdjustedPct     float64     `json:"adjusted_pct"`
	StakePct        float64     `json:"stake_pct"`
	Stake           float64     `json:"stake"`
	Capped          bool        `json:"capped"`
	RiskFraction    float64     `json:"risk_fraction"`
	Bankroll        float64     `json:"bankroll"`
	WinProbability  float64     `json:"win_probability"`
	MarketPrice     float64     `json:"market_price"`
	LiquidityWarned bool        `json:"liquidity_warning,omitempty"`
}

// NetOdds derives the fractional profit per unit invested after fees by
// simulating a test trade that resolves to a full $1 payout per share.
func NetOdds(marketPrice float64, fee fees.Model, testInvestment float64) float64 {
	if testInvestment <= 0 {
		return 0
	}
	payout := fee.Shares(testInvestment, marketPrice) * 1.0
	return (payout - testInvestment) / testInvestment
}

// Kelly sizes a stake on the market venue for a caller-supplied win
// probability. Missing data, negative EV and fee-driven losses are returned
// as statuses, never as errors.
func Kelly(winProb, marketPrice, bankroll, riskFraction float64, fee fees.Model, policy KellyPolicy) KellyRecommendation {
	rec := KellyRecommendation{
		RiskFraction:   riskFraction,
		Bankroll:       bankroll,
		WinProbability: winProb,
		MarketPrice:    marketPrice,
	}

	if !(marketPrice > 0) || marketPrice > 1 || !(bankroll >= 0) || !(winProb >= 0) || winProb > 1 ||
		!(riskFraction > 0) || math.IsInf(bankroll, 0) {
		return rec.with(KellyInsufficientData)
	}

	b := NetOdds(marketPrice, fee, policy.TestInvestment)
	rec.NetOdds = b
	if b <= 0 {
		return rec.with(KellyLoss)
	}

	p := winProb
	q := 1 - p
	rec.Edge = p*(1+b) - 1

	raw := (b*p - q) / b
	rec.RawKellyPct = raw * 100
	if raw <= 0 {
		return rec.with(KellyNegativeEV)
	}

	adjusted := raw * riskFraction
	rec.AdjustedPct = adjusted * 100

	stakeFraction := adjusted
	if policy.MaxStakeFraction > 0 && adjusted > policy.MaxStakeFraction {
		stakeFraction = policy.MaxStakeFraction
		rec.Capped = true
	}
	rec.StakePct = stakeFraction * 100
	rec.Stake = bankroll * stakeFraction

	return rec.with(KellyOK)
}

func (r KellyRecommendation) with(s KellyStatus) KellyRecommendation {
	r.Status = s
	r.Message = s.Message()
	return r
}

// LiquidityWarning reports whether a stake is larger than the liquidity
// available near the current price. Unknown liquidity never warns.
func LiquidityWarning(stake float64, liquidity *float64) bool {
	return liquidity != nil && stake > *liquidity
}
