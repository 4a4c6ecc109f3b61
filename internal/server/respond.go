package server

import (
	"polydelta/internal/analysis"
	"polydelta/internal/mathutil"
	"polydelta/internal/positions"
)

// Every number leaving the API passes through one of these. The calculators
// work at full precision.

func roundPtr(v *float64, f func(float64) float64) *float64 {
	if v == nil {
		return nil
	}
	r := f(*v)
	return &r
}

func roundKelly(k analysis.KellyRecommendation) analysis.KellyRecommendation {
	k.NetOdds = mathutil.Prob(k.NetOdds)
	k.Edge = mathutil.Prob(k.Edge)
	k.RawKellyPct = mathutil.Pct(k.RawKellyPct)
	k.AdjustedPct = mathutil.Pct(k.AdjustedPct)
	k.StakePct = mathutil.Pct(k.StakePct)
	k.Stake = mathutil.Money(k.Stake)
	k.Bankroll = mathutil.Money(k.Bankroll)
	k.WinProbability = mathutil.Prob(k.WinProbability)
	k.MarketPrice = mathutil.Prob(k.MarketPrice)
	return k
}

func roundLeg(l analysis.Leg) analysis.Leg {
	l.Prob = mathutil.Prob(l.Prob)
	return l
}

func roundHedge(h *analysis.HedgeAllocation) *analysis.HedgeAllocation {
	if h == nil {
		return nil
	}
	out := *h
	out.Leg1 = roundLeg(h.Leg1)
	out.Leg2 = roundLeg(h.Leg2)
	out.Stake1 = mathutil.Money(h.Stake1)
	out.Stake2 = mathutil.Money(h.Stake2)
	out.Odds1 = mathutil.Prob(h.Odds1)
	out.Odds2 = mathutil.Prob(h.Odds2)
	out.Total = mathutil.Money(h.Total)
	out.GuaranteedReturn = mathutil.Money(h.GuaranteedReturn)
	out.Profit = mathutil.Money(h.Profit)
	out.ROI = mathutil.Pct(h.ROI)
	out.CombinedImplied = mathutil.Prob(h.CombinedImplied)
	return &out
}

func roundROI(r *analysis.NetROIResult) *analysis.NetROIResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Investment = mathutil.Money(r.Investment)
	out.Traditional.Profit = mathutil.Money(r.Traditional.Profit)
	out.Traditional.ROI = mathutil.Pct(r.Traditional.ROI)
	out.Market.Profit = mathutil.Money(r.Market.Profit)
	out.Market.ROI = mathutil.Pct(r.Market.ROI)
	out.Market.Shares = mathutil.Shares(r.Market.Shares)
	out.Market.Costs.Gas = mathutil.Money(r.Market.Costs.Gas)
	out.Market.Costs.FeeRate = mathutil.Prob(r.Market.Costs.FeeRate)
	out.Market.Costs.ExchangeFee = mathutil.Money(r.Market.Costs.ExchangeFee)
	out.Market.Costs.EffectivePrice = mathutil.Prob(r.Market.Costs.EffectivePrice)
	out.ROIAdvantage = mathutil.Pct(r.ROIAdvantage)
	return &out
}

func roundCashOut(p *positions.CashOutPlan) *positions.CashOutPlan {
	if p == nil {
		return nil
	}
	out := *p
	out.EntryPrice = mathutil.Prob(p.EntryPrice)
	out.CurrentPrice = mathutil.Prob(p.CurrentPrice)
	out.Investment = mathutil.Money(p.Investment)
	out.NetEntry = mathutil.Prob(p.NetEntry)
	out.NetExit = mathutil.Prob(p.NetExit)
	out.Shares = mathutil.Shares(p.Shares)
	out.MarkValue = mathutil.Money(p.MarkValue)
	out.FreeRoll.SharesToSell = mathutil.Shares(p.FreeRoll.SharesToSell)
	out.FreeRoll.RemainingShares = mathutil.Shares(p.FreeRoll.RemainingShares)
	out.FreeRoll.RemainingValue = mathutil.Money(p.FreeRoll.RemainingValue)
	out.CashOut.Proceeds = mathutil.Money(p.CashOut.Proceeds)
	out.CashOut.Profit = mathutil.Money(p.CashOut.Profit)
	out.CashOut.ROI = mathutil.Pct(p.CashOut.ROI)
	return &out
}

// quoteView is one priced side of a market or match.
type quoteView struct {
	Name      string          `json:"name"`
	Side      string          `json:"side,omitempty"`
	Reference float64         `json:"reference_prob"`
	Market    float64         `json:"market_price"`
	EV        *float64        `json:"ev"`
	Signal    analysis.Signal `json:"signal,omitempty"`
	Liquidity *float64        `json:"liquidity,omitempty"`
}

func newQuoteView(q analysis.Quote, policy analysis.Policy) quoteView {
	v := quoteView{
		Name:      q.Name,
		Side:      q.Side,
		Reference: mathutil.Prob(q.Reference),
		Market:    mathutil.Prob(q.Market),
		Liquidity: roundPtr(q.Liquidity, mathutil.Money),
	}
	if ev, ok := analysis.ComputeEV(q.Reference, q.Market); ok {
		rounded := mathutil.Pct(ev)
		v.EV = &rounded
		v.Signal = analysis.ClassifyEV(ev, policy.ValueBetThreshold)
	}
	return v
}

type opportunityView struct {
	ID        int64           `json:"id"`
	Sport     string          `json:"sport"`
	EventID   string          `json:"event_id,omitempty"`
	Name      string          `json:"name"`
	Side      string          `json:"side,omitempty"`
	Reference float64         `json:"reference_prob"`
	Market    float64         `json:"market_price"`
	EV        float64         `json:"ev"`
	Signal    analysis.Signal `json:"signal"`
	Liquidity *float64        `json:"liquidity,omitempty"`
	MarketURL string          `json:"market_url,omitempty"`
}

func newOpportunityView(o analysis.Opportunity) opportunityView {
	return opportunityView{
		ID:        o.ID,
		Sport:     o.Sport,
		EventID:   o.EventID,
		Name:      o.Name,
		Side:      o.Side,
		Reference: mathutil.Prob(o.Reference),
		Market:    mathutil.Prob(o.Market),
		EV:        mathutil.Pct(o.EV),
		Signal:    o.Signal,
		Liquidity: roundPtr(o.Liquidity, mathutil.Money),
		MarketURL: o.MarketURL,
	}
}
