package server

import (
	"fmt"
	"net/http"

	"polydelta/internal/analysis"
	"polydelta/internal/fees"
	"polydelta/internal/mathutil"
	"polydelta/internal/odds"
	"polydelta/internal/polymarket"
	"polydelta/internal/positions"
)

// feeInput selects the fee model. Gas defaults to the configured cost.
type feeInput struct {
	OrderType string   `json:"order_type"`
	Gas       *float64 `json:"gas"`
}

func (s *Server) fee(in feeInput) (fees.Model, error) {
	t, err := fees.ParseOrderType(in.OrderType)
	if err != nil {
		return fees.Model{}, err
	}
	fee := s.cfg.Fee(t)
	if in.Gas != nil {
		if *in.Gas < 0 {
			return fees.Model{}, fmt.Errorf("gas must not be negative")
		}
		fee.Gas = *in.Gas
	}
	return fee, nil
}

// price normalises a caller-supplied probability or price. American odds
// are accepted for the reference side only.
func price(v float64, american bool) float64 {
	return odds.ParseQuote(v, american)
}

type evRequest struct {
	Reference float64 `json:"reference"`
	Market    float64 `json:"market"`
	American  bool    `json:"american"`
}

type evResponse struct {
	Reference float64         `json:"reference_prob"`
	Market    float64         `json:"market_price"`
	EV        float64         `json:"ev"`
	Signal    analysis.Signal `json:"signal"`
	Threshold float64         `json:"threshold"`
}

// CalcEV compares a bookmaker probability with a market price.
func (s *Server) CalcEV(w http.ResponseWriter, r *http.Request) {
	var req evRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	ref := price(req.Reference, req.American)
	mkt := odds.Normalize(req.Market)
	ev, ok := analysis.ComputeEV(ref, mkt)
	if !ok {
		s.metrics.RecordCalc("ev", "insufficient_data")
		respondInsufficient(w, "reference and market must be positive")
		return
	}

	threshold := s.cfg.ValueBetPolicy().ValueBetThreshold
	s.metrics.RecordCalc("ev", "ok")
	respondJSON(w, http.StatusOK, evResponse{
		Reference: mathutil.Prob(ref),
		Market:    mathutil.Prob(mkt),
		EV:        mathutil.Pct(ev),
		Signal:    analysis.ClassifyEV(ev, threshold),
		Threshold: threshold,
	})
}

type kellyRequest struct {
	WinProbability float64           `json:"win_probability"`
	MarketPrice    float64           `json:"market_price"`
	Bankroll       float64           `json:"bankroll"`
	RiskMode       analysis.RiskMode `json:"risk_mode"`
	Liquidity      *float64          `json:"liquidity"`
	TokenID        string            `json:"token_id"`
	American       bool              `json:"american"`
	feeInput
}

// CalcKelly sizes a stake. Negative EV and sure-loss prices are answered
// with 200 and the corresponding status.
func (s *Server) CalcKelly(w http.ResponseWriter, r *http.Request) {
	var req kellyRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	fee, err := s.fee(req.feeInput)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Bankroll == 0 {
		req.Bankroll = s.cfg.DefaultBankroll
	}
	if req.RiskMode == "" {
		req.RiskMode = analysis.RiskConservative
	}
	if req.RiskMode != analysis.RiskConservative && req.RiskMode != analysis.RiskAggressive {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown risk_mode %q", req.RiskMode))
		return
	}

	policy := s.cfg.KellyPolicy()
	rec := analysis.Kelly(
		price(req.WinProbability, req.American),
		odds.Normalize(req.MarketPrice),
		req.Bankroll,
		policy.Fraction(req.RiskMode),
		fee,
		policy,
	)
	s.metrics.RecordCalc("kelly", string(rec.Status))

	if rec.Status == analysis.KellyInsufficientData {
		respondInsufficient(w, rec.Message)
		return
	}
	if rec.Status == analysis.KellyOK {
		liquidity := req.Liquidity
		if liquidity == nil && req.TokenID != "" && s.depth != nil {
			depth, err := s.depth.Depth(r.Context(), req.TokenID, rec.MarketPrice, polymarket.SideBuy)
			if err != nil {
				s.log.Warn("Order book unavailable", "token", req.TokenID, "error", err)
			} else {
				liquidity = &depth
			}
		}
		rec.LiquidityWarned = analysis.LiquidityWarning(rec.Stake, liquidity)
	}
	respondJSON(w, http.StatusOK, roundKelly(rec))
}

type legInput struct {
	Venue   string  `json:"venue"`
	Outcome string  `json:"outcome"`
	Prob    float64 `json:"prob"`
}

func (l legInput) leg() analysis.Leg {
	return analysis.Leg{Venue: l.Venue, Outcome: l.Outcome, Prob: odds.Normalize(l.Prob)}
}

type matchInput struct {
	VenueA string  `json:"venue_a"`
	VenueB string  `json:"venue_b"`
	AHome  float64 `json:"a_home"`
	AAway  float64 `json:"a_away"`
	BHome  float64 `json:"b_home"`
	BAway  float64 `json:"b_away"`
}

func (m matchInput) prices() analysis.MatchPrices {
	return analysis.MatchPrices{
		VenueA: m.VenueA,
		VenueB: m.VenueB,
		AHome:  odds.Normalize(m.AHome),
		AAway:  odds.Normalize(m.AAway),
		BHome:  odds.Normalize(m.BHome),
		BAway:  odds.Normalize(m.BAway),
	}
}

// hedgeRequest carries either two legs of one outcome or the four prices
// of a match.
type hedgeRequest struct {
	Total float64     `json:"total"`
	LegA  *legInput   `json:"leg_a"`
	LegB  *legInput   `json:"leg_b"`
	Match *matchInput `json:"match"`
}

// CalcHedge allocates a total stake across two venues.
func (s *Server) CalcHedge(w http.ResponseWriter, r *http.Request) {
	var req hedgeRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if req.Total == 0 {
		req.Total = s.cfg.DefaultInvestment
	}

	var h *analysis.HedgeAllocation
	switch {
	case req.Match != nil:
		h = analysis.HedgeMatch(req.Match.prices(), req.Total)
	case req.LegA != nil && req.LegB != nil:
		h = analysis.HedgeSingle(req.LegA.leg(), req.LegB.leg(), req.Total)
	default:
		respondError(w, http.StatusBadRequest, "either match or leg_a and leg_b are required")
		return
	}

	if h == nil {
		s.metrics.RecordCalc("hedge", "insufficient_data")
		respondInsufficient(w, "prices must be in (0, 1) and total positive")
		return
	}
	s.metrics.RecordCalc("hedge", "ok")
	respondJSON(w, http.StatusOK, roundHedge(h))
}

type roiRequest struct {
	Reference  float64 `json:"reference"`
	Market     float64 `json:"market"`
	Investment float64 `json:"investment"`
	American   bool    `json:"american"`
	feeInput
}

// CalcROI compares net returns on both venues.
func (s *Server) CalcROI(w http.ResponseWriter, r *http.Request) {
	var req roiRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	fee, err := s.fee(req.feeInput)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Investment == 0 {
		req.Investment = s.cfg.DefaultInvestment
	}

	res := analysis.NetROI(price(req.Reference, req.American), odds.Normalize(req.Market), req.Investment, fee)
	if res == nil {
		s.metrics.RecordCalc("roi", "insufficient_data")
		respondInsufficient(w, "reference, market and investment must be positive")
		return
	}
	s.metrics.RecordCalc("roi", "ok")
	respondJSON(w, http.StatusOK, roundROI(res))
}

type cashOutRequest struct {
	EntryPrice   float64 `json:"entry_price"`
	CurrentPrice float64 `json:"current_price"`
	Investment   float64 `json:"investment"`
	feeInput
}

// CalcCashOut values a position without storing it.
func (s *Server) CalcCashOut(w http.ResponseWriter, r *http.Request) {
	var req cashOutRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	fee, err := s.fee(req.feeInput)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan := positions.PlanCashOut(odds.Normalize(req.EntryPrice), odds.Normalize(req.CurrentPrice), req.Investment, fee)
	if plan == nil {
		s.metrics.RecordCalc("cashout", "insufficient_data")
		respondInsufficient(w, "prices and investment must be positive and cover fees")
		return
	}
	s.metrics.RecordCalc("cashout", "ok")
	respondJSON(w, http.StatusOK, roundCashOut(plan))
}

type devigRequest struct {
	Probabilities []float64 `json:"probabilities"`
	American      []int     `json:"american"`
	Method        string    `json:"method"` // multiplicative (default) or power
}

type devigResponse struct {
	Method    string    `json:"method"`
	Implied   []float64 `json:"implied"`
	Fair      []float64 `json:"fair"`
	Overround float64   `json:"overround"`
}

// CalcDevig strips the bookmaker margin from a set of outcomes.
func (s *Server) CalcDevig(w http.ResponseWriter, r *http.Request) {
	var req devigRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	implied := make([]float64, 0, len(req.Probabilities)+len(req.American))
	for _, p := range req.Probabilities {
		implied = append(implied, odds.Normalize(p))
	}
	for _, a := range req.American {
		implied = append(implied, odds.AmericanToImplied(a))
	}
	if len(implied) < 2 {
		s.metrics.RecordCalc("devig", "insufficient_data")
		respondInsufficient(w, "at least two outcomes are required")
		return
	}

	var fair []float64
	switch req.Method {
	case "", "multiplicative":
		req.Method = "multiplicative"
		fair = odds.RemoveVigN(implied)
	case "power":
		if len(implied) != 2 {
			respondError(w, http.StatusBadRequest, "power method takes exactly two outcomes")
			return
		}
		a, b := odds.RemoveVigPower(implied[0], implied[1])
		fair = []float64{a, b}
	default:
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown method %q", req.Method))
		return
	}

	resp := devigResponse{Method: req.Method, Overround: mathutil.Pct(odds.Overround(implied))}
	for i := range implied {
		resp.Implied = append(resp.Implied, mathutil.Prob(implied[i]))
		resp.Fair = append(resp.Fair, mathutil.Prob(fair[i]))
	}
	s.metrics.RecordCalc("devig", "ok")
	respondJSON(w, http.StatusOK, resp)
}
