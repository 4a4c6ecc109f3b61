package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"polydelta/internal/analysis"
	"polydelta/internal/assistant"
	"polydelta/internal/fees"
	"polydelta/internal/store"
	"polydelta/internal/teams"
)

type chatRequest struct {
	Message  string              `json:"message"`
	History  []assistant.Message `json:"history"`
	MarketID int64               `json:"market_id"`
	Sport    string              `json:"sport"`
	Team     string              `json:"team"`
	Opponent string              `json:"opponent"`
}

type chatResponse struct {
	Reply   string `json:"reply"`
	Context string `json:"context"`
}

// Chat answers a question about one market using the computed numbers as
// context. Requests beyond the configured rate get 429.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	if !s.chatLimiter.Allow() {
		s.metrics.RecordChat("rate_limited")
		respondError(w, http.StatusTooManyRequests, "chat rate limit exceeded")
		return
	}

	var req chatRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	if s.assistant == nil {
		respondError(w, http.StatusServiceUnavailable, "assistant is not configured")
		return
	}

	view, err := s.chatView(r, req)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.storeError(w, err)
		return
	}
	marketContext := assistant.BuildContext(view)

	history := append(req.History, assistant.Message{Role: assistant.RoleUser, Content: req.Message})
	reply, err := s.assistant.Reply(r.Context(), marketContext, history)
	if errors.Is(err, assistant.ErrNotConfigured) {
		s.metrics.RecordChat("unconfigured")
		respondError(w, http.StatusServiceUnavailable, "assistant is not configured")
		return
	}
	if err != nil {
		s.metrics.RecordChat("error")
		s.log.Error("Chat failed", "error", err)
		respondError(w, http.StatusBadGateway, "assistant unavailable")
		return
	}

	s.metrics.RecordChat("ok")
	respondJSON(w, http.StatusOK, chatResponse{Reply: reply, Context: marketContext})
}

// chatView loads the market the question is about and runs the
// calculators on it. A team plus an opponent selects a daily match, which
// also gets the two-venue hedge. Without a market the view names only the
// question scope.
func (s *Server) chatView(r *http.Request, req chatRequest) (assistant.MarketView, error) {
	var (
		q     analysis.Quote
		name  string
		hedge *analysis.HedgeAllocation
	)
	switch {
	case req.MarketID > 0:
		m, err := s.store.Market(r.Context(), req.MarketID)
		if err != nil {
			return notFoundView(req, fmt.Sprintf("market %d", req.MarketID)), err
		}
		q, name = m.Quote(), m.Team
	case req.Team != "" && req.Opponent != "":
		m, err := store.FindMatch(r.Context(), s.store, req.Sport, req.Team, req.Opponent)
		if err != nil {
			return notFoundView(req, req.Team+" vs "+req.Opponent), err
		}
		for _, side := range m.Quotes() {
			if teams.Match(side.Name, req.Team) {
				q = side
			}
		}
		name = m.HomeTeam + " vs " + m.AwayTeam
		hedge = analysis.HedgeMatch(m.Prices(), s.cfg.DefaultInvestment)
	case req.Team != "":
		m, err := store.FindMarket(r.Context(), s.store, req.Sport, req.Team)
		if err != nil {
			return notFoundView(req, req.Team), err
		}
		q, name = m.Quote(), m.Team
	default:
		return assistant.MarketView{Sport: req.Sport, Name: "no market selected"}, nil
	}

	fee := s.cfg.Fee(fees.OrderTaker)
	policy := s.cfg.KellyPolicy()

	view := assistant.MarketView{
		Sport:     q.Sport,
		Name:      name,
		Reference: q.Reference,
		Market:    q.Market,
		Liquidity: q.Liquidity,
		ROI:       analysis.NetROI(q.Reference, q.Market, s.cfg.DefaultInvestment, fee),
		Hedge:     hedge,
	}
	if ev, ok := analysis.ComputeEV(q.Reference, q.Market); ok {
		view.Opportunity = &analysis.Opportunity{
			Quote:  q,
			EV:     ev,
			Signal: analysis.ClassifyEV(ev, s.cfg.ValueBetPolicy().ValueBetThreshold),
		}
	}
	rec := analysis.Kelly(q.Reference, q.Market, s.cfg.DefaultBankroll,
		policy.Fraction(analysis.RiskConservative), fee, policy)
	if q.Reference > 0 && rec.Status != analysis.KellyInsufficientData {
		rec.LiquidityWarned = rec.Status == analysis.KellyOK && analysis.LiquidityWarning(rec.Stake, q.Liquidity)
		view.Kelly = &rec
	}
	return view, nil
}

func notFoundView(req chatRequest, name string) assistant.MarketView {
	return assistant.MarketView{Sport: req.Sport, Name: name + " (not found)"}
}
