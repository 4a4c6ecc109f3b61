package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"polydelta/internal/analysis"
	"polydelta/internal/engine"
	"polydelta/internal/fees"
	"polydelta/internal/mathutil"
	"polydelta/internal/odds"
	"polydelta/internal/polymarket"
	"polydelta/internal/positions"
)

var errBadPrice = errors.New("price must be a number")

func (s *Server) requirePositions(w http.ResponseWriter) bool {
	if s.positions == nil {
		respondError(w, http.StatusServiceUnavailable, "position tracking is disabled")
		return false
	}
	return true
}

// ListPositions returns tracked positions, optionally for one sport.
func (s *Server) ListPositions(w http.ResponseWriter, r *http.Request) {
	if !s.requirePositions(w) {
		return
	}

	var (
		list []positions.Position
		err  error
	)
	if sport := r.URL.Query().Get("sport"); sport != "" {
		list, err = s.positions.GetPositionsBySport(sport)
	} else {
		list, err = s.positions.GetAllPositions()
	}
	if err != nil {
		s.storeError(w, err)
		return
	}
	if list == nil {
		list = []positions.Position{}
	}
	respondJSON(w, http.StatusOK, list)
}

type addPositionRequest struct {
	Sport      string  `json:"sport"`
	EventID    string  `json:"event_id"`
	Outcome    string  `json:"outcome"`
	TokenID    string  `json:"token_id"`
	EntryPrice float64 `json:"entry_price"`
	Investment float64 `json:"investment"`
	feeInput
}

// AddPosition records a new position.
func (s *Server) AddPosition(w http.ResponseWriter, r *http.Request) {
	if !s.requirePositions(w) {
		return
	}

	var req addPositionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	fee, err := s.fee(req.feeInput)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	orderType, _ := fees.ParseOrderType(req.OrderType)

	pos := positions.Position{
		Sport:      req.Sport,
		EventID:    req.EventID,
		Outcome:    req.Outcome,
		TokenID:    req.TokenID,
		EntryPrice: odds.Normalize(req.EntryPrice),
		Investment: req.Investment,
		OrderType:  orderType,
		Gas:        fee.Gas,
	}
	if err := pos.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.positions.AddPosition(pos)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.log.Info("Position added", "id", saved.ID, "outcome", saved.Outcome, "entry", saved.EntryPrice)
	respondJSON(w, http.StatusCreated, saved)
}

// DeletePosition removes a position.
func (s *Server) DeletePosition(w http.ResponseWriter, r *http.Request) {
	if !s.requirePositions(w) {
		return
	}
	if err := s.positions.DeletePosition(chi.URLParam(r, "id")); err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type positionCashOut struct {
	Position         positions.Position     `json:"position"`
	Plan             *positions.CashOutPlan `json:"plan"`
	Action           positions.Action       `json:"action,omitempty"`
	Description      string                 `json:"description,omitempty"`
	Liquidity        *float64               `json:"liquidity,omitempty"`
	LiquidityWarning bool                   `json:"liquidity_warning,omitempty"`
}

// PositionCashOut values a position at ?price= or, when absent, at the
// current Polymarket price from the store.
func (s *Server) PositionCashOut(w http.ResponseWriter, r *http.Request) {
	if !s.requirePositions(w) {
		return
	}

	pos, err := s.positions.GetPosition(chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, err)
		return
	}

	current, err := s.currentPrice(r, *pos)
	if errors.Is(err, errBadPrice) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.storeError(w, err)
		return
	}

	plan := positions.PlanCashOut(pos.EntryPrice, current, pos.Investment, pos.Fee(s.cfg.Rates()))
	if plan == nil {
		s.metrics.RecordCalc("cashout", "insufficient_data")
		respondInsufficient(w, "no usable current price for this position")
		return
	}
	s.metrics.RecordCalc("cashout", "ok")

	resp := positionCashOut{Position: *pos, Plan: roundCashOut(plan)}
	if sig := positions.Scan([]positions.Position{*pos}, map[string]float64{pos.ID: current}, s.cfg.Rates(), s.cfg.TakeProfitROI); len(sig) > 0 {
		resp.Action = sig[0].Action
		resp.Description = sig[0].Description
	}

	if s.depth != nil && pos.TokenID != "" {
		depth, err := s.depth.Depth(r.Context(), pos.TokenID, current, polymarket.SideSell)
		if err != nil {
			s.log.Warn("Order book unavailable", "token", pos.TokenID, "error", err)
		} else {
			resp.Liquidity = roundPtr(&depth, mathutil.Money)
			resp.LiquidityWarning = analysis.LiquidityWarning(plan.MarkValue, &depth)
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) currentPrice(r *http.Request, pos positions.Position) (float64, error) {
	if raw := r.URL.Query().Get("price"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, errBadPrice
		}
		return odds.Normalize(p), nil
	}

	markets, err := s.store.Markets(r.Context(), pos.Sport)
	if err != nil {
		return 0, err
	}
	matches, err := s.store.Matches(r.Context(), pos.Sport)
	if err != nil {
		return 0, err
	}
	return engine.CurrentPrices([]positions.Position{pos}, markets, matches)[pos.ID], nil
}
