package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"polydelta/internal/analysis"
	"polydelta/internal/fees"
	"polydelta/internal/mathutil"
	"polydelta/internal/odds"
	"polydelta/internal/store"
)

type marketView struct {
	ID              int64     `json:"id"`
	Sport           string    `json:"sport"`
	Team            string    `json:"team"`
	EventID         string    `json:"event_id,omitempty"`
	SourceBookmaker string    `json:"source_bookmaker,omitempty"`
	PolymarketURL   string    `json:"polymarket_url,omitempty"`
	LastUpdated     time.Time `json:"last_updated"`
	quoteView
}

func (s *Server) newMarketView(m store.MarketOdds) marketView {
	return marketView{
		ID:              m.ID,
		Sport:           m.Sport,
		Team:            m.Team,
		EventID:         m.EventID,
		SourceBookmaker: m.SourceBookmaker,
		PolymarketURL:   m.PolymarketURL,
		LastUpdated:     m.LastUpdated,
		quoteView:       newQuoteView(m.Quote(), s.cfg.ValueBetPolicy()),
	}
}

// ListMarkets returns outright rows with EV and signal.
func (s *Server) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.store.Markets(r.Context(), r.URL.Query().Get("sport"))
	if err != nil {
		s.storeError(w, err)
		return
	}

	out := make([]marketView, 0, len(markets))
	for _, m := range markets {
		out = append(out, s.newMarketView(m))
	}
	respondJSON(w, http.StatusOK, out)
}

type marketDetail struct {
	marketView
	Kelly *analysis.KellyRecommendation `json:"kelly,omitempty"`
	ROI   *analysis.NetROIResult        `json:"roi,omitempty"`
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// GetMarket returns one row with Kelly sizing at the default bankroll and
// the venue comparison at the default investment.
func (s *Server) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	m, err := s.store.Market(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}

	q := m.Quote()
	fee := s.cfg.Fee(fees.OrderTaker)
	policy := s.cfg.KellyPolicy()

	detail := marketDetail{marketView: s.newMarketView(*m)}
	rec := analysis.Kelly(q.Reference, q.Market, s.cfg.DefaultBankroll,
		policy.Fraction(analysis.RiskConservative), fee, policy)
	if q.Reference > 0 && rec.Status != analysis.KellyInsufficientData {
		if rec.Status == analysis.KellyOK {
			rec.LiquidityWarned = analysis.LiquidityWarning(rec.Stake, q.Liquidity)
		}
		rounded := roundKelly(rec)
		detail.Kelly = &rounded
	}
	detail.ROI = roundROI(analysis.NetROI(q.Reference, q.Market, s.cfg.DefaultInvestment, fee))

	respondJSON(w, http.StatusOK, detail)
}

type historyView struct {
	Reference *float64  `json:"reference_prob,omitempty"`
	Market    *float64  `json:"market_price,omitempty"`
	HomeRef   *float64  `json:"home_reference_prob,omitempty"`
	AwayRef   *float64  `json:"away_reference_prob,omitempty"`
	HomePrice *float64  `json:"home_market_price,omitempty"`
	AwayPrice *float64  `json:"away_market_price,omitempty"`
	Liquidity *float64  `json:"liquidity,omitempty"`
	EV        *float64  `json:"ev,omitempty"`
	At        time.Time `json:"recorded_at"`
}

func newHistoryView(p store.HistoryPoint) historyView {
	prob := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		n := mathutil.Prob(odds.Normalize(*v))
		return &n
	}
	return historyView{
		Reference: prob(p.Web2Odds),
		Market:    prob(p.PolymarketPrice),
		HomeRef:   prob(p.Web2Home),
		AwayRef:   prob(p.Web2Away),
		HomePrice: prob(p.PolyHome),
		AwayPrice: prob(p.PolyAway),
		Liquidity: roundPtr(p.Liquidity, mathutil.Money),
		EV:        roundPtr(p.EV, mathutil.Pct),
		At:        p.RecordedAt,
	}
}

func historyLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return store.DefaultHistoryLimit
	}
	return limit
}

func (s *Server) respondHistory(w http.ResponseWriter, r *http.Request, eventType, eventID string) {
	points, err := s.store.History(r.Context(), eventType, eventID, historyLimit(r))
	if err != nil {
		s.storeError(w, err)
		return
	}
	out := make([]historyView, 0, len(points))
	for _, p := range points {
		out = append(out, newHistoryView(p))
	}
	respondJSON(w, http.StatusOK, out)
}

// MarketHistory returns price snapshots for an outright row, oldest first.
// Outright history is keyed by team name.
func (s *Server) MarketHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	m, err := s.store.Market(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.respondHistory(w, r, store.EventChampionship, m.Team)
}

// MatchHistory returns price snapshots for a fixture.
func (s *Server) MatchHistory(w http.ResponseWriter, r *http.Request) {
	s.respondHistory(w, r, store.EventDaily, chi.URLParam(r, "matchID"))
}

type matchView struct {
	ID           int64                     `json:"id"`
	Sport        string                    `json:"sport"`
	MatchID      string                    `json:"match_id"`
	HomeTeam     string                    `json:"home_team"`
	AwayTeam     string                    `json:"away_team"`
	CommenceTime *time.Time                `json:"commence_time,omitempty"`
	Sides        []quoteView               `json:"sides"`
	Hedge        *analysis.HedgeAllocation `json:"hedge,omitempty"`
	LastUpdated  time.Time                 `json:"last_updated"`
}

// ListMatches returns fixtures with per-side EV and the cross-venue hedge
// at the default investment.
func (s *Server) ListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.store.Matches(r.Context(), r.URL.Query().Get("sport"))
	if err != nil {
		s.storeError(w, err)
		return
	}

	policy := s.cfg.ValueBetPolicy()
	out := make([]matchView, 0, len(matches))
	for _, m := range matches {
		v := matchView{
			ID:           m.ID,
			Sport:        m.Sport,
			MatchID:      m.MatchID,
			HomeTeam:     m.HomeTeam,
			AwayTeam:     m.AwayTeam,
			CommenceTime: m.CommenceTime,
			Hedge:        roundHedge(analysis.HedgeMatch(m.Prices(), s.cfg.DefaultInvestment)),
			LastUpdated:  m.LastUpdated,
		}
		for _, q := range m.Quotes() {
			v.Sides = append(v.Sides, newQuoteView(q, policy))
		}
		out = append(out, v)
	}
	respondJSON(w, http.StatusOK, out)
}

// ValueBets returns every outright and match side past the EV threshold,
// largest |EV| first.
func (s *Server) ValueBets(w http.ResponseWriter, r *http.Request) {
	sport := r.URL.Query().Get("sport")

	markets, err := s.store.Markets(r.Context(), sport)
	if err != nil {
		s.storeError(w, err)
		return
	}
	matches, err := s.store.Matches(r.Context(), sport)
	if err != nil {
		s.storeError(w, err)
		return
	}

	var quotes []analysis.Quote
	for _, m := range markets {
		quotes = append(quotes, m.Quote())
	}
	for _, m := range matches {
		quotes = append(quotes, m.Quotes()...)
	}

	bets := analysis.FindValueBets(quotes, s.cfg.ValueBetPolicy())
	out := make([]opportunityView, 0, len(bets))
	for _, b := range bets {
		out = append(out, newOpportunityView(b))
	}
	respondJSON(w, http.StatusOK, out)
}
