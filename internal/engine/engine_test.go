package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polydelta/internal/alerts"
	"polydelta/internal/analysis"
	"polydelta/internal/config"
	"polydelta/internal/fees"
	"polydelta/internal/metrics"
	"polydelta/internal/positions"
	"polydelta/internal/store"
)

func f(v float64) *float64 { return &v }

type fakeStore struct {
	markets map[string][]store.MarketOdds
	matches map[string][]store.DailyMatch
	failFor string
}

func (s *fakeStore) Markets(_ context.Context, sport string) ([]store.MarketOdds, error) {
	if sport == s.failFor {
		return nil, errors.New("db down")
	}
	return s.markets[sport], nil
}

func (s *fakeStore) Market(context.Context, int64) (*store.MarketOdds, error) {
	return nil, store.ErrNotFound
}

func (s *fakeStore) Matches(_ context.Context, sport string) ([]store.DailyMatch, error) {
	return s.matches[sport], nil
}

func (s *fakeStore) Match(context.Context, string, string) (*store.DailyMatch, error) {
	return nil, store.ErrNotFound
}

func (s *fakeStore) History(context.Context, string, string, int) ([]store.HistoryPoint, error) {
	return nil, nil
}

type fakePositions []positions.Position

func (p fakePositions) GetAllPositions() ([]positions.Position, error) { return p, nil }

func newEngine(t *testing.T, s store.Provider, db PositionSource) (*Engine, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := config.Defaults()
	cfg.Sports = []string{"nba", "epl"}
	return New(s, db, alerts.NewNotifier(time.Minute, logger), metrics.New(), cfg), &buf
}

func TestScanFindsValueBets(t *testing.T) {
	s := &fakeStore{
		markets: map[string][]store.MarketOdds{
			"nba": {
				{ID: 1, Sport: "nba", Team: "Boston Celtics", Web2Odds: f(30), PolymarketPrice: f(0.25)},
				{ID: 2, Sport: "nba", Team: "Denver Nuggets", Web2Odds: f(0.10), PolymarketPrice: f(0.10)},
				{ID: 3, Sport: "nba", Team: "Utah Jazz", Web2Odds: nil, PolymarketPrice: f(0.01)},
			},
		},
		matches: map[string][]store.DailyMatch{
			"epl": {{
				ID: 9, Sport: "epl", MatchID: "m1", HomeTeam: "Arsenal", AwayTeam: "Chelsea",
				Web2Home: f(0.50), Web2Away: f(0.30), Web2Draw: f(0.20),
				PolyHome: f(0.55), PolyAway: f(0.30), PolyDraw: f(0.20),
			}},
		},
	}
	e, logs := newEngine(t, s, nil)

	res := e.Scan(context.Background())

	require.Len(t, res.ValueBets, 2)
	assert.Equal(t, "Boston Celtics", res.ValueBets[0].Name)
	assert.Equal(t, analysis.SignalUndervalued, res.ValueBets[0].Signal)
	assert.Equal(t, "Arsenal", res.ValueBets[1].Name)
	assert.Equal(t, analysis.SignalOvervalued, res.ValueBets[1].Signal)
	assert.Contains(t, logs.String(), "Value bet")
	assert.Empty(t, res.CashOuts)
}

func TestScanContinuesAfterSportError(t *testing.T) {
	s := &fakeStore{
		failFor: "nba",
		markets: map[string][]store.MarketOdds{
			"epl": {{ID: 4, Sport: "epl", Team: "Arsenal", Web2Odds: f(0.2), PolymarketPrice: f(0.1)}},
		},
	}
	e, logs := newEngine(t, s, nil)

	res := e.Scan(context.Background())

	require.Len(t, res.ValueBets, 1)
	assert.Contains(t, logs.String(), "db down")
}

func TestScanEmitsCashOutSignals(t *testing.T) {
	s := &fakeStore{
		markets: map[string][]store.MarketOdds{
			"nba": {{ID: 1, Sport: "nba", Team: "Boston Celtics", Web2Odds: f(0.40), PolymarketPrice: f(0.40)}},
		},
	}
	db := fakePositions{{
		ID: "p1", Sport: "nba", Outcome: "Celtics", EntryPrice: 0.15, Investment: 1000,
		OrderType: fees.OrderTaker, Gas: 0.05,
	}}
	e, logs := newEngine(t, s, db)

	res := e.Scan(context.Background())

	require.Len(t, res.CashOuts, 1)
	assert.Equal(t, positions.ActionTakeProfit, res.CashOuts[0].Action)
	assert.Contains(t, logs.String(), "Cash-out signal")
}

func TestCurrentPrices(t *testing.T) {
	markets := []store.MarketOdds{
		{Sport: "nba", Team: "Boston Celtics", EventID: "nba-2026", PolymarketPrice: f(22)},
	}
	matches := []store.DailyMatch{{
		Sport: "epl", MatchID: "m1", HomeTeam: "Arsenal", AwayTeam: "Chelsea",
		PolyHome: f(0.5), PolyAway: f(0.3), PolyDraw: f(0.2),
	}}
	all := []positions.Position{
		{ID: "a", Sport: "nba", Outcome: "Celtics"},
		{ID: "b", Sport: "epl", EventID: "m1", Outcome: "Chelsea"},
		{ID: "c", Sport: "epl", EventID: "m1", Outcome: "Draw"},
		{ID: "d", Sport: "epl", EventID: "m2", Outcome: "Chelsea"},
		{ID: "e", Sport: "nba", EventID: "other", Outcome: "Celtics"},
	}

	prices := CurrentPrices(all, markets, matches)

	assert.InDelta(t, 0.22, prices["a"], 1e-12)
	assert.InDelta(t, 0.3, prices["b"], 1e-12)
	assert.InDelta(t, 0.2, prices["c"], 1e-12)
	assert.NotContains(t, prices, "d")
	assert.NotContains(t, prices, "e")
}

func TestRunStopsOnCancel(t *testing.T) {
	e, _ := newEngine(t, &fakeStore{}, nil)
	e.cfg.PollInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
