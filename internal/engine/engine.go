package engine

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"polydelta/internal/alerts"
	"polydelta/internal/analysis"
	"polydelta/internal/config"
	"polydelta/internal/fees"
	"polydelta/internal/metrics"
	"polydelta/internal/odds"
	"polydelta/internal/positions"
	"polydelta/internal/store"
	"polydelta/internal/teams"
)

// PositionSource lists tracked positions.
type PositionSource interface {
	GetAllPositions() ([]positions.Position, error)
}

// Engine polls the odds store, flags value bets and watches tracked positions
// for cash-out opportunities.
type Engine struct {
	store    store.Provider
	db       PositionSource
	notifier *alerts.Notifier
	metrics  *metrics.Metrics
	cfg      config.Config
}

// New creates a new Engine. db may be nil when position tracking is off.
func New(
	provider store.Provider,
	db PositionSource,
	notifier *alerts.Notifier,
	m *metrics.Metrics,
	cfg config.Config,
) *Engine {
	return &Engine{
		store:    provider,
		db:       db,
		notifier: notifier,
		metrics:  m,
		cfg:      cfg,
	}
}

// Run starts the polling loop. It blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(config.DefaultCleanupInterval)
	defer cleanupTicker.Stop()

	slog.Info("Starting polling loop", "interval", e.cfg.PollInterval, "sports", e.cfg.Sports)
	e.Scan(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Engine stopped")
			return

		case <-cleanupTicker.C:
			e.notifier.CleanupOldAlerts()

		case <-ticker.C:
			e.Scan(ctx)
		}
	}
}

// Result is the outcome of one scan cycle.
type Result struct {
	ValueBets []analysis.Opportunity
	CashOuts  []positions.Signal
}

// Scan runs one cycle over every configured sport, then over tracked
// positions. Failures for one sport are logged and do not stop the others.
func (e *Engine) Scan(ctx context.Context) Result {
	var (
		res     Result
		markets []store.MarketOdds
		matches []store.DailyMatch
	)

	policy := e.cfg.ValueBetPolicy()

	for _, sport := range e.cfg.Sports {
		if ctx.Err() != nil {
			return res
		}
		start := time.Now()

		sportMarkets, err := e.store.Markets(ctx, sport)
		if err != nil {
			e.notifier.LogError("loading markets for "+sport, err)
			e.metrics.RecordScan(sport, "error", time.Since(start).Seconds())
			continue
		}
		sportMatches, err := e.store.Matches(ctx, sport)
		if err != nil {
			e.notifier.LogError("loading matches for "+sport, err)
			e.metrics.RecordScan(sport, "error", time.Since(start).Seconds())
			continue
		}
		markets = append(markets, sportMarkets...)
		matches = append(matches, sportMatches...)

		quotes := make([]analysis.Quote, 0, len(sportMarkets)+2*len(sportMatches))
		for _, m := range sportMarkets {
			quotes = append(quotes, m.Quote())
		}
		for _, m := range sportMatches {
			quotes = append(quotes, m.Quotes()...)
		}

		bets := analysis.FindValueBets(quotes, policy)
		e.report(sport, bets)
		res.ValueBets = append(res.ValueBets, bets...)

		elapsed := time.Since(start)
		e.metrics.RecordScan(sport, "ok", elapsed.Seconds())
		e.notifier.LogScan(sport, len(quotes), len(bets), elapsed)
	}

	res.CashOuts = e.scanPositions(markets, matches)
	return res
}

func (e *Engine) report(sport string, bets []analysis.Opportunity) {
	var under, over int
	var best float64

	fee := e.cfg.Fee(fees.OrderTaker)
	kellyPolicy := e.cfg.KellyPolicy()

	for _, opp := range bets {
		if math.Abs(opp.EV) > best {
			best = math.Abs(opp.EV)
		}
		if opp.Signal == analysis.SignalOvervalued {
			over++
		} else {
			under++
		}

		if e.notifier.AlertValueBet(opp) {
			e.metrics.RecordAlert("value_bet")
		}

		if opp.Signal != analysis.SignalUndervalued || opp.Liquidity == nil {
			continue
		}
		rec := analysis.Kelly(opp.Reference, opp.Market, e.cfg.DefaultBankroll,
			kellyPolicy.Fraction(analysis.RiskConservative), fee, kellyPolicy)
		if rec.Status == analysis.KellyOK && analysis.LiquidityWarning(rec.Stake, opp.Liquidity) {
			if e.notifier.AlertLiquidity(opp.Name, rec.Stake, *opp.Liquidity) {
				e.metrics.RecordAlert("liquidity")
			}
		}
	}

	e.metrics.SetValueBets(sport, under, over, best)
}

func (e *Engine) scanPositions(markets []store.MarketOdds, matches []store.DailyMatch) []positions.Signal {
	if e.db == nil {
		return nil
	}

	all, err := e.db.GetAllPositions()
	if err != nil {
		e.notifier.LogError("loading positions", err)
		return nil
	}
	if len(all) == 0 {
		return nil
	}

	prices := CurrentPrices(all, markets, matches)
	signals := positions.Scan(all, prices, e.cfg.Rates(), e.cfg.TakeProfitROI)

	counts := map[positions.Action]int{}
	for _, sig := range signals {
		counts[sig.Action]++
		if e.notifier.AlertCashOut(sig) {
			e.metrics.RecordAlert("cash_out")
		}
	}
	e.metrics.SetCashOuts(string(positions.ActionFreeRoll), counts[positions.ActionFreeRoll])
	e.metrics.SetCashOuts(string(positions.ActionTakeProfit), counts[positions.ActionTakeProfit])

	return signals
}

// CurrentPrices finds the live Polymarket price for each position, keyed by
// position ID. A position matches a fixture by match id and outcome team (or
// "draw"), or an outright row by event id and team. Positions without a
// usable price are left out.
func CurrentPrices(all []positions.Position, markets []store.MarketOdds, matches []store.DailyMatch) map[string]float64 {
	prices := make(map[string]float64, len(all))

	for _, pos := range all {
		if p := matchPrice(pos, matches); p > 0 {
			prices[pos.ID] = p
			continue
		}
		if p := marketPrice(pos, markets); p > 0 {
			prices[pos.ID] = p
		}
	}
	return prices
}

func sameSport(pos positions.Position, sport string) bool {
	return pos.Sport == "" || strings.EqualFold(pos.Sport, sport)
}

func matchPrice(pos positions.Position, matches []store.DailyMatch) float64 {
	for _, m := range matches {
		if !sameSport(pos, m.Sport) {
			continue
		}
		if pos.EventID != "" && pos.EventID != m.MatchID {
			continue
		}

		switch {
		case strings.EqualFold(pos.Outcome, "draw"):
			if pos.EventID != "" {
				return odds.NormalizePtr(m.PolyDraw)
			}
		case teams.Match(m.HomeTeam, pos.Outcome):
			return odds.NormalizePtr(m.PolyHome)
		case teams.Match(m.AwayTeam, pos.Outcome):
			return odds.NormalizePtr(m.PolyAway)
		}
	}
	return 0
}

func marketPrice(pos positions.Position, markets []store.MarketOdds) float64 {
	for _, m := range markets {
		if !sameSport(pos, m.Sport) {
			continue
		}
		if pos.EventID != "" && m.EventID != "" && pos.EventID != m.EventID {
			continue
		}
		if teams.Match(m.Team, pos.Outcome) {
			return odds.NormalizePtr(m.PolymarketPrice)
		}
	}
	return 0
}
