package store

import (
	"time"

	"polydelta/internal/analysis"
	"polydelta/internal/odds"
)

// Venue names used when a row is turned into a two-venue comparison.
const (
	VenueBookmaker  = "bookmaker"
	VenuePolymarket = "polymarket"
)

// MarketOdds is one outright/championship row. Probabilities are stored as
// written by the scraper, either as fractions or as percentages, and may be
// missing.
type MarketOdds struct {
	ID              int64     `json:"id"`
	Sport           string    `json:"sport"`
	Team            string    `json:"team"`
	Web2Odds        *float64  `json:"web2_odds"`
	SourceBookmaker string    `json:"source_bookmaker,omitempty"`
	SourceURL       string    `json:"source_url,omitempty"`
	PolymarketPrice *float64  `json:"polymarket_price"`
	PolymarketURL   string    `json:"polymarket_url,omitempty"`
	KalshiPrice     *float64  `json:"kalshi_price,omitempty"`
	Liquidity       *float64  `json:"liquidity_usdc,omitempty"`
	PropType        string    `json:"prop_type,omitempty"`
	EventID         string    `json:"event_id,omitempty"`
	LastUpdated     time.Time `json:"last_updated"`
}

// Quote normalises the row for the calculators.
func (m MarketOdds) Quote() analysis.Quote {
	return analysis.Quote{
		ID:        m.ID,
		Sport:     m.Sport,
		EventID:   m.EventID,
		Name:      m.Team,
		Reference: odds.NormalizePtr(m.Web2Odds),
		Market:    odds.NormalizePtr(m.PolymarketPrice),
		Liquidity: m.Liquidity,
		MarketURL: m.PolymarketURL,
	}
}

// DailyMatch is one head-to-head fixture priced on both venues. Draw fields
// are only set for soccer.
type DailyMatch struct {
	ID              int64      `json:"id"`
	Sport           string     `json:"sport"`
	MatchID         string     `json:"match_id"`
	HomeTeam        string     `json:"home_team"`
	AwayTeam        string     `json:"away_team"`
	CommenceTime    *time.Time `json:"commence_time,omitempty"`
	Web2Home        *float64   `json:"web2_home_odds"`
	Web2Away        *float64   `json:"web2_away_odds"`
	Web2Draw        *float64   `json:"web2_draw_odds,omitempty"`
	PolyHome        *float64   `json:"poly_home_price"`
	PolyAway        *float64   `json:"poly_away_price"`
	PolyDraw        *float64   `json:"poly_draw_price,omitempty"`
	LiquidityHome   *float64   `json:"liquidity_home,omitempty"`
	LiquidityAway   *float64   `json:"liquidity_away,omitempty"`
	LiquidityDraw   *float64   `json:"liquidity_draw,omitempty"`
	SourceBookmaker string     `json:"source_bookmaker,omitempty"`
	PolymarketURL   string     `json:"polymarket_url,omitempty"`
	LastUpdated     time.Time  `json:"last_updated"`
}

// Quotes returns one normalised quote per side. The draw side is included
// only when the bookmaker priced it.
func (m DailyMatch) Quotes() []analysis.Quote {
	side := func(side, name string, ref, mkt, liq *float64) analysis.Quote {
		return analysis.Quote{
			ID:        m.ID,
			Sport:     m.Sport,
			EventID:   m.MatchID,
			Name:      name,
			Side:      side,
			Reference: odds.NormalizePtr(ref),
			Market:    odds.NormalizePtr(mkt),
			Liquidity: liq,
			MarketURL: m.PolymarketURL,
		}
	}

	quotes := []analysis.Quote{
		side("home", m.HomeTeam, m.Web2Home, m.PolyHome, m.LiquidityHome),
		side("away", m.AwayTeam, m.Web2Away, m.PolyAway, m.LiquidityAway),
	}
	if m.Web2Draw != nil {
		quotes = append(quotes, side("draw", "Draw", m.Web2Draw, m.PolyDraw, m.LiquidityDraw))
	}
	return quotes
}

// Prices returns the normalised two-venue prices for the match hedge.
func (m DailyMatch) Prices() analysis.MatchPrices {
	return analysis.MatchPrices{
		VenueA: VenueBookmaker,
		VenueB: VenuePolymarket,
		AHome:  odds.NormalizePtr(m.Web2Home),
		AAway:  odds.NormalizePtr(m.Web2Away),
		BHome:  odds.NormalizePtr(m.PolyHome),
		BAway:  odds.NormalizePtr(m.PolyAway),
	}
}

// Event types recorded in odds_history.
const (
	EventChampionship = "championship"
	EventDaily        = "daily"
)

// HistoryPoint is one snapshot from odds_history.
type HistoryPoint struct {
	EventType       string    `json:"event_type"`
	EventID         string    `json:"event_id"`
	Sport           string    `json:"sport"`
	Web2Odds        *float64  `json:"web2_odds,omitempty"`
	PolymarketPrice *float64  `json:"polymarket_price,omitempty"`
	Web2Home        *float64  `json:"web2_home_odds,omitempty"`
	Web2Away        *float64  `json:"web2_away_odds,omitempty"`
	PolyHome        *float64  `json:"poly_home_price,omitempty"`
	PolyAway        *float64  `json:"poly_away_price,omitempty"`
	Liquidity       *float64  `json:"liquidity_usdc,omitempty"`
	EV              *float64  `json:"ev,omitempty"`
	RecordedAt      time.Time `json:"recorded_at"`
}
