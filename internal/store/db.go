package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	_ "github.com/lib/pq"
)

// DB implements Provider over the scraper's Postgres database.
type DB struct {
	db *sql.DB
}

// Open connects to Postgres.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &DB{db: db}, nil
}

// NewDB wraps an existing handle.
func NewDB(db *sql.DB) *DB {
	return &DB{db: db}
}

// Ping checks database connectivity
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the pool
func (d *DB) Close() error {
	return d.db.Close()
}

const selectMarkets = `
	SELECT id, sport_type, team_name, web2_odds,
		COALESCE(source_bookmaker, ''), COALESCE(source_url, ''),
		polymarket_price, COALESCE(polymarket_url, ''), kalshi_price, liquidity_usdc,
		COALESCE(prop_type, ''), COALESCE(event_id, ''), last_updated
	FROM market_odds`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMarket(s rowScanner) (MarketOdds, error) {
	var m MarketOdds
	err := s.Scan(&m.ID, &m.Sport, &m.Team, &m.Web2Odds,
		&m.SourceBookmaker, &m.SourceURL,
		&m.PolymarketPrice, &m.PolymarketURL, &m.KalshiPrice, &m.Liquidity,
		&m.PropType, &m.EventID, &m.LastUpdated)
	return m, err
}

// Markets returns the latest row per team, newest first.
func (d *DB) Markets(ctx context.Context, sport string) ([]MarketOdds, error) {
	query := selectMarkets + `
		WHERE ($1 = '' OR sport_type = $1)
		ORDER BY last_updated DESC, id DESC`

	rows, err := d.db.QueryContext(ctx, query, sport)
	if err != nil {
		return nil, fmt.Errorf("query markets: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var markets []MarketOdds
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan market: %w", err)
		}
		key := m.Sport + "|" + m.PropType + "|" + m.EventID + "|" + m.Team
		if seen[key] {
			continue
		}
		seen[key] = true
		markets = append(markets, m)
	}

	return markets, rows.Err()
}

// Market returns one row by id.
func (d *DB) Market(ctx context.Context, id int64) (*MarketOdds, error) {
	m, err := scanMarket(d.db.QueryRowContext(ctx, selectMarkets+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get market %d: %w", id, err)
	}
	return &m, nil
}

const selectMatches = `
	SELECT id, sport_type, match_id, home_team, away_team, commence_time,
		web2_home_odds, web2_away_odds, web2_draw_odds,
		poly_home_price, poly_away_price, poly_draw_price,
		liquidity_home, liquidity_away, liquidity_draw,
		COALESCE(source_bookmaker, ''), COALESCE(polymarket_url, ''), last_updated
	FROM daily_matches`

func scanMatch(s rowScanner) (DailyMatch, error) {
	var m DailyMatch
	err := s.Scan(&m.ID, &m.Sport, &m.MatchID, &m.HomeTeam, &m.AwayTeam, &m.CommenceTime,
		&m.Web2Home, &m.Web2Away, &m.Web2Draw,
		&m.PolyHome, &m.PolyAway, &m.PolyDraw,
		&m.LiquidityHome, &m.LiquidityAway, &m.LiquidityDraw,
		&m.SourceBookmaker, &m.PolymarketURL, &m.LastUpdated)
	return m, err
}

// Matches returns the latest row per fixture, newest first.
func (d *DB) Matches(ctx context.Context, sport string) ([]DailyMatch, error) {
	query := selectMatches + `
		WHERE ($1 = '' OR sport_type = $1)
		ORDER BY last_updated DESC, id DESC`

	rows, err := d.db.QueryContext(ctx, query, sport)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var matches []DailyMatch
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		key := m.Sport + "|" + m.MatchID
		if seen[key] {
			continue
		}
		seen[key] = true
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

// Match returns the latest row for one fixture.
func (d *DB) Match(ctx context.Context, sport, matchID string) (*DailyMatch, error) {
	query := selectMatches + `
		WHERE sport_type = $1 AND match_id = $2
		ORDER BY last_updated DESC, id DESC
		LIMIT 1`

	m, err := scanMatch(d.db.QueryRowContext(ctx, query, sport, matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match %s/%s: %w", sport, matchID, err)
	}
	return &m, nil
}

// History returns the most recent snapshots for one event, oldest first.
func (d *DB) History(ctx context.Context, eventType, eventID string, limit int) ([]HistoryPoint, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `
		SELECT event_type, event_id, COALESCE(sport_type, ''),
			web2_odds, polymarket_price,
			web2_home_odds, web2_away_odds, poly_home_price, poly_away_price,
			liquidity_usdc, ev, recorded_at
		FROM odds_history
		WHERE event_type = $1 AND event_id = $2
		ORDER BY recorded_at DESC
		LIMIT $3`

	rows, err := d.db.QueryContext(ctx, query, eventType, eventID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var points []HistoryPoint
	for rows.Next() {
		var p HistoryPoint
		if err := rows.Scan(&p.EventType, &p.EventID, &p.Sport,
			&p.Web2Odds, &p.PolymarketPrice,
			&p.Web2Home, &p.Web2Away, &p.PolyHome, &p.PolyAway,
			&p.Liquidity, &p.EV, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.Reverse(points)
	return points, nil
}
