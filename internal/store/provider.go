// Package store reads the odds tables maintained by the external scraper.
// It never writes.
package store

import (
	"context"
	"errors"

	"polydelta/internal/teams"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("not found")

// DefaultHistoryLimit caps History when the caller passes no limit.
const DefaultHistoryLimit = 200

// Provider is the read-only view of the odds tables. An empty sport means
// every sport.
type Provider interface {
	Markets(ctx context.Context, sport string) ([]MarketOdds, error)
	Market(ctx context.Context, id int64) (*MarketOdds, error)
	Matches(ctx context.Context, sport string) ([]DailyMatch, error)
	Match(ctx context.Context, sport, matchID string) (*DailyMatch, error)
	History(ctx context.Context, eventType, eventID string, limit int) ([]HistoryPoint, error)
}

// FindMarket returns the outright row for a team, matching names loosely
// ("Sixers" finds "Philadelphia 76ers").
func FindMarket(ctx context.Context, p Provider, sport, team string) (*MarketOdds, error) {
	markets, err := p.Markets(ctx, sport)
	if err != nil {
		return nil, err
	}
	for i := range markets {
		if teams.Match(markets[i].Team, team) {
			return &markets[i], nil
		}
	}
	return nil, ErrNotFound
}

// FindMatch returns the fixture involving both teams, in either order.
func FindMatch(ctx context.Context, p Provider, sport, teamA, teamB string) (*DailyMatch, error) {
	matches, err := p.Matches(ctx, sport)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		m := &matches[i]
		if (teams.Match(m.HomeTeam, teamA) && teams.Match(m.AwayTeam, teamB)) ||
			(teams.Match(m.HomeTeam, teamB) && teams.Match(m.AwayTeam, teamA)) {
			return m, nil
		}
	}
	return nil, ErrNotFound
}
