package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL matches the scraper's refresh cadence.
const DefaultCacheTTL = 60 * time.Second

const keyPrefix = "polydelta:"

// CacheObserver receives hit/miss notifications.
type CacheObserver interface {
	CacheHit(kind string)
	CacheMiss(kind string)
}

// Cached decorates a Provider with a Redis JSON cache. Any Redis failure
// falls through to the wrapped provider.
type Cached struct {
	next     Provider
	client   *redis.Client
	ttl      time.Duration
	log      *slog.Logger
	observer CacheObserver
}

// NewCached wraps next. A non-positive ttl uses DefaultCacheTTL.
func NewCached(next Provider, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, client: client, ttl: ttl, log: logger}
}

// WithObserver sets the hit/miss observer.
func (c *Cached) WithObserver(o CacheObserver) *Cached {
	c.observer = o
	return c
}

func (c *Cached) Markets(ctx context.Context, sport string) ([]MarketOdds, error) {
	return cached(ctx, c, "markets", "markets:"+sport, func() ([]MarketOdds, error) {
		return c.next.Markets(ctx, sport)
	})
}

func (c *Cached) Market(ctx context.Context, id int64) (*MarketOdds, error) {
	return cached(ctx, c, "market", fmt.Sprintf("market:%d", id), func() (*MarketOdds, error) {
		return c.next.Market(ctx, id)
	})
}

func (c *Cached) Matches(ctx context.Context, sport string) ([]DailyMatch, error) {
	return cached(ctx, c, "matches", "matches:"+sport, func() ([]DailyMatch, error) {
		return c.next.Matches(ctx, sport)
	})
}

func (c *Cached) Match(ctx context.Context, sport, matchID string) (*DailyMatch, error) {
	return cached(ctx, c, "match", "match:"+sport+":"+matchID, func() (*DailyMatch, error) {
		return c.next.Match(ctx, sport, matchID)
	})
}

func (c *Cached) History(ctx context.Context, eventType, eventID string, limit int) ([]HistoryPoint, error) {
	key := fmt.Sprintf("history:%s:%s:%d", eventType, eventID, limit)
	return cached(ctx, c, "history", key, func() ([]HistoryPoint, error) {
		return c.next.History(ctx, eventType, eventID, limit)
	})
}

func cached[T any](ctx context.Context, c *Cached, kind, key string, load func() (T, error)) (T, error) {
	key = keyPrefix + key

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if jerr := json.Unmarshal(data, &v); jerr == nil {
			c.observe(kind, true)
			return v, nil
		}
	case !errors.Is(err, redis.Nil):
		c.log.Debug("Cache read failed", "key", key, "error", err)
	}
	c.observe(kind, false)

	v, err := load()
	if err != nil {
		return v, err
	}

	if data, err := json.Marshal(v); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Debug("Cache write failed", "key", key, "error", err)
		}
	}
	return v, nil
}

func (c *Cached) observe(kind string, hit bool) {
	if c.observer == nil {
		return
	}
	if hit {
		c.observer.CacheHit(kind)
	} else {
		c.observer.CacheMiss(kind)
	}
}
