// Package polymarket reads order-book depth from the Polymarket CLOB.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultCLOBBase = "https://clob.polymarket.com"

	// CLOB /book allows 500 req/10s; stay well under it.
	bookRatePerSec = 30

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client is a rate-limited CLOB client with retries on 429 and 5xx.
type Client struct {
	http     *http.Client
	clobBase string
	limiter  *rate.Limiter
	retryGap time.Duration
}

// NewClient returns a client for clobBase, or production when empty.
func NewClient(clobBase string) *Client {
	if clobBase == "" {
		clobBase = DefaultCLOBBase
	}
	return &Client{
		http:     &http.Client{Timeout: 10 * time.Second},
		clobBase: clobBase,
		limiter:  rate.NewLimiter(bookRatePerSec, 5),
		retryGap: baseRetryWait,
	}
}

// OrderBook fetches the book for one outcome token.
func (c *Client) OrderBook(ctx context.Context, tokenID string) (*OrderBook, error) {
	if tokenID == "" {
		return nil, fmt.Errorf("token id is required")
	}

	u := c.clobBase + "/book?token_id=" + url.QueryEscape(tokenID)
	var raw bookResponse
	if err := c.get(ctx, u, &raw); err != nil {
		return nil, fmt.Errorf("GET /book %s: %w", tokenID, err)
	}

	book, err := raw.parse()
	if err != nil {
		return nil, fmt.Errorf("parse book %s: %w", tokenID, err)
	}
	return book, nil
}

// Depth returns the USDC available within DefaultBand of price on side.
func (c *Client) Depth(ctx context.Context, tokenID string, price float64, side Side) (float64, error) {
	book, err := c.OrderBook(ctx, tokenID)
	if err != nil {
		return 0, err
	}
	return book.DepthWithin(price, side, DefaultBand), nil
}

func (c *Client) get(ctx context.Context, u string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("status %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("CLOB request retry", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep backs off exponentially, returning early if ctx is done.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryGap
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
