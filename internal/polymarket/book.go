package polymarket

import (
	"fmt"
	"sort"
	"strconv"
)

// Side is the direction of a trade against the book.
type Side string

const (
	SideBuy  Side = "buy"  // consumes asks
	SideSell Side = "sell" // consumes bids
)

// priceEpsilon absorbs float error at the band edge.
const priceEpsilon = 1e-9

// DefaultBand is how far from the current price (in price units) depth is counted.
const DefaultBand = 0.02

// Level is one price level.
type Level struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBook holds both sides of one token's book.
type OrderBook struct {
	TokenID string
	Bids    []Level
	Asks    []Level
}

// DepthWithin sums price×size over the levels a trade on side would
// consume before moving band away from price. Asks are walked lowest
// first up to price+band; bids highest first down to price−band.
func (b *OrderBook) DepthWithin(price float64, side Side, band float64) float64 {
	if side == SideSell {
		return DepthWithin(b.Bids, price, side, band)
	}
	return DepthWithin(b.Asks, price, side, band)
}

// DepthWithin is the book-independent form of OrderBook.DepthWithin.
// Returns 0 when price is not positive.
func DepthWithin(levels []Level, price float64, side Side, band float64) float64 {
	if !(price > 0) {
		return 0
	}

	sorted := make([]Level, len(levels))
	copy(sorted, levels)

	var limit float64
	if side == SideSell {
		limit = price - band
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Price > sorted[j].Price })
	} else {
		limit = price + band
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })
	}

	total := 0.0
	for _, l := range sorted {
		if side == SideSell && l.Price < limit-priceEpsilon {
			break
		}
		if side != SideSell && l.Price > limit+priceEpsilon {
			break
		}
		total += l.Price * l.Size
	}
	return total
}

// bookResponse is GET /book. Prices and sizes arrive as strings.
type bookResponse struct {
	AssetID string     `json:"asset_id"`
	Bids    []rawLevel `json:"bids"`
	Asks    []rawLevel `json:"asks"`
}

type rawLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

func (r bookResponse) parse() (*OrderBook, error) {
	bids, err := parseLevels(r.Bids)
	if err != nil {
		return nil, fmt.Errorf("bids: %w", err)
	}
	asks, err := parseLevels(r.Asks)
	if err != nil {
		return nil, fmt.Errorf("asks: %w", err)
	}
	return &OrderBook{TokenID: r.AssetID, Bids: bids, Asks: asks}, nil
}

func parseLevels(raw []rawLevel) ([]Level, error) {
	levels := make([]Level, 0, len(raw))
	for _, l := range raw {
		p, err := strconv.ParseFloat(l.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", l.Price, err)
		}
		s, err := strconv.ParseFloat(l.Size, 64)
		if err != nil {
			return nil, fmt.Errorf("size %q: %w", l.Size, err)
		}
		levels = append(levels, Level{Price: p, Size: s})
	}
	return levels, nil
}
