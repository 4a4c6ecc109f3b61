package polymarket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDepthWithin(t *testing.T) {
	asks := []Level{
		{Price: 0.43, Size: 100}, // outside band
		{Price: 0.41, Size: 200},
		{Price: 0.40, Size: 100},
		{Price: 0.42, Size: 50}, // on the boundary
	}
	bids := []Level{
		{Price: 0.37, Size: 1000}, // outside
		{Price: 0.39, Size: 100},
		{Price: 0.38, Size: 10},
	}

	tests := []struct {
		name     string
		levels   []Level
		side     Side
		expected float64
	}{
		{"Buy walks asks up", asks, SideBuy, 0.40*100 + 0.41*200 + 0.42*50},
		{"Sell walks bids down", bids, SideSell, 0.39*100 + 0.38*10},
		{"Empty book", nil, SideBuy, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, DepthWithin(tt.levels, 0.40, tt.side, DefaultBand), 1e-9)
		})
	}

	assert.Zero(t, DepthWithin(asks, 0, SideBuy, DefaultBand))
}

func TestOrderBookDepthWithin(t *testing.T) {
	book := &OrderBook{
		Bids: []Level{{Price: 0.49, Size: 10}},
		Asks: []Level{{Price: 0.51, Size: 20}},
	}
	assert.InDelta(t, 10.2, book.DepthWithin(0.50, SideBuy, DefaultBand), 1e-9)
	assert.InDelta(t, 4.9, book.DepthWithin(0.50, SideSell, DefaultBand), 1e-9)
}

func TestParseLevels(t *testing.T) {
	levels, err := parseLevels([]rawLevel{{Price: "0.45", Size: "120.5"}})
	assert.NoError(t, err)
	assert.Equal(t, []Level{{Price: 0.45, Size: 120.5}}, levels)

	_, err = parseLevels([]rawLevel{{Price: "abc", Size: "1"}})
	assert.Error(t, err)
}
