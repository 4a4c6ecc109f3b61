package fees

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectivePrices(t *testing.T) {
	assert.InDelta(t, 0.153, EffectiveCost(0.15, 0.02), 1e-12)
	assert.InDelta(t, 0.392, EffectiveProceeds(0.40, 0.02), 1e-12)
	assert.Equal(t, 0.5, EffectiveCost(0.5, 0))
}

func TestCapitalAfterGas(t *testing.T) {
	tests := []struct {
		name       string
		investment float64
		gas        float64
		expected   float64
		ok         bool
	}{
		{"Normal", 100, 0.05, 99.95, true},
		{"Gas equals investment", 0.05, 0.05, 0, false},
		{"Gas exceeds investment", 0.01, 0.05, 0, false},
		{"No gas", 10, 0, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capital, ok := CapitalAfterGas(tt.investment, tt.gas)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.expected, capital, 1e-9)
		})
	}
}

func TestForOrder(t *testing.T) {
	taker := DefaultRates.ForOrder(OrderTaker, DefaultGas)
	assert.Equal(t, 0.02, taker.Rate)
	assert.Equal(t, 0.05, taker.Gas)

	maker := DefaultRates.ForOrder(OrderMaker, DefaultGas)
	assert.Equal(t, 0.0, maker.Rate)

	custom := Rates{Taker: 0.01, Maker: 0.005}.ForOrder(OrderMaker, 0)
	assert.Equal(t, Model{Rate: 0.005}, custom)
}

func TestParseOrderType(t *testing.T) {
	for in, want := range map[string]OrderType{
		"": OrderTaker, "market": OrderTaker, "taker": OrderTaker,
		"limit": OrderMaker, "maker": OrderMaker,
	} {
		got, err := ParseOrderType(in)
		assert.NoError(t, err)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseOrderType("stop")
	assert.Error(t, err)
}

func TestShares(t *testing.T) {
	m := Model{Gas: 0.05, Rate: 0.02}
	assert.InDelta(t, 999.95/0.153, m.Shares(1000, 0.15), 1e-9)
	assert.Zero(t, m.Shares(0.05, 0.15))
	assert.Zero(t, m.Shares(100, 0))
}
