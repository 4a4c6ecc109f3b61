package analysis

import (
	"testing"

	"polydelta/internal/fees"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var takerFee = fees.Model{Gas: 0.05, Rate: 0.02}

func TestKelly(t *testing.T) {
	policy := DefaultKellyPolicy()

	tests := []struct {
		name     string
		winProb  float64
		price    float64
		bankroll float64
		risk     float64
		fee      fees.Model
		status   KellyStatus
	}{
		{"Positive edge", 0.60, 0.45, 1000, 0.25, takerFee, KellyOK},
		{"Confidence below price", 0.40, 0.45, 1000, 0.25, takerFee, KellyNegativeEV},
		{"Price near certainty with fees", 0.99, 0.99, 1000, 0.25, takerFee, KellyLoss},
		{"Missing price", 0.60, 0, 1000, 0.25, takerFee, KellyInsufficientData},
		{"Price above one", 0.60, 1.5, 1000, 0.25, takerFee, KellyInsufficientData},
		{"Negative bankroll", 0.60, 0.45, -1, 0.25, takerFee, KellyInsufficientData},
		{"Probability above one", 1.2, 0.45, 1000, 0.25, takerFee, KellyInsufficientData},
		{"Zero risk fraction", 0.60, 0.45, 1000, 0, takerFee, KellyInsufficientData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Kelly(tt.winProb, tt.price, tt.bankroll, tt.risk, tt.fee, policy)
			assert.Equal(t, tt.status, rec.Status)
			assert.Equal(t, tt.status.Message(), rec.Message)
			if tt.status != KellyOK {
				assert.Zero(t, rec.Stake)
			}
		})
	}
}

func TestKellyStatusesHaveDistinctMessages(t *testing.T) {
	assert.NotEqual(t, KellyNegativeEV.Message(), KellyLoss.Message())
}

func TestKellyValues(t *testing.T) {
	rec := Kelly(0.60, 0.45, 1000, 0.25, takerFee, DefaultKellyPolicy())
	require.Equal(t, KellyOK, rec.Status)

	shares := 99.95 / (0.45 * 1.02)
	b := (shares - 100) / 100
	raw := (b*0.60 - 0.40) / b

	assert.InDelta(t, b, rec.NetOdds, 1e-12)
	assert.InDelta(t, 0.60*(1+b)-1, rec.Edge, 1e-12)
	assert.InDelta(t, raw*100, rec.RawKellyPct, 1e-9)
	assert.InDelta(t, raw*25, rec.AdjustedPct, 1e-9)
	assert.InDelta(t, raw*0.25*1000, rec.Stake, 1e-9)
	assert.False(t, rec.Capped)
}

func TestKellyLossRegardlessOfConfidence(t *testing.T) {
	for _, p := range []float64{0, 0.5, 0.99, 1} {
		rec := Kelly(p, 0.99, 1000, 0.5, takerFee, DefaultKellyPolicy())
		assert.Equal(t, KellyLoss, rec.Status, "p=%v", p)
		assert.LessOrEqual(t, rec.NetOdds, 0.0)
	}
}

func TestKellyBreakeven(t *testing.T) {
	b := NetOdds(0.45, takerFee, 100)
	require.Greater(t, b, 0.0)

	rec := Kelly(1/(1+b), 0.45, 1000, 0.25, takerFee, DefaultKellyPolicy())
	assert.InDelta(t, 0, rec.RawKellyPct, 1e-9)
	assert.InDelta(t, 0, rec.Edge, 1e-12)
	assert.InDelta(t, 0, rec.Stake, 1e-9)
}

func TestKellyCap(t *testing.T) {
	policy := DefaultKellyPolicy()

	for _, risk := range []float64{policy.Conservative, policy.Aggressive} {
		rec := Kelly(0.95, 0.30, 5000, risk, takerFee, policy)
		require.Equal(t, KellyOK, rec.Status)
		require.Greater(t, rec.AdjustedPct, 20.0)
		assert.True(t, rec.Capped)
		assert.InDelta(t, 20, rec.StakePct, 1e-12)
		assert.LessOrEqual(t, rec.Stake, 0.20*5000)
	}
}

func TestKellyPolicyFraction(t *testing.T) {
	p := DefaultKellyPolicy()
	assert.Equal(t, 0.25, p.Fraction(RiskConservative))
	assert.Equal(t, 0.50, p.Fraction(RiskAggressive))
	assert.Equal(t, 0.25, p.Fraction("unknown"))
}

func TestLiquidityWarning(t *testing.T) {
	liq := 150.0
	assert.True(t, LiquidityWarning(200, &liq))
	assert.False(t, LiquidityWarning(150, &liq))
	assert.False(t, LiquidityWarning(1e9, nil))
}
