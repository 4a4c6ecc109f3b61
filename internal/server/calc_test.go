package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polydelta/internal/analysis"
	"polydelta/internal/positions"
)

func TestCalcEV(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/calc/ev", map[string]any{"reference": 30, "market": 0.25})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[evResponse](t, rec)
	assert.Equal(t, 0.3, got.Reference)
	assert.Equal(t, 20.0, got.EV)
	assert.Equal(t, analysis.SignalUndervalued, got.Signal)

	rec = env.do(t, http.MethodPost, "/api/v1/calc/ev", map[string]any{"reference": -150, "market": 0.5, "american": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20.0, decodeBody[evResponse](t, rec).EV)

	rec = env.do(t, http.MethodPost, "/api/v1/calc/ev", map[string]any{"reference": 0, "market": 0.25})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "insufficient_data", decodeBody[map[string]string](t, rec)["status"])
}

func TestCalcKelly(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		body   map[string]any
		code   int
		status analysis.KellyStatus
	}{
		{"Positive edge", map[string]any{"win_probability": 0.30, "market_price": 0.25, "bankroll": 1000}, http.StatusOK, analysis.KellyOK},
		{"Percent inputs", map[string]any{"win_probability": 30, "market_price": 25}, http.StatusOK, analysis.KellyOK},
		{"Negative EV", map[string]any{"win_probability": 0.40, "market_price": 0.50}, http.StatusOK, analysis.KellyNegativeEV},
		{"Missing price", map[string]any{"win_probability": 0.40, "market_price": 0}, http.StatusUnprocessableEntity, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/calc/kelly", tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.code != http.StatusOK {
				return
			}
			got := decodeBody[analysis.KellyRecommendation](t, rec)
			assert.Equal(t, tt.status, got.Status)
			assert.NotEmpty(t, got.Message)
			if tt.status == analysis.KellyOK {
				assert.Greater(t, got.Stake, 0.0)
			} else {
				assert.Equal(t, 0.0, got.Stake)
			}
		})
	}
}

func TestCalcKellyValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/calc/kelly", map[string]any{"win_probability": 0.3, "market_price": 0.25, "risk_mode": "yolo"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/calc/kelly", map[string]any{"win_probability": 0.3, "market_price": 0.25, "order_type": "stop"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalcKellyLiquidityWarning(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/calc/kelly", map[string]any{
		"win_probability": 0.30, "market_price": 0.25, "bankroll": 100000, "liquidity": 10,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[analysis.KellyRecommendation](t, rec).LiquidityWarned)

	// Depth comes from the order book when only a token is given.
	rec = env.do(t, http.MethodPost, "/api/v1/calc/kelly", map[string]any{
		"win_probability": 0.30, "market_price": 0.25, "bankroll": 100000, "token_id": "tok",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[analysis.KellyRecommendation](t, rec).LiquidityWarned)

	rec = env.do(t, http.MethodPost, "/api/v1/calc/kelly", map[string]any{
		"win_probability": 0.30, "market_price": 0.25, "bankroll": 1000, "token_id": "tok",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[analysis.KellyRecommendation](t, rec).LiquidityWarned)
}

func TestCalcHedge(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/calc/hedge", map[string]any{
		"total": 900,
		"leg_a": map[string]any{"venue": "book", "outcome": "yes", "prob": 40},
		"leg_b": map[string]any{"venue": "poly", "outcome": "no", "prob": 0.5},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	h := decodeBody[analysis.HedgeAllocation](t, rec)
	assert.Equal(t, 400.0, h.Stake1)
	assert.Equal(t, 500.0, h.Stake2)
	assert.Equal(t, 1000.0, h.GuaranteedReturn)
	assert.Equal(t, 11.11, h.ROI)
	assert.True(t, h.IsArbitrage)

	rec = env.do(t, http.MethodPost, "/api/v1/calc/hedge", map[string]any{
		"total": 100,
		"match": map[string]any{"a_home": 1 / 1.5, "b_away": 1 / 1.5, "a_away": 0.2, "b_home": 0.2},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	h = decodeBody[analysis.HedgeAllocation](t, rec)
	assert.Equal(t, "away", h.Leg1.Outcome)
	assert.Equal(t, "home", h.Leg2.Outcome)

	rec = env.do(t, http.MethodPost, "/api/v1/calc/hedge", map[string]any{"total": 100})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/calc/hedge", map[string]any{
		"leg_a": map[string]any{"prob": 0}, "leg_b": map[string]any{"prob": 0.5},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCalcROI(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/calc/roi", map[string]any{"reference": 0.30, "market": 0.25, "investment": 100})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[analysis.NetROIResult](t, rec)
	assert.Equal(t, 100.0, got.Investment)
	assert.Empty(t, got.Market.Error)
	if got.Market.ROI > got.Traditional.ROI {
		assert.Equal(t, analysis.PlatformPolymarket, got.Better)
	} else {
		assert.Equal(t, analysis.PlatformTraditional, got.Better)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/calc/roi", map[string]any{"reference": 0.30, "market": 0.25, "investment": 1, "gas": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeBody[analysis.NetROIResult](t, rec)
	assert.Equal(t, analysis.ErrCapitalAfterGas, got.Market.Error)
	assert.Equal(t, -100.0, got.Market.ROI)

	rec = env.do(t, http.MethodPost, "/api/v1/calc/roi", map[string]any{"reference": 0.30})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCalcCashOut(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/calc/cashout", map[string]any{
		"entry_price": 0.15, "current_price": 0.40, "investment": 1000,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	plan := decodeBody[positions.CashOutPlan](t, rec)
	assert.InDelta(t, 6535.6, plan.Shares, 0.1)
	assert.InDelta(t, 2551.0, plan.FreeRoll.SharesToSell, 0.1)
	assert.True(t, plan.FreeRoll.CanFreeRoll)

	rec = env.do(t, http.MethodPost, "/api/v1/calc/cashout", map[string]any{"entry_price": 0.15, "investment": 1000})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCalcDevig(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/calc/devig", map[string]any{"probabilities": []float64{55, 50}})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[devigResponse](t, rec)
	assert.Equal(t, "multiplicative", got.Method)
	assert.Equal(t, []float64{0.5238, 0.4762}, got.Fair)
	assert.Equal(t, 5.0, got.Overround)

	rec = env.do(t, http.MethodPost, "/api/v1/calc/devig", map[string]any{"american": []int{-110, -110}, "method": "power"})
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeBody[devigResponse](t, rec)
	assert.InDelta(t, 0.5, got.Fair[0], 1e-4)

	rec = env.do(t, http.MethodPost, "/api/v1/calc/devig", map[string]any{"probabilities": []float64{0.5, 0.3, 0.3}, "method": "power"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/calc/devig", map[string]any{"probabilities": []float64{0.5}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
