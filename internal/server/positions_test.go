package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polydelta/internal/fees"
	"polydelta/internal/positions"
)

func addPosition(t *testing.T, env *testEnv, body map[string]any) positions.Position {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/v1/positions", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[positions.Position](t, rec)
}

func TestPositionLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	pos := addPosition(t, env, map[string]any{
		"sport": "nba", "event_id": "nba-2026", "outcome": "Celtics",
		"entry_price": 15, "investment": 1000, "token_id": "tok",
	})
	assert.NotEmpty(t, pos.ID)
	assert.Equal(t, 0.15, pos.EntryPrice)
	assert.Equal(t, fees.OrderTaker, pos.OrderType)
	assert.Equal(t, fees.DefaultGas, pos.Gas)

	addPosition(t, env, map[string]any{
		"sport": "epl", "event_id": "m1", "outcome": "Chelsea",
		"entry_price": 0.2, "investment": 50, "order_type": "limit",
	})

	rec := env.do(t, http.MethodGet, "/api/v1/positions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]positions.Position](t, rec), 2)

	rec = env.do(t, http.MethodGet, "/api/v1/positions?sport=epl", nil)
	list := decodeBody[[]positions.Position](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, fees.OrderMaker, list[0].OrderType)

	rec = env.do(t, http.MethodDelete, "/api/v1/positions/"+pos.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/v1/positions/"+pos.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddPositionValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"Missing outcome", map[string]any{"event_id": "e", "entry_price": 0.2, "investment": 10}},
		{"No entry price", map[string]any{"event_id": "e", "outcome": "x", "investment": 10}},
		{"Investment below gas", map[string]any{"event_id": "e", "outcome": "x", "entry_price": 0.2, "investment": 0.01}},
		{"Bad order type", map[string]any{"event_id": "e", "outcome": "x", "entry_price": 0.2, "investment": 10, "order_type": "stop"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/positions", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPositionCashOut(t *testing.T) {
	env := newTestEnv(t, nil)
	pos := addPosition(t, env, map[string]any{
		"sport": "nba", "event_id": "nba-2026", "outcome": "Celtics",
		"entry_price": 0.15, "investment": 1000, "token_id": "tok",
	})

	rec := env.do(t, http.MethodGet, "/api/v1/positions/"+pos.ID+"/cashout?price=0.40", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[positionCashOut](t, rec)
	assert.Equal(t, positions.ActionTakeProfit, got.Action)
	assert.InDelta(t, 6535.6, got.Plan.Shares, 0.1)
	require.NotNil(t, got.Liquidity)
	assert.Equal(t, 500.0, *got.Liquidity)
	assert.True(t, got.LiquidityWarning)

	// Without ?price= the store row for the Celtics (0.25) is used.
	rec = env.do(t, http.MethodGet, "/api/v1/positions/"+pos.ID+"/cashout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeBody[positionCashOut](t, rec)
	assert.Equal(t, 0.25, got.Plan.CurrentPrice)

	rec = env.do(t, http.MethodGet, "/api/v1/positions/"+pos.ID+"/cashout?price=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/positions/missing/cashout?price=0.4", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPositionCashOutWithoutPrice(t *testing.T) {
	env := newTestEnv(t, nil)
	pos := addPosition(t, env, map[string]any{
		"sport": "nba", "event_id": "nba-2026", "outcome": "Lakers",
		"entry_price": 0.15, "investment": 100,
	})

	rec := env.do(t, http.MethodGet, "/api/v1/positions/"+pos.ID+"/cashout", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPositionsDisabled(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Positions = nil })

	rec := env.do(t, http.MethodGet, "/api/v1/positions", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
