package positions

import (
	"testing"
	"time"

	"polydelta/internal/fees"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPositionCRUD(t *testing.T) {
	db := newTestDB(t)

	stored, err := db.AddPosition(Position{
		Sport:      "nba",
		EventID:    "nba-champion-2026",
		Outcome:    "Boston Celtics",
		EntryPrice: 0.15,
		Investment: 1000,
		Gas:        0.05,
	})
	require.NoError(t, err)
	assert.Len(t, stored.ID, 36)
	assert.Equal(t, fees.OrderTaker, stored.OrderType)

	got, err := db.GetPosition(stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Boston Celtics", got.Outcome)
	assert.Equal(t, 0.15, got.EntryPrice)
	assert.Equal(t, fees.OrderTaker, got.OrderType)
	assert.Equal(t, 0.02, got.Fee(fees.DefaultRates).Rate)

	_, err = db.AddPosition(Position{
		Sport: "epl", EventID: "m1", Outcome: "home", EntryPrice: 0.5, Investment: 20,
		OrderType: fees.OrderMaker, CreatedAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	all, err := db.GetAllPositions()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "epl", all[0].Sport)

	nba, err := db.GetPositionsBySport("nba")
	require.NoError(t, err)
	require.Len(t, nba, 1)

	require.NoError(t, db.DeletePosition(stored.ID))
	_, err = db.GetPosition(stored.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeletePosition(stored.ID), ErrNotFound)
}

func TestPositionValidate(t *testing.T) {
	valid := Position{EventID: "e", Outcome: "o", EntryPrice: 0.4, Investment: 10, Gas: 0.05}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.EntryPrice = 0
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Investment = 0.05
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Outcome = ""
	assert.Error(t, bad.Validate())
}
