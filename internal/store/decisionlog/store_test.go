package decisionlog

import (
	"context"
	"path/filepath"
	"testing"

	"alphadesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "decisions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	limit := 99.0
	id, err := store.Append(ctx, Entry{
		TS:         1700000000,
		Ticker:     "AAPL",
		Action:     "buy",
		Quantity:   100,
		Confidence: 85,
		Reasoning:  "bullish 85.0%",
		Policy:     "rules",
		Mode:       "live",
		Signals: types.SignalBundle{
			"fundamentals_agent": {Direction: types.Bullish, Confidence: 80},
		},
		Order: &types.OrderSpec{
			Symbol:      "AAPL",
			Qty:         100,
			Side:        types.ActionBuy,
			Type:        types.OrderTypeLimit,
			TimeInForce: types.TimeInForceDay,
			LimitPrice:  &limit,
		},
		Execution: &types.ExecutionResult{Status: types.ExecutionSuccess, OrderID: "ord-1"},
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = store.Append(ctx, Entry{TS: 1700000100, Ticker: "MSFT", Action: "hold", Mode: "live"})
	require.NoError(t, err)

	entries, err := store.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// newest first
	assert.Equal(t, "MSFT", entries[0].Ticker)

	got := entries[1]
	assert.Equal(t, "buy", got.Action)
	assert.Equal(t, 100, got.Quantity)
	require.NotNil(t, got.Order)
	assert.Equal(t, types.OrderTypeLimit, got.Order.Type)
	require.NotNil(t, got.Order.LimitPrice)
	assert.InDelta(t, 99.0, *got.Order.LimitPrice, 1e-9)
	require.NotNil(t, got.Execution)
	assert.Equal(t, types.ExecutionSuccess, got.Execution.Status)
	assert.Equal(t, types.Bullish, got.Signals["fundamentals_agent"].Direction)
}

func TestListFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, e := range []Entry{
		{TS: 1, Ticker: "AAPL", Action: "buy"},
		{TS: 2, Ticker: "AAPL", Action: "sell"},
		{TS: 3, Ticker: "MSFT", Action: "buy"},
	} {
		_, err := store.Append(ctx, e)
		require.NoError(t, err)
	}

	entries, err := store.List(ctx, Query{Ticker: "aapl"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = store.List(ctx, Query{Action: "buy"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = store.List(ctx, Query{Ticker: "AAPL", Action: "sell"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].TS)

	entries, err = store.List(ctx, Query{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].TS)
}

func TestEmptyPathRejected(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
