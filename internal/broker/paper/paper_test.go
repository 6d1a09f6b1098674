package paper

import (
	"context"
	"errors"
	"testing"

	"alphadesk/internal/portfolio"
	"alphadesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedPrice(price float64) PriceFunc {
	return func(context.Context, string) (float64, error) { return price, nil }
}

func TestSubmitOrder(t *testing.T) {
	t.Run("market buy fills at reference price", func(t *testing.T) {
		state := portfolio.NewState(100000)
		b := New(state, fixedPrice(150))

		receipt, err := b.SubmitOrder(context.Background(), types.OrderSpec{
			Symbol:      "AAPL",
			Qty:         100,
			Side:        types.ActionBuy,
			Type:        types.OrderTypeMarket,
			TimeInForce: types.TimeInForceDay,
		})
		require.NoError(t, err)
		assert.Equal(t, "filled", receipt.Status)
		assert.Equal(t, 100, receipt.FilledQty)
		assert.InDelta(t, 150.0, receipt.FilledAvgPrice, 1e-9)
		assert.NotEmpty(t, receipt.ID)

		snap := state.Snapshot()
		assert.Equal(t, 100, snap.Positions["AAPL"])
		assert.InDelta(t, 85000.0, snap.Cash, 1e-9)
	})

	t.Run("limit order fills at limit price", func(t *testing.T) {
		state := portfolio.NewState(100000)
		b := New(state, fixedPrice(150))

		limit := 148.50
		receipt, err := b.SubmitOrder(context.Background(), types.OrderSpec{
			Symbol:      "AAPL",
			Qty:         10,
			Side:        types.ActionBuy,
			Type:        types.OrderTypeLimit,
			TimeInForce: types.TimeInForceDay,
			LimitPrice:  &limit,
		})
		require.NoError(t, err)
		assert.InDelta(t, 148.50, receipt.FilledAvgPrice, 1e-9)
	})

	t.Run("sell without position fails", func(t *testing.T) {
		b := New(portfolio.NewState(1000), fixedPrice(150))
		_, err := b.SubmitOrder(context.Background(), types.OrderSpec{
			Symbol:      "AAPL",
			Qty:         10,
			Side:        types.ActionSell,
			Type:        types.OrderTypeMarket,
			TimeInForce: types.TimeInForceDay,
		})
		assert.Error(t, err)
	})

	t.Run("buy with no cash fails", func(t *testing.T) {
		b := New(portfolio.NewState(10), fixedPrice(150))
		_, err := b.SubmitOrder(context.Background(), types.OrderSpec{
			Symbol:      "AAPL",
			Qty:         10,
			Side:        types.ActionBuy,
			Type:        types.OrderTypeMarket,
			TimeInForce: types.TimeInForceDay,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insufficient cash")
	})

	t.Run("price source failure propagates", func(t *testing.T) {
		b := New(portfolio.NewState(1000), func(context.Context, string) (float64, error) {
			return 0, errors.New("feed down")
		})
		_, err := b.SubmitOrder(context.Background(), types.OrderSpec{
			Symbol:      "AAPL",
			Qty:         1,
			Side:        types.ActionBuy,
			Type:        types.OrderTypeMarket,
			TimeInForce: types.TimeInForceDay,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "feed down")
	})
}

func TestAccountAndPositions(t *testing.T) {
	state := portfolio.NewState(50000)
	b := New(state, fixedPrice(100))

	_, err := b.SubmitOrder(context.Background(), types.OrderSpec{
		Symbol:      "MSFT",
		Qty:         50,
		Side:        types.ActionBuy,
		Type:        types.OrderTypeMarket,
		TimeInForce: types.TimeInForceDay,
	})
	require.NoError(t, err)

	account, err := b.GetAccount(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 45000.0, account.Cash, 1e-9)

	positions, err := b.GetAllPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "MSFT", positions[0].Symbol)
	assert.Equal(t, 50, positions[0].Qty)

	fills := b.Fills()
	require.Len(t, fills, 1)
	assert.Equal(t, types.ActionBuy, fills[0].Side)
}
