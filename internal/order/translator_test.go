package order

import (
	"testing"

	"alphadesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decision(action types.Action, qty int, conf float64) types.TradingDecision {
	return types.TradingDecision{Action: action, Quantity: qty, Confidence: conf}
}

func TestTranslateBacktestAttachesNothing(t *testing.T) {
	tr := NewTranslator(false)
	got, err := tr.Translate("AAPL", decision(types.ActionBuy, 100, 95), 150)
	require.NoError(t, err)
	assert.Nil(t, got.Order)
}

func TestTranslateLiveLimitBuy(t *testing.T) {
	tr := NewTranslator(true)
	got, err := tr.Translate("AAPL", decision(types.ActionBuy, 100, 75), 100.00)
	require.NoError(t, err)
	require.NotNil(t, got.Order)
	assert.Equal(t, types.OrderTypeLimit, got.Order.Type)
	require.NotNil(t, got.Order.LimitPrice)
	assert.InDelta(t, 99.00, *got.Order.LimitPrice, 1e-9)
	assert.Equal(t, types.TimeInForceDay, got.Order.TimeInForce)
	assert.Equal(t, 100, got.Order.Qty)
}

func TestTranslateLiveLimitSell(t *testing.T) {
	tr := NewTranslator(true)
	got, err := tr.Translate("MSFT", decision(types.ActionSell, 40, 72), 250.10)
	require.NoError(t, err)
	require.NotNil(t, got.Order)
	assert.Equal(t, types.OrderTypeLimit, got.Order.Type)
	require.NotNil(t, got.Order.LimitPrice)
	assert.InDelta(t, 252.60, *got.Order.LimitPrice, 1e-9)
}

func TestTranslateLiveMarketOnHighConfidence(t *testing.T) {
	tr := NewTranslator(true)
	for _, conf := range []float64{80, 85, 100} {
		got, err := tr.Translate("NVDA", decision(types.ActionBuy, 10, conf), 500)
		require.NoError(t, err)
		require.NotNil(t, got.Order)
		assert.Equal(t, types.OrderTypeMarket, got.Order.Type)
		assert.Nil(t, got.Order.LimitPrice)
	}
}

func TestTranslateLiveNeedsPrice(t *testing.T) {
	tr := NewTranslator(true)
	_, err := tr.Translate("ZIM", decision(types.ActionBuy, 10, 90), 0)
	assert.Error(t, err)
}

func TestTranslateHoldPassesThrough(t *testing.T) {
	tr := NewTranslator(true)
	got, err := tr.Translate("HPE", types.Hold("no conviction"), 20)
	require.NoError(t, err)
	assert.Nil(t, got.Order)
	assert.Equal(t, types.ActionHold, got.Action)
}

func TestOrderSpecValidate(t *testing.T) {
	price := 10.0
	cases := []struct {
		name    string
		spec    types.OrderSpec
		wantErr bool
	}{
		{"valid limit", types.OrderSpec{Symbol: "A", Qty: 1, Side: types.ActionBuy, Type: types.OrderTypeLimit, LimitPrice: &price}, false},
		{"valid market", types.OrderSpec{Symbol: "A", Qty: 1, Side: types.ActionSell, Type: types.OrderTypeMarket}, false},
		{"limit without price", types.OrderSpec{Symbol: "A", Qty: 1, Side: types.ActionBuy, Type: types.OrderTypeLimit}, true},
		{"zero qty", types.OrderSpec{Symbol: "A", Qty: 0, Side: types.ActionBuy, Type: types.OrderTypeMarket}, true},
		{"missing symbol", types.OrderSpec{Qty: 1, Side: types.ActionBuy, Type: types.OrderTypeMarket}, true},
		{"hold side", types.OrderSpec{Symbol: "A", Qty: 1, Side: types.ActionHold, Type: types.OrderTypeMarket}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.spec.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
