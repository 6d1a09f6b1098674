package alpaca

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"alphadesk/internal/config"
	"alphadesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(config.BrokerConfig{
		APIURL:         srv.URL,
		APIKey:         "key-id",
		APISecret:      "secret",
		TimeoutSeconds: 5,
	})
	require.NoError(t, err)
	return client
}

func TestGetAccount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/account", r.URL.Path)
		assert.Equal(t, "key-id", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "secret", r.Header.Get("APCA-API-SECRET-KEY"))
		w.Write([]byte(`{"cash":"25000.50","buying_power":"50001.00","equity":"75000"}`))
	})

	account, err := client.GetAccount(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 25000.50, account.Cash, 1e-9)
	assert.InDelta(t, 50001.00, account.BuyingPower, 1e-9)
	assert.InDelta(t, 75000.0, account.Equity, 1e-9)
}

func TestGetAllPositions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/positions", r.URL.Path)
		w.Write([]byte(`[
			{"symbol":"AAPL","qty":"100","cost_basis":"15000","market_value":"17000"},
			{"symbol":"MSFT","qty":"10","cost_basis":"3000","market_value":"3100"}
		]`))
	})

	positions, err := client.GetAllPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "AAPL", positions[0].Symbol)
	assert.Equal(t, 100, positions[0].Qty)
	assert.InDelta(t, 15000.0, positions[0].CostBasis, 1e-9)
}

func TestSubmitOrder(t *testing.T) {
	t.Run("limit order carries formatted price", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/orders", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)

			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "AAPL", payload["symbol"])
			assert.Equal(t, "100", payload["qty"])
			assert.Equal(t, "buy", payload["side"])
			assert.Equal(t, "limit", payload["type"])
			assert.Equal(t, "day", payload["time_in_force"])
			assert.Equal(t, "99.00", payload["limit_price"])

			w.Write([]byte(`{"id":"ord-1","status":"accepted","filled_qty":"0","filled_avg_price":""}`))
		})

		limit := 99.0
		receipt, err := client.SubmitOrder(context.Background(), types.OrderSpec{
			Symbol:      "AAPL",
			Qty:         100,
			Side:        types.ActionBuy,
			Type:        types.OrderTypeLimit,
			TimeInForce: types.TimeInForceDay,
			LimitPrice:  &limit,
		})
		require.NoError(t, err)
		assert.Equal(t, "ord-1", receipt.ID)
		assert.Equal(t, "accepted", receipt.Status)
	})

	t.Run("venue rejection surfaces the body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"insufficient buying power"}`, http.StatusForbidden)
		})
		_, err := client.SubmitOrder(context.Background(), types.OrderSpec{
			Symbol:      "AAPL",
			Qty:         100,
			Side:        types.ActionBuy,
			Type:        types.OrderTypeMarket,
			TimeInForce: types.TimeInForceDay,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insufficient buying power")
	})

	t.Run("invalid spec is rejected before the wire", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected")
		})
		_, err := client.SubmitOrder(context.Background(), types.OrderSpec{
			Symbol: "AAPL",
			Qty:    0,
			Side:   types.ActionBuy,
		})
		assert.Error(t, err)
	})
}

func TestNewClientValidations(t *testing.T) {
	_, err := NewClient(config.BrokerConfig{})
	assert.Error(t, err)
}
