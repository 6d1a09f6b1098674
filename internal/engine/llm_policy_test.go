package engine

import (
	"context"
	"errors"
	"testing"

	"alphadesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	response string
	err      error
	lastUser string
}

func (s *stubCompleter) Complete(_ context.Context, _, _, userPrompt string) (string, error) {
	s.lastUser = userPrompt
	return s.response, s.err
}

func llmInput() Input {
	return Input{
		Ticker:        "AAPL",
		Aggregated:    types.AggregatedConfidence{Direction: types.Bullish, Confidence: 85},
		Bundle:        types.SignalBundle{"fundamentals_agent": {Direction: types.Bullish, Confidence: 80}},
		Envelope:      types.RiskEnvelope{RemainingLimit: 20000, CurrentPrice: 100, MaxShares: 200},
		CurrentShares: 50,
		Portfolio:     types.PortfolioSnapshot{Cash: 50000},
	}
}

func TestLLMPolicyDecide(t *testing.T) {
	t.Run("well-formed completion passes through", func(t *testing.T) {
		oracle := &stubCompleter{response: `{"action":"buy","quantity":100,"confidence":82,"reasoning":"strong committee"}`}
		policy, err := NewLLMPolicy(oracle)
		require.NoError(t, err)

		got, err := policy.Decide(context.Background(), llmInput())
		require.NoError(t, err)
		assert.Equal(t, types.ActionBuy, got.Action)
		assert.Equal(t, 100, got.Quantity)
		assert.InDelta(t, 82.0, got.Confidence, 1e-9)
		assert.Contains(t, oracle.lastUser, "AAPL")
		assert.Contains(t, oracle.lastUser, "fundamentals_agent")
	})

	t.Run("fenced completion is unwrapped", func(t *testing.T) {
		oracle := &stubCompleter{response: "Here you go:\n```json\n{\"action\":\"sell\",\"quantity\":30,\"confidence\":75}\n```"}
		policy, err := NewLLMPolicy(oracle)
		require.NoError(t, err)

		got, err := policy.Decide(context.Background(), llmInput())
		require.NoError(t, err)
		assert.Equal(t, types.ActionSell, got.Action)
		assert.Equal(t, 30, got.Quantity)
	})

	t.Run("buy clamps to max shares", func(t *testing.T) {
		oracle := &stubCompleter{response: `{"action":"buy","quantity":5000,"confidence":90}`}
		policy, err := NewLLMPolicy(oracle)
		require.NoError(t, err)

		got, err := policy.Decide(context.Background(), llmInput())
		require.NoError(t, err)
		assert.Equal(t, 200, got.Quantity)
	})

	t.Run("sell clamps to held shares", func(t *testing.T) {
		oracle := &stubCompleter{response: `{"action":"sell","quantity":400,"confidence":90}`}
		policy, err := NewLLMPolicy(oracle)
		require.NoError(t, err)

		got, err := policy.Decide(context.Background(), llmInput())
		require.NoError(t, err)
		assert.Equal(t, 50, got.Quantity)
	})

	t.Run("oracle failure degrades to hold", func(t *testing.T) {
		oracle := &stubCompleter{err: errors.New("timeout")}
		policy, err := NewLLMPolicy(oracle)
		require.NoError(t, err)

		got, err := policy.Decide(context.Background(), llmInput())
		require.NoError(t, err)
		assert.Equal(t, types.ActionHold, got.Action)
		assert.Contains(t, got.Reasoning, "defaulting to hold")
	})

	t.Run("schema violation degrades to hold", func(t *testing.T) {
		oracle := &stubCompleter{response: `{"action":"yolo","quantity":-5}`}
		policy, err := NewLLMPolicy(oracle)
		require.NoError(t, err)

		got, err := policy.Decide(context.Background(), llmInput())
		require.NoError(t, err)
		assert.Equal(t, types.ActionHold, got.Action)
	})

	t.Run("prose without JSON degrades to hold", func(t *testing.T) {
		oracle := &stubCompleter{response: "I think you should buy a lot."}
		policy, err := NewLLMPolicy(oracle)
		require.NoError(t, err)

		got, err := policy.Decide(context.Background(), llmInput())
		require.NoError(t, err)
		assert.Equal(t, types.ActionHold, got.Action)
	})
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"no object here", ""},
		{`prefix {"a":1} suffix`, `{"a":1}`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, extractJSONObject(tc.in))
	}
}
