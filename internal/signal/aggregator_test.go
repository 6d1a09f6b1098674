package signal

import (
	"testing"

	"alphadesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAggregator(t *testing.T) *Aggregator {
	t.Helper()
	reg, err := NewWeightsRegistry("")
	require.NoError(t, err)
	return NewAggregator(reg)
}

func TestAggregateNilBundle(t *testing.T) {
	agg := newTestAggregator(t)
	_, err := agg.Aggregate(nil)
	assert.ErrorIs(t, err, ErrInvalidBundle)
}

func TestAggregateAllNeutral(t *testing.T) {
	agg := newTestAggregator(t)
	bundle := types.SignalBundle{
		"fundamentals_agent": {Direction: types.Neutral, Confidence: 80},
		"sentiment_agent":    {Direction: types.Neutral, Confidence: 55},
	}
	got, err := agg.Aggregate(bundle)
	require.NoError(t, err)
	assert.Equal(t, types.Bullish, got.Direction)
	assert.Zero(t, got.Confidence)
}

func TestAggregateSingleProducer(t *testing.T) {
	agg := newTestAggregator(t)
	cases := []struct {
		name      string
		producer  string
		direction types.Direction
	}{
		{"fundamentals bullish", "fundamentals_agent", types.Bullish},
		{"technical bearish", "technical_analyst_agent", types.Bearish},
		{"sentiment bullish", "sentiment", types.Bullish},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bundle := types.SignalBundle{tc.producer: {Direction: tc.direction, Confidence: 72.5}}
			got, err := agg.Aggregate(bundle)
			require.NoError(t, err)
			// With one producer the weight renormalizes to 1.0 and the
			// participation scale-down is a no-op.
			assert.InDelta(t, 72.5, got.Confidence, 1e-9)
			assert.Equal(t, tc.direction, got.Direction)
		})
	}
}

func TestAggregateWeightedMajority(t *testing.T) {
	agg := newTestAggregator(t)
	bundle := types.SignalBundle{
		"fundamentals_agent":      {Direction: types.Bullish, Confidence: 80}, // 0.24
		"technical_analyst_agent": {Direction: types.Bearish, Confidence: 80}, // 0.23
	}
	got, err := agg.Aggregate(bundle)
	require.NoError(t, err)
	assert.Equal(t, types.Bullish, got.Direction)
	// Renormalized weights: 0.24/0.47 vs 0.23/0.47.
	assert.InDelta(t, 80*0.24/0.47, got.Confidence, 1e-9)
}

func TestAggregateTieResolvesBullish(t *testing.T) {
	agg := newTestAggregator(t)
	// valuation and technical carry equal base weight, so equal confidence
	// produces an exact tie.
	bundle := types.SignalBundle{
		"valuation_agent":         {Direction: types.Bullish, Confidence: 70},
		"technical_analyst_agent": {Direction: types.Bearish, Confidence: 70},
	}
	got, err := agg.Aggregate(bundle)
	require.NoError(t, err)
	assert.Equal(t, types.Bullish, got.Direction)
	assert.InDelta(t, 35, got.Confidence, 1e-9)
}

func TestAggregateNeutralScalesDown(t *testing.T) {
	agg := newTestAggregator(t)
	bundle := types.SignalBundle{
		"fundamentals_agent": {Direction: types.Bullish, Confidence: 90},
		"sentiment_agent":    {Direction: types.Neutral, Confidence: 40},
	}
	got, err := agg.Aggregate(bundle)
	require.NoError(t, err)
	// fundamentals renormalizes to 0.24/0.39 against the present set, then
	// the result scales by active/available = 1/2.
	want := 90 * (0.24 / 0.39) * 0.5
	assert.InDelta(t, want, got.Confidence, 1e-9)
	assert.Equal(t, types.Bullish, got.Direction)
}

func TestAggregateUnknownProducerIgnored(t *testing.T) {
	agg := newTestAggregator(t)
	bundle := types.SignalBundle{
		"fundamentals_agent": {Direction: types.Bullish, Confidence: 60},
		"astrology_agent":    {Direction: types.Bearish, Confidence: 100},
	}
	got, err := agg.Aggregate(bundle)
	require.NoError(t, err)
	// The unknown producer carries zero weight but still counts as an
	// available (active) vote.
	assert.Equal(t, types.Bullish, got.Direction)
	assert.InDelta(t, 60, got.Confidence, 1e-9)
}

func TestAggregateIdempotent(t *testing.T) {
	agg := newTestAggregator(t)
	bundle := types.SignalBundle{
		"fundamentals_agent":      {Direction: types.Bullish, Confidence: 81},
		"technical_analyst_agent": {Direction: types.Bearish, Confidence: 44},
		"sentiment_agent":         {Direction: types.Neutral, Confidence: 50},
	}
	first, err := agg.Aggregate(bundle)
	require.NoError(t, err)
	second, err := agg.Aggregate(bundle)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAggregateBullishMonotonic(t *testing.T) {
	agg := newTestAggregator(t)
	base := types.SignalBundle{
		"fundamentals_agent":      {Direction: types.Bullish, Confidence: 50},
		"technical_analyst_agent": {Direction: types.Bearish, Confidence: 70},
	}
	prev := -1.0
	for _, conf := range []float64{10, 30, 50, 70, 90, 100} {
		bundle := types.SignalBundle{
			"fundamentals_agent":      {Direction: types.Bullish, Confidence: conf},
			"technical_analyst_agent": base["technical_analyst_agent"],
		}
		got, err := agg.Aggregate(bundle)
		require.NoError(t, err)
		bull := got.Confidence
		if got.Direction == types.Bearish {
			bull = -got.Confidence
		}
		assert.GreaterOrEqual(t, bull, prev, "bullish total must not decrease at confidence %v", conf)
		prev = bull
	}
}

func TestCanonicalKey(t *testing.T) {
	cases := map[string]string{
		"fundamentals_agent":      KeyFundamentals,
		"Technical_Analyst_Agent": KeyTechnical,
		"valuation_agent":         KeyValuation,
		"warren_buffett_agent":    KeyDeepValue,
		"sentiment":               KeySentiment,
		"  SENTIMENT_AGENT  ":     KeySentiment,
	}
	for raw, want := range cases {
		assert.Equal(t, want, CanonicalKey(raw), "raw=%q", raw)
	}
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, w := range DefaultWeights() {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}
