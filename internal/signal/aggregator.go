// Package signal combines the analyst committee's per-ticker opinions into a
// single weighted directional confidence.
package signal

import (
	"errors"

	"alphadesk/internal/types"
)

// ErrInvalidBundle marks a structurally broken signal bundle. This is an
// upstream contract violation, not a data-quality issue: callers should abort
// the ticker's decision instead of guessing.
var ErrInvalidBundle = errors.New("signal bundle is not a valid mapping")

// Aggregator folds a SignalBundle into one AggregatedConfidence.
type Aggregator struct {
	weights *WeightsRegistry
}

func NewAggregator(weights *WeightsRegistry) *Aggregator {
	return &Aggregator{weights: weights}
}

// Aggregate weighs every present, non-neutral opinion by its producer weight
// (renormalized over the present subset) and accumulates bullish and bearish
// totals separately. The larger total wins; an exact tie resolves to bullish.
// When some producers voted neutral, the winning confidence is scaled by
// active/available: neutral votes are evidence of indecision, not absence of
// opinion.
//
// Missing or partial producer sets never fail; only a nil bundle does.
func (a *Aggregator) Aggregate(bundle types.SignalBundle) (types.AggregatedConfidence, error) {
	if bundle == nil {
		return types.AggregatedConfidence{}, ErrInvalidBundle
	}
	table := a.weights.Snapshot().Weights

	// Renormalize over the known producers actually present. Unknown
	// producers keep weight zero and stay out of the denominator.
	denom := 0.0
	for name := range bundle {
		if w, ok := table[CanonicalKey(name)]; ok {
			denom += w
		}
	}

	var bullish, bearish float64
	active, available := 0, 0
	for name, sig := range bundle {
		available++
		if sig.Direction == types.Neutral {
			continue
		}
		active++
		if denom <= 0 {
			continue
		}
		w := table[CanonicalKey(name)] / denom
		switch sig.Direction {
		case types.Bullish:
			bullish += w * sig.Confidence
		case types.Bearish:
			bearish += w * sig.Confidence
		}
	}

	result := types.AggregatedConfidence{Direction: types.Bullish}
	if bearish > bullish {
		result.Direction = types.Bearish
		result.Confidence = bearish
	} else {
		result.Confidence = bullish
	}
	if available > 0 && active < available {
		result.Confidence *= float64(active) / float64(available)
	}
	return result, nil
}
