// Package engine turns aggregated committee confidence plus risk envelopes
// into bounded trading decisions.
package engine

import (
	"fmt"

	"alphadesk/internal/types"
)

// Engine applies the tiered confidence-to-size policy. It is a pure state
// machine over (direction, confidence, current shares); all inputs arrive by
// parameter and nothing is cached between calls.
type Engine struct{}

func New() *Engine { return &Engine{} }

// Decide produces the decision for one ticker.
//
// Confidence outside [0,100] is clamped before tier lookup, never rejected.
// Sell quantity closing a long is clamped to the held share count; a buy is
// clamped to the envelope's max shares. Returns an error only when a non-hold
// decision would be emitted without a usable current price.
func (e *Engine) Decide(ticker string, agg types.AggregatedConfidence, env types.RiskEnvelope, currentShares int) (types.TradingDecision, error) {
	conf := clampConfidence(agg.Confidence)

	decision := e.decide(agg.Direction, conf, env.MaxShares, currentShares)
	if decision.Action != types.ActionHold && env.CurrentPrice <= 0 {
		return types.TradingDecision{}, fmt.Errorf("decide %s: current price missing for %s decision", ticker, decision.Action)
	}
	if decision.Quantity == 0 && decision.Action != types.ActionHold {
		// Tier sizing rounded down to nothing; treat as hold.
		decision = types.Hold(fmt.Sprintf("%s signal at %.1f%% sized to zero shares", decision.Action, conf))
	}
	decision.Confidence = conf
	return decision, nil
}

func (e *Engine) decide(direction types.Direction, conf float64, maxShares, currentShares int) types.TradingDecision {
	// Closing (or force-liquidating) an existing long comes first: a strong
	// bearish read or a collapse in conviction both trump new entries.
	if currentShares > 0 {
		if direction == types.Bearish && conf >= 70 {
			qty := tierOf(currentShares, closeTier(conf))
			if qty > currentShares {
				qty = currentShares
			}
			return types.TradingDecision{
				Action:    types.ActionSell,
				Quantity:  qty,
				Reasoning: fmt.Sprintf("bearish %.1f%% against %d held shares: closing %d", conf, currentShares, qty),
			}
		}
		if conf <= 40 {
			// Safety valve, not a normal sell signal: conviction this low
			// liquidates the whole position regardless of direction.
			return types.TradingDecision{
				Action:    types.ActionSell,
				Quantity:  currentShares,
				Reasoning: fmt.Sprintf("confidence %.1f%% below liquidation floor: closing all %d shares", conf, currentShares),
			}
		}
	}

	// Opening a short requires no position and high bearish conviction.
	if currentShares == 0 && direction == types.Bearish {
		if conf < 70 {
			return types.Hold(fmt.Sprintf("bearish %.1f%% below 70%% short threshold", conf))
		}
		qty := tierOf(maxShares, shortTier(conf))
		return types.TradingDecision{
			Action:    types.ActionSell,
			Quantity:  qty,
			Reasoning: fmt.Sprintf("bearish %.1f%% with no position: opening short of %d shares", conf, qty),
		}
	}

	if direction == types.Bullish && conf > 60 {
		qty := tierOf(maxShares, buyTier(conf))
		if qty > maxShares {
			qty = maxShares
		}
		return types.TradingDecision{
			Action:    types.ActionBuy,
			Quantity:  qty,
			Reasoning: fmt.Sprintf("bullish %.1f%%: buying %d of %d permitted shares", conf, qty, maxShares),
		}
	}

	return types.Hold(fmt.Sprintf("%s %.1f%% below action thresholds", direction, conf))
}

func clampConfidence(conf float64) float64 {
	if conf < 0 {
		return 0
	}
	if conf > 100 {
		return 100
	}
	return conf
}

// closeTier maps bearish confidence to the fraction of the held position to
// liquidate.
func closeTier(conf float64) float64 {
	switch {
	case conf >= 95:
		return 1.00
	case conf >= 90:
		return 0.75
	case conf >= 80:
		return 0.50
	default: // 70 <= conf < 80
		return 0.25
	}
}

// shortTier maps bearish confidence to the fraction of max shares to short.
// Shorts never use the full envelope.
func shortTier(conf float64) float64 {
	switch {
	case conf >= 90:
		return 0.75
	case conf >= 80:
		return 0.50
	default: // 70 <= conf < 90
		return 0.25
	}
}

// buyTier maps bullish confidence to the fraction of max shares to buy.
// Bands are half-open at the top: confidence exactly 70 still sizes 25%.
func buyTier(conf float64) float64 {
	switch {
	case conf > 90:
		return 1.00
	case conf > 80:
		return 0.75
	case conf > 70:
		return 0.50
	default: // 60 < conf <= 70
		return 0.25
	}
}

func tierOf(shares int, fraction float64) int {
	if shares <= 0 {
		return 0
	}
	return int(float64(shares) * fraction)
}
