// Package order converts trading decisions into concrete broker order
// requests.
package order

import (
	"fmt"

	"alphadesk/internal/types"

	"github.com/shopspring/decimal"
)

const (
	// marketOrderThreshold: at or above this confidence the fill matters
	// more than the price, so a market order is used.
	marketOrderThreshold = 80.0
	// limitOffset shades limit orders 1% inside the current price: buys 1%
	// below, sells 1% above. Aggressive enough to fill within the session
	// without chasing the market.
	limitOffset = 0.01
)

// Translator attaches an OrderSpec to non-hold decisions in live mode.
type Translator struct {
	live bool
}

func NewTranslator(live bool) *Translator {
	return &Translator{live: live}
}

// Translate builds the order for a decision. Outside live mode no order is
// attached and the decision passes through untouched. Only call for non-hold
// decisions.
func (t *Translator) Translate(ticker string, decision types.TradingDecision, currentPrice float64) (types.TradingDecision, error) {
	if decision.Action == types.ActionHold {
		return decision, nil
	}
	if !t.live {
		return decision, nil
	}
	if currentPrice <= 0 {
		return types.TradingDecision{}, fmt.Errorf("translate %s: current price required for live order", ticker)
	}

	spec := &types.OrderSpec{
		Symbol:      ticker,
		Qty:         decision.Quantity,
		Side:        decision.Action,
		Type:        types.OrderTypeMarket,
		TimeInForce: types.TimeInForceDay,
	}
	if decision.Confidence < marketOrderThreshold {
		spec.Type = types.OrderTypeLimit
		price := limitPrice(decision.Action, currentPrice)
		spec.LimitPrice = &price
	}
	if err := spec.Validate(); err != nil {
		return types.TradingDecision{}, err
	}
	decision.Order = spec
	return decision, nil
}

func limitPrice(side types.Action, currentPrice float64) float64 {
	factor := 1 - limitOffset
	if side == types.ActionSell {
		factor = 1 + limitOffset
	}
	price := decimal.NewFromFloat(currentPrice).
		Mul(decimal.NewFromFloat(factor)).
		Round(2)
	f, _ := price.Float64()
	return f
}
