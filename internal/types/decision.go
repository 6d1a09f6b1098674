package types

import (
	"fmt"
	"strings"
)

// Action is the final call for a ticker in one cycle.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// ParseAction validates a free-form action string from model output.
func ParseAction(raw string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy":
		return ActionBuy, nil
	case "sell":
		return ActionSell, nil
	case "hold":
		return ActionHold, nil
	default:
		return "", fmt.Errorf("unknown action %q", raw)
	}
}

// OrderType selects market vs. limit execution.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// TimeInForce is the order lifetime policy. Orders are day-only: fills happen
// in the same session or not at all.
type TimeInForce string

const TimeInForceDay TimeInForce = "day"

// OrderSpec is a concrete broker order request.
type OrderSpec struct {
	Symbol      string      `json:"symbol"`
	Qty         int         `json:"qty"`
	Side        Action      `json:"side"`
	Type        OrderType   `json:"type"`
	TimeInForce TimeInForce `json:"time_in_force"`
	LimitPrice  *float64    `json:"limit_price,omitempty"`
}

// Validate rejects structurally broken orders before they reach the broker.
// A limit order without a price is a programming error upstream, never
// something to paper over with a market default.
func (o OrderSpec) Validate() error {
	if o.Symbol == "" {
		return fmt.Errorf("order: symbol is required")
	}
	if o.Qty <= 0 {
		return fmt.Errorf("order %s: qty must be positive, got %d", o.Symbol, o.Qty)
	}
	if o.Side != ActionBuy && o.Side != ActionSell {
		return fmt.Errorf("order %s: invalid side %q", o.Symbol, o.Side)
	}
	if o.Type == OrderTypeLimit && o.LimitPrice == nil {
		return fmt.Errorf("order %s: limit order is missing a limit price", o.Symbol)
	}
	return nil
}

// TradingDecision is the per-ticker output of a decision cycle.
// Quantity is zero iff Action is hold. Order stays nil outside live mode.
type TradingDecision struct {
	Action     Action     `json:"action"`
	Quantity   int        `json:"quantity"`
	Confidence float64    `json:"confidence"`
	Reasoning  string     `json:"reasoning"`
	Order      *OrderSpec `json:"order,omitempty"`
}

// Hold builds the safe default decision.
func Hold(reason string) TradingDecision {
	return TradingDecision{Action: ActionHold, Quantity: 0, Reasoning: reason}
}

// ExecutionStatus tags the outcome of one submitted order.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
)

// ExecutionResult is the per-ticker broker outcome. Tickers whose decision was
// hold produce no result entry at all.
type ExecutionResult struct {
	Status         ExecutionStatus `json:"status"`
	OrderID        string          `json:"order_id,omitempty"`
	FilledQty      int             `json:"filled_qty,omitempty"`
	FilledAvgPrice float64         `json:"filled_avg_price,omitempty"`
	Error          string          `json:"error,omitempty"`
}
