// Package executor submits per-ticker orders and isolates their failures.
package executor

import (
	"context"
	"sort"

	"alphadesk/internal/broker"
	"alphadesk/internal/logger"
	"alphadesk/internal/types"
)

// Coordinator walks a cycle's decisions and pushes every actionable order to
// the broker. One rejected ticker never aborts the rest; that isolation is
// the component's core contract. Retries, if any, belong to the broker layer.
type Coordinator struct {
	broker broker.Broker
}

func NewCoordinator(b broker.Broker) *Coordinator {
	return &Coordinator{broker: b}
}

// Execute submits orders for every non-hold decision. Decisions without an
// attached order spec (paper mode skips the limit refinement) fall back to a
// plain market day order. Tickers are processed in sorted order for
// determinism. The result map has one entry per submitted (or failed)
// ticker; hold decisions produce none.
func (c *Coordinator) Execute(ctx context.Context, decisions map[string]types.TradingDecision) map[string]types.ExecutionResult {
	results := make(map[string]types.ExecutionResult)

	tickers := make([]string, 0, len(decisions))
	for ticker := range decisions {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	for _, ticker := range tickers {
		decision := decisions[ticker]
		if decision.Action == types.ActionHold {
			continue
		}
		if decision.Order == nil {
			decision.Order = &types.OrderSpec{
				Symbol:      ticker,
				Qty:         decision.Quantity,
				Side:        decision.Action,
				Type:        types.OrderTypeMarket,
				TimeInForce: types.TimeInForceDay,
			}
		}
		if err := decision.Order.Validate(); err != nil {
			// A structurally broken order must never reach the venue.
			logger.Errorf("order for %s rejected before submission: %v", ticker, err)
			results[ticker] = types.ExecutionResult{Status: types.ExecutionFailed, Error: err.Error()}
			continue
		}
		receipt, err := c.broker.SubmitOrder(ctx, *decision.Order)
		if err != nil {
			logger.Warnf("order for %s failed at %s: %v", ticker, c.broker.Name(), err)
			results[ticker] = types.ExecutionResult{Status: types.ExecutionFailed, Error: err.Error()}
			continue
		}
		logger.Infof("order for %s submitted: id=%s filled=%d@%.2f", ticker, receipt.ID, receipt.FilledQty, receipt.FilledAvgPrice)
		results[ticker] = types.ExecutionResult{
			Status:         types.ExecutionSuccess,
			OrderID:        receipt.ID,
			FilledQty:      receipt.FilledQty,
			FilledAvgPrice: receipt.FilledAvgPrice,
		}
	}
	return results
}
