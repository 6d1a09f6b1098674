// Package broker defines the execution-venue abstraction consumed by the
// trading core. Concrete backends (paper simulation, Alpaca-style REST) live
// in subpackages so the core never touches venue wire formats.
package broker

import (
	"context"

	"alphadesk/internal/types"
)

// OrderReceipt is the venue's acknowledgement of a submitted order.
type OrderReceipt struct {
	ID             string  `json:"id"`
	Status         string  `json:"status"`
	FilledQty      int     `json:"filled_qty"`
	FilledAvgPrice float64 `json:"filled_avg_price"`
}

// Broker is the position-aware execution venue.
type Broker interface {
	Name() string

	GetAccount(ctx context.Context) (types.AccountSnapshot, error)

	GetAllPositions(ctx context.Context) ([]types.BrokerPosition, error)

	// SubmitOrder may fail per order (insufficient buying power, unknown
	// symbol, venue rejection); callers isolate such failures per ticker.
	SubmitOrder(ctx context.Context, spec types.OrderSpec) (OrderReceipt, error)
}
