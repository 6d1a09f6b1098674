// Package paper implements a simulated broker. Orders fill immediately and
// in full against the portfolio book, at the limit price when one is set and
// at the reference price otherwise.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"alphadesk/internal/broker"
	"alphadesk/internal/portfolio"
	"alphadesk/internal/types"

	"github.com/google/uuid"
)

// PriceFunc supplies the reference fill price for a symbol.
type PriceFunc func(ctx context.Context, symbol string) (float64, error)

type Broker struct {
	state  *portfolio.State
	priceF PriceFunc

	mu     sync.Mutex
	orders []Fill
}

// Fill records one simulated execution for inspection.
type Fill struct {
	ID     string
	Symbol string
	Side   types.Action
	Qty    int
	Price  float64
	At     time.Time
}

func New(state *portfolio.State, priceF PriceFunc) *Broker {
	return &Broker{state: state, priceF: priceF}
}

func (b *Broker) Name() string { return "paper" }

func (b *Broker) GetAccount(ctx context.Context) (types.AccountSnapshot, error) {
	snap := b.state.Snapshot()
	return types.AccountSnapshot{
		Cash:        snap.Cash,
		BuyingPower: snap.Cash,
		Equity:      snap.TotalValue(),
		UpdatedAt:   time.Now(),
	}, nil
}

func (b *Broker) GetAllPositions(ctx context.Context) ([]types.BrokerPosition, error) {
	snap := b.state.Snapshot()
	positions := make([]types.BrokerPosition, 0, len(snap.Positions))
	for symbol, qty := range snap.Positions {
		if qty == 0 {
			continue
		}
		positions = append(positions, types.BrokerPosition{
			Symbol:    symbol,
			Qty:       qty,
			CostBasis: snap.CostBasis[symbol],
		})
	}
	return positions, nil
}

func (b *Broker) SubmitOrder(ctx context.Context, spec types.OrderSpec) (broker.OrderReceipt, error) {
	if err := spec.Validate(); err != nil {
		return broker.OrderReceipt{}, err
	}
	price, err := b.fillPrice(ctx, spec)
	if err != nil {
		return broker.OrderReceipt{}, err
	}

	var filled int
	switch spec.Side {
	case types.ActionBuy:
		filled = b.state.ApplyBuy(spec.Symbol, spec.Qty, price)
		if filled == 0 {
			return broker.OrderReceipt{}, fmt.Errorf("paper: insufficient cash to buy %d %s at %.2f", spec.Qty, spec.Symbol, price)
		}
	case types.ActionSell:
		filled = b.state.ApplySell(spec.Symbol, spec.Qty, price)
		if filled == 0 {
			return broker.OrderReceipt{}, fmt.Errorf("paper: no %s position to sell", spec.Symbol)
		}
	}

	fill := Fill{
		ID:     uuid.NewString(),
		Symbol: spec.Symbol,
		Side:   spec.Side,
		Qty:    filled,
		Price:  price,
		At:     time.Now(),
	}
	b.mu.Lock()
	b.orders = append(b.orders, fill)
	b.mu.Unlock()

	return broker.OrderReceipt{
		ID:             fill.ID,
		Status:         "filled",
		FilledQty:      filled,
		FilledAvgPrice: price,
	}, nil
}

// Fills returns a copy of the execution history.
func (b *Broker) Fills() []Fill {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Fill, len(b.orders))
	copy(out, b.orders)
	return out
}

func (b *Broker) fillPrice(ctx context.Context, spec types.OrderSpec) (float64, error) {
	if spec.Type == types.OrderTypeLimit && spec.LimitPrice != nil {
		return *spec.LimitPrice, nil
	}
	if b.priceF == nil {
		return 0, fmt.Errorf("paper: no price source configured")
	}
	price, err := b.priceF(ctx, spec.Symbol)
	if err != nil {
		return 0, fmt.Errorf("paper: price lookup for %s failed: %w", spec.Symbol, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("paper: no usable price for %s", spec.Symbol)
	}
	return price, nil
}
