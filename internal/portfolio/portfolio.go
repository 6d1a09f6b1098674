// Package portfolio holds the run-scoped portfolio state. The orchestration
// loop owns the mutable state; the trading core only ever sees read-only
// snapshots. Mutation happens in simulation mode only — in live mode the
// broker is the sole authority over real positions.
package portfolio

import (
	"fmt"
	"math"
	"sync"

	"alphadesk/internal/types"

	"github.com/shopspring/decimal"
)

// State tracks cash, positions, cost basis and realized gains. All dollar
// arithmetic runs through decimals so repeated buys and partial sells do not
// drift.
type State struct {
	mu            sync.Mutex
	cash          decimal.Decimal
	buyingPower   decimal.Decimal
	positions     map[string]int
	costBasis     map[string]decimal.Decimal
	realizedGains map[string]decimal.Decimal
}

func NewState(initialCash float64) *State {
	cash := decimal.NewFromFloat(initialCash)
	return &State{
		cash:          cash,
		buyingPower:   cash,
		positions:     make(map[string]int),
		costBasis:     make(map[string]decimal.Decimal),
		realizedGains: make(map[string]decimal.Decimal),
	}
}

// NewStateFromBroker seeds state from a live account and its open positions.
func NewStateFromBroker(account types.AccountSnapshot, positions []types.BrokerPosition) *State {
	s := NewState(account.Cash)
	s.buyingPower = decimal.NewFromFloat(account.BuyingPower)
	for _, p := range positions {
		s.positions[p.Symbol] = p.Qty
		s.costBasis[p.Symbol] = decimal.NewFromFloat(p.CostBasis)
	}
	return s
}

// Snapshot returns the read-only view handed to the decision core.
func (s *State) Snapshot() types.PortfolioSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := types.PortfolioSnapshot{
		Cash:          toFloat(s.cash),
		BuyingPower:   toFloat(s.buyingPower),
		Positions:     make(map[string]int, len(s.positions)),
		CostBasis:     make(map[string]float64, len(s.costBasis)),
		RealizedGains: make(map[string]float64, len(s.realizedGains)),
	}
	for ticker, qty := range s.positions {
		snap.Positions[ticker] = qty
	}
	for ticker, basis := range s.costBasis {
		snap.CostBasis[ticker] = toFloat(basis)
	}
	for ticker, gain := range s.realizedGains {
		snap.RealizedGains[ticker] = toFloat(gain)
	}
	return snap
}

// ApplyBuy executes a simulated buy, clipping the quantity to available cash
// so cash never goes negative. Returns the share count actually bought.
func (s *State) ApplyBuy(ticker string, quantity int, price float64) int {
	if quantity <= 0 || price <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	px := decimal.NewFromFloat(price)
	cost := px.Mul(decimal.NewFromInt(int64(quantity)))
	if cost.GreaterThan(s.cash) {
		quantity = int(math.Floor(toFloat(s.cash) / price))
		if quantity <= 0 {
			return 0
		}
		cost = px.Mul(decimal.NewFromInt(int64(quantity)))
	}
	s.positions[ticker] += quantity
	s.costBasis[ticker] = s.costBasis[ticker].Add(cost)
	s.cash = s.cash.Sub(cost)
	return quantity
}

// ApplySell executes a simulated sell, clamped to the held share count.
// Realized gains accrue against the average cost per share and the cost
// basis shrinks proportionally. Returns the share count actually sold.
func (s *State) ApplySell(ticker string, quantity int, price float64) int {
	if quantity <= 0 || price <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	held := s.positions[ticker]
	if held <= 0 {
		return 0
	}
	if quantity > held {
		quantity = held
	}
	px := decimal.NewFromFloat(price)
	qty := decimal.NewFromInt(int64(quantity))
	heldDec := decimal.NewFromInt(int64(held))

	avgCost := s.costBasis[ticker].Div(heldDec)
	gain := px.Sub(avgCost).Mul(qty)
	s.realizedGains[ticker] = s.realizedGains[ticker].Add(gain)

	s.cash = s.cash.Add(px.Mul(qty))
	s.positions[ticker] = held - quantity
	if s.positions[ticker] == 0 {
		s.costBasis[ticker] = decimal.Zero
	} else {
		soldRatio := qty.Div(heldDec)
		s.costBasis[ticker] = s.costBasis[ticker].Sub(s.costBasis[ticker].Mul(soldRatio))
	}
	return quantity
}

// Apply routes a decision's executed trade into the books and returns the
// executed quantity.
func (s *State) Apply(ticker string, action types.Action, quantity int, price float64) (int, error) {
	switch action {
	case types.ActionBuy:
		return s.ApplyBuy(ticker, quantity, price), nil
	case types.ActionSell:
		return s.ApplySell(ticker, quantity, price), nil
	case types.ActionHold:
		return 0, nil
	default:
		return 0, fmt.Errorf("portfolio: unknown action %q", action)
	}
}

// TotalValue marks held positions at the supplied prices and adds cash.
// Tickers without a price are valued at cost basis.
func (s *State) TotalValue(prices map[string]float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.cash
	for ticker, qty := range s.positions {
		if qty == 0 {
			continue
		}
		if price, ok := prices[ticker]; ok && price > 0 {
			total = total.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty))))
		} else {
			total = total.Add(s.costBasis[ticker])
		}
	}
	return toFloat(total)
}

// RealizedGainsTotal sums realized gains across all tickers.
func (s *State) RealizedGainsTotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, gain := range s.realizedGains {
		total = total.Add(gain)
	}
	return toFloat(total)
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
