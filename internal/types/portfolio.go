package types

import "time"

// RiskEnvelope is the per-ticker risk state computed fresh each cycle.
// Invariant: MaxShares == floor(RemainingLimit / CurrentPrice) when the price
// is positive, else zero. Never persisted across cycles.
type RiskEnvelope struct {
	RemainingLimit float64 `json:"remaining_position_limit"`
	CurrentPrice   float64 `json:"current_price"`
	MaxShares      int     `json:"max_shares"`
}

// AccountSnapshot mirrors the broker account view used for risk sizing.
type AccountSnapshot struct {
	Cash        float64   `json:"cash"`
	BuyingPower float64   `json:"buying_power"`
	Equity      float64   `json:"equity"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BrokerPosition is one open position as reported by the broker.
type BrokerPosition struct {
	Symbol      string  `json:"symbol"`
	Qty         int     `json:"qty"`
	CostBasis   float64 `json:"cost_basis"`
	MarketValue float64 `json:"market_value"`
}

// PortfolioSnapshot is the read-only view of portfolio state handed to the
// core at cycle start. The orchestration loop owns the mutable original.
type PortfolioSnapshot struct {
	Cash          float64            `json:"cash"`
	BuyingPower   float64            `json:"buying_power,omitempty"`
	Positions     map[string]int     `json:"positions"`
	CostBasis     map[string]float64 `json:"cost_basis"`
	RealizedGains map[string]float64 `json:"realized_gains,omitempty"`
}

// Shares returns the held share count for a ticker, zero when flat.
func (p PortfolioSnapshot) Shares(ticker string) int {
	return p.Positions[ticker]
}

// TotalValue is cash plus the cost basis of every held position.
func (p PortfolioSnapshot) TotalValue() float64 {
	total := p.Cash
	for _, basis := range p.CostBasis {
		total += basis
	}
	return total
}
