// Package risk computes per-ticker position limits from portfolio state.
package risk

import (
	"errors"
	"math"

	"alphadesk/internal/types"
)

// ErrNoPrice signals that no current price is available for a ticker. The
// ticker is skipped for the cycle rather than sized against a zero price.
var ErrNoPrice = errors.New("no current price for ticker")

const (
	// maxPositionPct caps any single position at 20% of total portfolio
	// value. House rule, applies in simulation and live alike.
	maxPositionPct = 0.20
	// buyingPowerMargin reserves 5% of broker buying power against
	// slippaged fills and fees in live mode.
	buyingPowerMargin = 0.95
)

// Calculator derives the RiskEnvelope for each ticker from a portfolio
// snapshot and a current price.
type Calculator struct {
	live bool
}

func NewCalculator(live bool) *Calculator {
	return &Calculator{live: live}
}

// Compute builds the envelope for one ticker. currentPrice <= 0 means no
// usable price data and returns ErrNoPrice.
//
// The remaining limit is 20% of total portfolio value minus the ticker's
// current position value, clipped to available cash; in live mode the 20%
// rule is additionally capped by 95% of broker buying power, the hard
// broker-enforced ceiling.
func (c *Calculator) Compute(ticker string, portfolio types.PortfolioSnapshot, currentPrice float64) (types.RiskEnvelope, error) {
	if currentPrice <= 0 {
		return types.RiskEnvelope{}, ErrNoPrice
	}

	totalValue := portfolio.TotalValue()
	maxPosition := totalValue * maxPositionPct
	if c.live {
		powerCap := portfolio.BuyingPower * buyingPowerMargin
		if powerCap < maxPosition {
			maxPosition = powerCap
		}
	}

	remaining := maxPosition - portfolio.CostBasis[ticker]
	if portfolio.Cash < remaining {
		remaining = portfolio.Cash
	}

	maxShares := 0
	if remaining > 0 {
		maxShares = int(math.Floor(remaining / currentPrice))
	}
	return types.RiskEnvelope{
		RemainingLimit: remaining,
		CurrentPrice:   currentPrice,
		MaxShares:      maxShares,
	}, nil
}
