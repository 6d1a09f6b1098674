package analyst

import (
	"context"
	"fmt"
	"math"
	"time"

	"alphadesk/internal/marketdata"
	"alphadesk/internal/types"
)

const (
	dcfDiscountRate   = 0.10
	dcfYears          = 5
	dcfTerminalGrowth = 0.03
	valuationGapBand  = 0.15
)

// ValuationAnalyst discounts projected free cash flow per share and compares
// the intrinsic value against the market price. A gap beyond ±15% moves the
// signal off neutral; confidence scales with the gap, capped at 50%.
type ValuationAnalyst struct {
	data marketdata.Provider
}

func NewValuationAnalyst(data marketdata.Provider) *ValuationAnalyst {
	return &ValuationAnalyst{data: data}
}

func (a *ValuationAnalyst) Name() string { return "valuation_agent" }

func (a *ValuationAnalyst) Analyze(ctx context.Context, ticker string, asOf time.Time) (types.AnalystSignal, error) {
	m, err := a.data.Metrics(ctx, ticker, asOf)
	if err != nil {
		return types.AnalystSignal{}, err
	}
	price, err := a.data.LatestPrice(ctx, ticker, asOf)
	if err != nil {
		return types.AnalystSignal{}, err
	}
	if price <= 0 {
		return types.AnalystSignal{}, fmt.Errorf("valuation: no price for %s", ticker)
	}
	if m.FreeCashFlowPerShare <= 0 {
		return types.AnalystSignal{
			Direction:  types.Neutral,
			Confidence: 0,
			Reasoning:  "no positive free cash flow to discount",
		}, nil
	}

	growth := m.EarningsGrowth
	if growth > 0.25 {
		growth = 0.25
	}
	if growth < -0.10 {
		growth = -0.10
	}
	intrinsic := discountedCashFlowPerShare(m.FreeCashFlowPerShare, growth)
	gap := (intrinsic - price) / price

	direction := types.Neutral
	switch {
	case gap > valuationGapBand:
		direction = types.Bullish
	case gap < -valuationGapBand:
		direction = types.Bearish
	}
	confidence := math.Min(math.Abs(gap), 0.50) / 0.50 * 100

	return types.AnalystSignal{
		Direction:  direction,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("intrinsic %.2f vs price %.2f, gap %+.1f%%", intrinsic, price, gap*100),
	}, nil
}

func discountedCashFlowPerShare(fcf, growth float64) float64 {
	value := 0.0
	cash := fcf
	for year := 1; year <= dcfYears; year++ {
		cash *= 1 + growth
		value += cash / math.Pow(1+dcfDiscountRate, float64(year))
	}
	terminal := cash * (1 + dcfTerminalGrowth) / (dcfDiscountRate - dcfTerminalGrowth)
	value += terminal / math.Pow(1+dcfDiscountRate, dcfYears)
	return value
}
