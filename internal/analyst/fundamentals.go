package analyst

import (
	"context"
	"fmt"
	"strings"
	"time"

	"alphadesk/internal/marketdata"
	"alphadesk/internal/types"
)

// FundamentalsAnalyst scores a company on four themes: profitability, growth,
// financial health and price ratios. Each theme casts one vote.
type FundamentalsAnalyst struct {
	data marketdata.Provider
}

func NewFundamentalsAnalyst(data marketdata.Provider) *FundamentalsAnalyst {
	return &FundamentalsAnalyst{data: data}
}

func (a *FundamentalsAnalyst) Name() string { return "fundamentals_agent" }

func (a *FundamentalsAnalyst) Analyze(ctx context.Context, ticker string, asOf time.Time) (types.AnalystSignal, error) {
	m, err := a.data.Metrics(ctx, ticker, asOf)
	if err != nil {
		return types.AnalystSignal{}, err
	}
	if m == nil {
		return types.AnalystSignal{}, fmt.Errorf("fundamentals: no metrics for %s", ticker)
	}

	themes := []struct {
		name    string
		bullish bool
	}{
		{"profitability", countTrue(
			m.ReturnOnEquity > 0.15,
			m.NetMargin > 0.20,
			m.OperatingMargin > 0.15,
		) >= 2},
		{"growth", countTrue(
			m.RevenueGrowth > 0.10,
			m.EarningsGrowth > 0.10,
			m.BookValueGrowth > 0.10,
		) >= 2},
		{"health", countTrue(
			m.CurrentRatio > 1.5,
			m.DebtToEquity > 0 && m.DebtToEquity < 0.5,
			m.EarningsPerShare > 0 && m.FreeCashFlowPerShare > m.EarningsPerShare*0.8,
		) >= 2},
		{"price_ratios", countTrue(
			m.PriceToEarningsRatio > 0 && m.PriceToEarningsRatio < 25,
			m.PriceToBookRatio > 0 && m.PriceToBookRatio < 3,
			m.PriceToSalesRatio > 0 && m.PriceToSalesRatio < 5,
		) >= 2},
	}

	bullishVotes := 0
	var notes []string
	for _, theme := range themes {
		if theme.bullish {
			bullishVotes++
			notes = append(notes, theme.name+" strong")
		} else {
			notes = append(notes, theme.name+" weak")
		}
	}
	bearishVotes := len(themes) - bullishVotes

	direction := types.Neutral
	if bullishVotes > bearishVotes {
		direction = types.Bullish
	} else if bearishVotes > bullishVotes {
		direction = types.Bearish
	}
	confidence := float64(maxInt(bullishVotes, bearishVotes)) / float64(len(themes)) * 100

	return types.AnalystSignal{
		Direction:  direction,
		Confidence: confidence,
		Reasoning:  strings.Join(notes, "; "),
	}, nil
}

func countTrue(conditions ...bool) int {
	n := 0
	for _, c := range conditions {
		if c {
			n++
		}
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
