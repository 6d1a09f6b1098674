package analyst

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"alphadesk/internal/marketdata"
	"alphadesk/internal/types"
)

const marginOfSafetyBand = 0.30

// DeepValueAnalyst applies a quality-plus-price discipline: strong returns on
// capital, conservative leverage, durable margins, and a wide margin of
// safety against a conservative earnings-based intrinsic value.
type DeepValueAnalyst struct {
	data marketdata.Provider
}

func NewDeepValueAnalyst(data marketdata.Provider) *DeepValueAnalyst {
	return &DeepValueAnalyst{data: data}
}

func (a *DeepValueAnalyst) Name() string { return "warren_buffett_agent" }

func (a *DeepValueAnalyst) Analyze(ctx context.Context, ticker string, asOf time.Time) (types.AnalystSignal, error) {
	m, err := a.data.Metrics(ctx, ticker, asOf)
	if err != nil {
		return types.AnalystSignal{}, err
	}
	price, err := a.data.LatestPrice(ctx, ticker, asOf)
	if err != nil {
		return types.AnalystSignal{}, err
	}
	if price <= 0 {
		return types.AnalystSignal{}, fmt.Errorf("deep value: no price for %s", ticker)
	}

	score := 0
	maxScore := 5
	var notes []string
	check := func(ok bool, passNote, failNote string) {
		if ok {
			score++
			notes = append(notes, passNote)
		} else {
			notes = append(notes, failNote)
		}
	}
	check(m.ReturnOnEquity > 0.15, "strong ROE", "weak ROE")
	check(m.DebtToEquity > 0 && m.DebtToEquity < 0.5, "conservative leverage", "heavy leverage")
	check(m.OperatingMargin > 0.15, "durable margins", "thin margins")
	check(m.CurrentRatio > 1.5, "ample liquidity", "tight liquidity")
	check(m.EarningsGrowth > 0.05, "earnings compounding", "earnings stalling")

	marginOfSafety := 0.0
	if m.EarningsPerShare > 0 {
		// Graham-style conservative intrinsic value.
		growth := math.Max(0, math.Min(m.EarningsGrowth, 0.15))
		intrinsic := m.EarningsPerShare * (8.5 + 2*growth*100)
		marginOfSafety = (intrinsic - price) / price
		notes = append(notes, fmt.Sprintf("margin of safety %+.1f%%", marginOfSafety*100))
	} else {
		notes = append(notes, "no positive earnings")
	}

	quality := float64(score) / float64(maxScore)
	direction := types.Neutral
	var confidence float64
	switch {
	case quality >= 0.7 && marginOfSafety > marginOfSafetyBand:
		direction = types.Bullish
		confidence = math.Min(quality*100, 90)
	case quality <= 0.3 || marginOfSafety < -marginOfSafetyBand:
		direction = types.Bearish
		confidence = math.Min((1-quality)*100, 90)
	default:
		confidence = 50 * quality
	}

	return types.AnalystSignal{
		Direction:  direction,
		Confidence: confidence,
		Reasoning:  strings.Join(notes, "; "),
	}, nil
}
