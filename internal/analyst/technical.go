package analyst

import (
	"context"
	"fmt"
	"strings"
	"time"

	"alphadesk/internal/marketdata"
	"alphadesk/internal/types"

	talib "github.com/markcheno/go-talib"
)

const (
	technicalLookbackDays = 180
	technicalMinBars      = 60
	rsiPeriod             = 14
	rsiOverbought         = 70.0
	rsiOversold           = 30.0
)

// TechnicalAnalyst votes on price action: EMA trend alignment, RSI extremes,
// MACD momentum and on-balance volume flow. Each study gets one vote.
type TechnicalAnalyst struct {
	data marketdata.Provider
}

func NewTechnicalAnalyst(data marketdata.Provider) *TechnicalAnalyst {
	return &TechnicalAnalyst{data: data}
}

func (a *TechnicalAnalyst) Name() string { return "technical_analyst_agent" }

func (a *TechnicalAnalyst) Analyze(ctx context.Context, ticker string, asOf time.Time) (types.AnalystSignal, error) {
	bars, err := a.data.Prices(ctx, ticker, asOf.AddDate(0, 0, -technicalLookbackDays), asOf)
	if err != nil {
		return types.AnalystSignal{}, err
	}
	if len(bars) < technicalMinBars {
		return types.AnalystSignal{}, fmt.Errorf("technical: need %d bars for %s, got %d", technicalMinBars, ticker, len(bars))
	}

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	votes := 0
	score := 0
	var notes []string

	ema8 := last(talib.Ema(closes, 8))
	ema21 := last(talib.Ema(closes, 21))
	ema55 := last(talib.Ema(closes, 55))
	votes++
	switch {
	case ema8 > ema21 && ema21 > ema55:
		score++
		notes = append(notes, "EMA stack aligned up")
	case ema8 < ema21 && ema21 < ema55:
		score--
		notes = append(notes, "EMA stack aligned down")
	default:
		notes = append(notes, "EMA stack mixed")
	}

	rsi := last(talib.Rsi(closes, rsiPeriod))
	votes++
	switch {
	case rsi <= rsiOversold:
		score++
		notes = append(notes, fmt.Sprintf("RSI oversold at %.1f", rsi))
	case rsi >= rsiOverbought:
		score--
		notes = append(notes, fmt.Sprintf("RSI overbought at %.1f", rsi))
	default:
		notes = append(notes, fmt.Sprintf("RSI neutral at %.1f", rsi))
	}

	_, _, hist := talib.Macd(closes, 12, 26, 9)
	macdHist := last(hist)
	votes++
	switch {
	case macdHist > 0:
		score++
		notes = append(notes, "MACD histogram positive")
	case macdHist < 0:
		score--
		notes = append(notes, "MACD histogram negative")
	default:
		notes = append(notes, "MACD histogram flat")
	}

	obv := talib.Obv(closes, volumes)
	votes++
	if n := len(obv); n > 10 {
		switch {
		case obv[n-1] > obv[n-11]:
			score++
			notes = append(notes, "OBV rising")
		case obv[n-1] < obv[n-11]:
			score--
			notes = append(notes, "OBV falling")
		default:
			notes = append(notes, "OBV flat")
		}
	} else {
		notes = append(notes, "OBV history too short")
	}

	direction := types.Neutral
	if score > 0 {
		direction = types.Bullish
	} else if score < 0 {
		direction = types.Bearish
	}
	confidence := float64(abs(score)) / float64(votes) * 100

	return types.AnalystSignal{
		Direction:  direction,
		Confidence: confidence,
		Reasoning:  strings.Join(notes, "; "),
	}, nil
}

func last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
