package analyst

import (
	"context"
	"fmt"
	"time"

	"alphadesk/internal/marketdata"
	"alphadesk/internal/types"
)

const (
	sentimentInsiderWeight = 0.3
	sentimentNewsWeight    = 0.7
	sentimentLookbackItems = 100
)

// SentimentAnalyst blends insider transaction flow (30%) with scored company
// news (70%). Insider buys count bullish, sales bearish.
type SentimentAnalyst struct {
	data marketdata.Provider
}

func NewSentimentAnalyst(data marketdata.Provider) *SentimentAnalyst {
	return &SentimentAnalyst{data: data}
}

func (a *SentimentAnalyst) Name() string { return "sentiment_agent" }

func (a *SentimentAnalyst) Analyze(ctx context.Context, ticker string, asOf time.Time) (types.AnalystSignal, error) {
	trades, err := a.data.InsiderTrades(ctx, ticker, asOf, sentimentLookbackItems)
	if err != nil {
		return types.AnalystSignal{}, err
	}
	news, err := a.data.News(ctx, ticker, asOf, sentimentLookbackItems)
	if err != nil {
		return types.AnalystSignal{}, err
	}

	var insiderBull, insiderBear float64
	for _, trade := range trades {
		if trade.Shares > 0 {
			insiderBull++
		} else if trade.Shares < 0 {
			insiderBear++
		}
	}
	var newsBull, newsBear float64
	for _, item := range news {
		switch item.Sentiment {
		case "positive":
			newsBull++
		case "negative":
			newsBear++
		}
	}

	bullish := insiderBull*sentimentInsiderWeight + newsBull*sentimentNewsWeight
	bearish := insiderBear*sentimentInsiderWeight + newsBear*sentimentNewsWeight
	total := bullish + bearish
	if total == 0 {
		return types.AnalystSignal{
			Direction:  types.Neutral,
			Confidence: 0,
			Reasoning:  "no insider trades or scored news available",
		}, nil
	}

	direction := types.Neutral
	confidence := 0.0
	switch {
	case bullish > bearish:
		direction = types.Bullish
		confidence = bullish / total * 100
	case bearish > bullish:
		direction = types.Bearish
		confidence = bearish / total * 100
	}

	return types.AnalystSignal{
		Direction:  direction,
		Confidence: confidence,
		Reasoning: fmt.Sprintf("insider buys/sells %d/%d, news pos/neg %d/%d",
			int(insiderBull), int(insiderBear), int(newsBull), int(newsBear)),
	}, nil
}
