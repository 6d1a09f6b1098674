// Package marketdata fetches prices, fundamentals and news from the market
// data API and caches them for the duration of a trading cycle.
package marketdata

import (
	"context"
	"time"
)

// Bar is one daily OHLCV candle.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// FinancialMetrics is the fundamentals snapshot the analysts read. Fields
// the API omits stay at zero; analysts treat zero as "not available".
type FinancialMetrics struct {
	Ticker                 string
	ReportPeriod           string
	MarketCap              float64
	PriceToEarningsRatio   float64
	PriceToBookRatio       float64
	PriceToSalesRatio      float64
	ReturnOnEquity         float64
	NetMargin              float64
	OperatingMargin        float64
	RevenueGrowth          float64
	EarningsGrowth         float64
	BookValueGrowth        float64
	CurrentRatio           float64
	DebtToEquity           float64
	FreeCashFlowPerShare   float64
	EarningsPerShare       float64
	PayoutRatio            float64
	ReturnOnInvestedCapital float64
}

// InsiderTrade is a single reported insider transaction.
type InsiderTrade struct {
	Ticker          string
	Name            string
	TransactionDate time.Time
	Shares          float64
	Value           float64
}

// NewsItem is one company news headline with optional pre-scored sentiment.
type NewsItem struct {
	Ticker    string
	Title     string
	Source    string
	Date      time.Time
	Sentiment string // "positive" | "negative" | "neutral" | ""
}

// Provider serves the market data the analysts and the risk layer consume.
type Provider interface {
	Prices(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error)
	LatestPrice(ctx context.Context, ticker string, asOf time.Time) (float64, error)
	Metrics(ctx context.Context, ticker string, asOf time.Time) (*FinancialMetrics, error)
	InsiderTrades(ctx context.Context, ticker string, asOf time.Time, limit int) ([]InsiderTrade, error)
	News(ctx context.Context, ticker string, asOf time.Time, limit int) ([]NewsItem, error)
}
