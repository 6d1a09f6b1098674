package backtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"alphadesk/internal/analyst"
	"alphadesk/internal/marketdata"
	"alphadesk/internal/signal"
	"alphadesk/internal/store/gormstore"
	"alphadesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStatsTooShort(t *testing.T) {
	assert.Equal(t, Stats{}, ComputeStats(nil))
	assert.Equal(t, Stats{}, ComputeStats([]float64{10000}))
	assert.Equal(t, Stats{}, ComputeStats([]float64{0, 10000}))
}

func TestComputeStatsFlatSeries(t *testing.T) {
	s := ComputeStats([]float64{10000, 10000, 10000})
	assert.Zero(t, s.TotalReturnPct)
	assert.Zero(t, s.WinRatePct)
	assert.Zero(t, s.MaxDrawdownPct)
	// Identical returns have zero deviation, so the ratios stay zero.
	assert.Zero(t, s.SharpeRatio)
	assert.Zero(t, s.SortinoRatio)
}

func TestComputeStatsSharpe(t *testing.T) {
	// Daily returns of +2% then 0%: mean excess 0.01-rf over a 0.01 std.
	s := ComputeStats([]float64{100, 102, 102})
	assert.InDelta(t, 2.0, s.TotalReturnPct, 1e-9)
	assert.InDelta(t, 50.0, s.WinRatePct, 1e-9)
	assert.InDelta(t, 15.601, s.SharpeRatio, 0.01)
	assert.Greater(t, s.SortinoRatio, s.SharpeRatio)
	assert.Zero(t, s.MaxDrawdownPct)
}

func TestComputeStatsMaxDrawdown(t *testing.T) {
	s := ComputeStats([]float64{100, 120, 90, 100})
	assert.InDelta(t, -25.0, s.MaxDrawdownPct, 1e-9)
	assert.InDelta(t, 0.0, s.TotalReturnPct, 1e-9)
}

func TestComputeStatsLosingSeries(t *testing.T) {
	s := ComputeStats([]float64{100, 95, 90, 85})
	assert.Less(t, s.TotalReturnPct, 0.0)
	assert.Less(t, s.SharpeRatio, 0.0)
	assert.Less(t, s.SortinoRatio, 0.0)
	assert.Zero(t, s.WinRatePct)
	assert.InDelta(t, -15.0, s.MaxDrawdownPct, 1e-9)
}

type fixedAnalyst struct {
	name   string
	signal types.AnalystSignal
}

func (f *fixedAnalyst) Name() string { return f.name }

func (f *fixedAnalyst) Analyze(context.Context, string, time.Time) (types.AnalystSignal, error) {
	return f.signal, nil
}

type fixedPriceProvider struct {
	price float64
}

func (f *fixedPriceProvider) Prices(context.Context, string, time.Time, time.Time) ([]marketdata.Bar, error) {
	return nil, nil
}

func (f *fixedPriceProvider) LatestPrice(context.Context, string, time.Time) (float64, error) {
	return f.price, nil
}

func (f *fixedPriceProvider) Metrics(context.Context, string, time.Time) (*marketdata.FinancialMetrics, error) {
	return &marketdata.FinancialMetrics{}, nil
}

func (f *fixedPriceProvider) InsiderTrades(context.Context, string, time.Time, int) ([]marketdata.InsiderTrade, error) {
	return nil, nil
}

func (f *fixedPriceProvider) News(context.Context, string, time.Time, int) ([]marketdata.NewsItem, error) {
	return nil, nil
}

func newTestBacktester(t *testing.T, price float64) (*Backtester, *gormstore.Store) {
	t.Helper()
	weights, err := signal.NewWeightsRegistry("")
	require.NoError(t, err)

	store, err := gormstore.New(filepath.Join(t.TempDir(), "backtests.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	committee := analyst.NewCommittee(&fixedAnalyst{
		name:   "technical_analyst_agent",
		signal: types.AnalystSignal{Direction: types.Bullish, Confidence: 85, Reasoning: "uptrend"},
	})
	bt, err := New(Options{
		Tickers:    []string{"AAPL"},
		Committee:  committee,
		Aggregator: signal.NewAggregator(weights),
		Data:       &fixedPriceProvider{price: price},
		Store:      store,
	})
	require.NoError(t, err)
	return bt, store
}

func TestRunBullishAccumulation(t *testing.T) {
	bt, store := newTestBacktester(t, 50)

	// Friday through Tuesday: three business days, the weekend is skipped.
	start := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)
	result, err := bt.Run(context.Background(), start, end, 10000)
	require.NoError(t, err)

	require.Len(t, result.Equity, 3)
	assert.Equal(t, "2024-01-05", result.Equity[0].Day)
	assert.Equal(t, "2024-01-08", result.Equity[1].Day)
	assert.Equal(t, "2024-01-09", result.Equity[2].Day)
	// Buying at a constant price moves cash into shares without changing
	// total value.
	for _, point := range result.Equity {
		assert.InDelta(t, 10000.0, point.Value, 1e-6)
	}
	assert.InDelta(t, 10000.0, result.FinalValue, 1e-6)
	assert.Zero(t, result.Stats.TotalReturnPct)

	records, err := store.ListRecords(context.Background(), result.RunID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	// 85% conviction buys three quarters of the permitted shares each day:
	// the 20% exposure cap shrinks as the position grows.
	assert.Equal(t, "buy", records[0].Action)
	assert.Equal(t, 30, records[0].Quantity)
	assert.Equal(t, 7, records[1].Quantity)
	assert.Equal(t, 2, records[2].Quantity)
	assert.Equal(t, 39, records[2].Shares)
	assert.InDelta(t, 8050.0, records[2].Cash, 1e-6)
	assert.Equal(t, 1, records[0].BullishCount)
	assert.Zero(t, records[0].BearishCount)

	run, err := store.GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05", run.StartDate)
	assert.InDelta(t, 10000.0, run.FinalValue, 1e-6)
	assert.JSONEq(t, `["AAPL"]`, string(run.Tickers))

	signals, err := store.ListSignals(context.Background(), result.RunID, "AAPL")
	require.NoError(t, err)
	require.Len(t, signals, 3)
	assert.Equal(t, "technical_analyst_agent", signals[0].Analyst)
	assert.Equal(t, "bullish", signals[0].Direction)
}

func TestRunValidation(t *testing.T) {
	bt, _ := newTestBacktester(t, 50)
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	_, err := bt.Run(context.Background(), day, day.AddDate(0, 0, -1), 10000)
	assert.ErrorContains(t, err, "before start")

	_, err = bt.Run(context.Background(), day, day, 0)
	assert.ErrorContains(t, err, "initial cash")

	// A weekend-only range yields no business days.
	sat := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	_, err = bt.Run(context.Background(), sat, sat.AddDate(0, 0, 1), 10000)
	assert.ErrorContains(t, err, "no business days")
}

func TestNewRequiresComponents(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{Tickers: []string{"AAPL"}})
	assert.ErrorContains(t, err, "missing required component")
}
