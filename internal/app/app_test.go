package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"alphadesk/internal/config"
	"alphadesk/internal/marketdata"
	"alphadesk/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quietProvider serves a price and nothing else, so every analyst either
// errors out or votes neutral and each cycle lands on hold.
type quietProvider struct{}

func (quietProvider) Prices(context.Context, string, time.Time, time.Time) ([]marketdata.Bar, error) {
	return nil, nil
}

func (quietProvider) LatestPrice(context.Context, string, time.Time) (float64, error) {
	return 100, nil
}

func (quietProvider) Metrics(context.Context, string, time.Time) (*marketdata.FinancialMetrics, error) {
	return nil, errors.New("unavailable")
}

func (quietProvider) InsiderTrades(context.Context, string, time.Time, int) ([]marketdata.InsiderTrade, error) {
	return nil, errors.New("unavailable")
}

func (quietProvider) News(context.Context, string, time.Time, int) ([]marketdata.NewsItem, error) {
	return nil, errors.New("unavailable")
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		App: config.AppConfig{
			LogLevel: "warn",
			HTTPAddr: ":0",
		},
		Trading: config.TradingConfig{
			Mode:                 "paper",
			Policy:               "rules",
			Tickers:              []string{"AAPL"},
			InitialCash:          10000,
			CycleIntervalSeconds: 3600,
		},
		MarketData: config.MarketDataConfig{CacheTTLSeconds: 60},
		Store: config.StoreConfig{
			BacktestDBPath:  filepath.Join(dir, "backtests.db"),
			DecisionLogPath: filepath.Join(dir, "decisions.db"),
		},
		Backtest: config.BacktestConfig{
			StartDate:   "2024-01-05",
			EndDate:     "2024-01-05",
			InitialCash: 10000,
		},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	b := NewAppBuilder(testConfig(t))
	b.dataFn = func(config.MarketDataConfig) marketdata.Provider { return quietProvider{} }
	app, err := b.Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

func TestBuildPaperApp(t *testing.T) {
	app := newTestApp(t)
	assert.NotNil(t, app.runner)
	assert.NotNil(t, app.server)
	assert.NotNil(t, app.backtests)
}

func TestRunOnceHoldsOnQuietData(t *testing.T) {
	app := newTestApp(t)
	result, err := app.RunOnce(context.Background())
	require.NoError(t, err)
	require.Contains(t, result.Decisions, "AAPL")
	assert.Equal(t, types.ActionHold, result.Decisions["AAPL"].Action)
	assert.InDelta(t, 10000.0, result.Portfolio.Cash, 1e-6)
}

func TestRunBacktestRejectsBadDates(t *testing.T) {
	app := newTestApp(t)
	app.cfg.Backtest.StartDate = "not-a-date"
	_, err := app.RunBacktest(context.Background())
	assert.ErrorContains(t, err, "invalid backtest start date")
}

func TestNewAppRejectsNilConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}
