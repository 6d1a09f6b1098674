package app

import (
	"context"
	"fmt"
	"time"

	"alphadesk/internal/backtest"
)

// RunBacktest replays the configured date range and persists the run.
func (a *App) RunBacktest(ctx context.Context) (*backtest.Result, error) {
	if a == nil || a.cfg == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	cfg := a.cfg.Backtest
	start, err := time.Parse("2006-01-02", cfg.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid backtest start date %q: %w", cfg.StartDate, err)
	}
	end, err := time.Parse("2006-01-02", cfg.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid backtest end date %q: %w", cfg.EndDate, err)
	}

	bt, err := backtest.New(backtest.Options{
		Tickers:     a.cfg.Trading.Tickers,
		Committee:   a.committee,
		Aggregator:  a.aggregator,
		Data:        a.cache,
		Store:       a.backtests,
		ReportDir:   cfg.ReportDir,
		SnapshotPNG: cfg.SnapshotPNG,
	})
	if err != nil {
		return nil, err
	}
	return bt.Run(ctx, start, end, cfg.InitialCash)
}
