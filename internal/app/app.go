// Package app assembles the configured components into a runnable desk:
// the cycle loop, the HTTP API and the backtest entrypoint.
package app

import (
	"context"
	"fmt"
	"time"

	"alphadesk/internal/analyst"
	"alphadesk/internal/config"
	"alphadesk/internal/logger"
	"alphadesk/internal/marketdata"
	"alphadesk/internal/runner"
	"alphadesk/internal/signal"
	"alphadesk/internal/store/gormstore"
	apihttp "alphadesk/internal/transport/http"

	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg    *config.Config
	runner *runner.Runner
	server *apihttp.Server

	committee  *analyst.Committee
	aggregator *signal.Aggregator
	cache      *marketdata.Cache
	backtests  *gormstore.Store

	closers []func() error
}

// NewApp builds the application from a validated config without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run starts the HTTP API and the trading loop, and blocks until ctx is
// cancelled or either part fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.runner == nil {
		return fmt.Errorf("trading runner not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.server != nil {
		group.Go(func() error {
			logger.Infof("api server listening on %s", a.server.Addr())
			if err := a.server.Start(ctx); err != nil {
				return fmt.Errorf("api server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		interval := time.Duration(a.cfg.Trading.CycleIntervalSeconds) * time.Second
		return a.runner.Loop(ctx, interval, a.cfg.Trading.RunImmediately)
	})

	err := group.Wait()
	a.Close()
	return err
}

// RunOnce executes a single trading cycle and returns its result.
func (a *App) RunOnce(ctx context.Context) (*runner.CycleResult, error) {
	if a == nil || a.runner == nil {
		return nil, fmt.Errorf("trading runner not initialized")
	}
	return a.runner.RunCycle(ctx)
}

// Close releases store handles. Safe to call more than once.
func (a *App) Close() {
	if a == nil {
		return
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			logger.Warnf("close failed: %v", err)
		}
	}
	a.closers = nil
}
