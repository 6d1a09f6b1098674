package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"alphadesk/internal/analyst"
	"alphadesk/internal/broker"
	"alphadesk/internal/broker/alpaca"
	"alphadesk/internal/broker/paper"
	"alphadesk/internal/config"
	"alphadesk/internal/engine"
	"alphadesk/internal/executor"
	"alphadesk/internal/logger"
	"alphadesk/internal/marketdata"
	"alphadesk/internal/oracle"
	"alphadesk/internal/order"
	"alphadesk/internal/portfolio"
	"alphadesk/internal/risk"
	"alphadesk/internal/runner"
	"alphadesk/internal/signal"
	"alphadesk/internal/store/decisionlog"
	"alphadesk/internal/store/gormstore"
	apihttp "alphadesk/internal/transport/http"
)

// AppBuilder wires the configured stack. The function fields exist so tests
// can swap in fakes without touching the build order.
type AppBuilder struct {
	cfg *config.Config

	dataFn    func(config.MarketDataConfig) marketdata.Provider
	brokerFn  func(*config.Config, *portfolio.State, *marketdata.Cache) (broker.Broker, error)
	policyFn  func(*config.Config) (engine.Policy, error)
	weightsFn func(config.SignalsConfig) (*signal.WeightsRegistry, error)
	serverFn  func(apihttp.ServerConfig) (*apihttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:       cfg,
		dataFn:    buildMarketData,
		brokerFn:  buildBroker,
		policyFn:  buildPolicy,
		weightsFn: buildWeightsRegistry,
		serverFn:  apihttp.NewServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	app := &App{cfg: cfg}

	cache := marketdata.NewCache(
		b.dataFn(cfg.MarketData),
		time.Duration(cfg.MarketData.CacheTTLSeconds)*time.Second,
	)

	weights, err := b.weightsFn(cfg.Signals)
	if err != nil {
		return nil, fmt.Errorf("building weights registry failed: %w", err)
	}
	aggregator := signal.NewAggregator(weights)

	committee := analyst.NewCommittee(
		analyst.NewTechnicalAnalyst(cache),
		analyst.NewFundamentalsAnalyst(cache),
		analyst.NewValuationAnalyst(cache),
		analyst.NewDeepValueAnalyst(cache),
		analyst.NewSentimentAnalyst(cache),
	)

	policy, err := b.policyFn(cfg)
	if err != nil {
		return nil, err
	}

	live := cfg.Trading.IsLive()
	state := portfolio.NewState(cfg.Trading.InitialCash)
	venue, err := b.brokerFn(cfg, state, cache)
	if err != nil {
		return nil, fmt.Errorf("building broker failed: %w", err)
	}

	decisions, err := decisionlog.New(cfg.Store.DecisionLogPath)
	if err != nil {
		return nil, fmt.Errorf("opening decision log failed: %w", err)
	}
	app.closers = append(app.closers, decisions.Close)

	run, err := runner.New(runner.Options{
		Tickers:     cfg.Trading.Tickers,
		Live:        live,
		Committee:   committee,
		Aggregator:  aggregator,
		Risk:        risk.NewCalculator(live),
		Policy:      policy,
		Translator:  order.NewTranslator(live),
		Coordinator: executor.NewCoordinator(venue),
		Broker:      venue,
		Data:        cache,
		Cache:       cache,
		State:       state,
		DecisionLog: decisions,
	})
	if err != nil {
		return nil, err
	}
	app.runner = run

	backtests, err := gormstore.New(cfg.Store.BacktestDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening backtest store failed: %w", err)
	}
	app.closers = append(app.closers, backtests.Close)

	server, err := b.serverFn(apihttp.ServerConfig{
		Addr:      cfg.App.HTTPAddr,
		Decisions: decisions,
		State:     state,
		Backtests: backtests,
		Cycles:    run,
	})
	if err != nil {
		return nil, fmt.Errorf("building api server failed: %w", err)
	}
	app.server = server

	app.committee = committee
	app.aggregator = aggregator
	app.cache = cache
	app.backtests = backtests

	logger.Infof("app assembled: mode=%s policy=%s broker=%s tickers=%v",
		cfg.Trading.Mode, policy.Name(), venue.Name(), cfg.Trading.Tickers)
	return app, nil
}

func buildMarketData(cfg config.MarketDataConfig) marketdata.Provider {
	return marketdata.NewClient(cfg)
}

func buildWeightsRegistry(cfg config.SignalsConfig) (*signal.WeightsRegistry, error) {
	path := cfg.WeightsPath
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			logger.Warnf("weights file %s not readable, using built-in defaults", path)
			path = ""
		}
	}
	var (
		reg *signal.WeightsRegistry
		err error
	)
	if cfg.WatchFile {
		reg, err = signal.NewWeightsRegistry(path)
	} else {
		reg, err = signal.NewStaticWeightsRegistry(path)
	}
	if err != nil {
		return nil, err
	}
	if err := reg.ApplyOverrides(cfg.Weights); err != nil {
		return nil, err
	}
	return reg, nil
}

func buildPolicy(cfg *config.Config) (engine.Policy, error) {
	switch cfg.Trading.Policy {
	case "llm":
		client := oracle.NewChatClient(cfg.Oracle, cfg.App.OracleDump)
		return engine.NewLLMPolicy(client)
	default:
		return engine.NewRulesPolicy(), nil
	}
}

func buildBroker(cfg *config.Config, state *portfolio.State, cache *marketdata.Cache) (broker.Broker, error) {
	if cfg.Trading.IsLive() {
		return alpaca.NewClient(cfg.Broker)
	}
	return paper.New(state, func(ctx context.Context, symbol string) (float64, error) {
		return cache.LatestPrice(ctx, symbol, time.Now())
	}), nil
}
