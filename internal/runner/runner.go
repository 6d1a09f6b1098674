// Package runner orchestrates trading cycles: analyst fan-out, aggregation,
// risk sizing, the decision policy, order translation and execution, with
// every decision appended to the decision log.
package runner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"alphadesk/internal/analyst"
	"alphadesk/internal/broker"
	"alphadesk/internal/engine"
	"alphadesk/internal/executor"
	"alphadesk/internal/logger"
	"alphadesk/internal/marketdata"
	"alphadesk/internal/order"
	"alphadesk/internal/portfolio"
	"alphadesk/internal/risk"
	"alphadesk/internal/signal"
	"alphadesk/internal/store/decisionlog"
	"alphadesk/internal/types"
)

// Options wires a Runner. Cache and DecisionLog are optional.
type Options struct {
	Tickers     []string
	Live        bool
	Committee   *analyst.Committee
	Aggregator  *signal.Aggregator
	Risk        *risk.Calculator
	Policy      engine.Policy
	Translator  *order.Translator
	Coordinator *executor.Coordinator
	Broker      broker.Broker
	Data        marketdata.Provider
	Cache       *marketdata.Cache
	State       *portfolio.State
	DecisionLog *decisionlog.Store
}

// CycleResult is the outcome of one full trading cycle.
type CycleResult struct {
	At         time.Time
	Portfolio  types.PortfolioSnapshot
	Bundles    map[string]types.SignalBundle
	Decisions  map[string]types.TradingDecision
	Executions map[string]types.ExecutionResult
}

type Runner struct {
	opts Options
}

func New(opts Options) (*Runner, error) {
	if len(opts.Tickers) == 0 {
		return nil, fmt.Errorf("runner: tickers are required")
	}
	if opts.Committee == nil || opts.Aggregator == nil || opts.Risk == nil ||
		opts.Policy == nil || opts.Translator == nil || opts.Coordinator == nil ||
		opts.Broker == nil || opts.Data == nil || opts.State == nil {
		return nil, fmt.Errorf("runner: missing required component")
	}
	tickers := make([]string, len(opts.Tickers))
	for i, t := range opts.Tickers {
		tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	sort.Strings(tickers)
	opts.Tickers = tickers
	return &Runner{opts: opts}, nil
}

// RunCycle executes one complete decision cycle as of now.
func (r *Runner) RunCycle(ctx context.Context) (*CycleResult, error) {
	started := time.Now()
	logger.Infof("cycle starting: %d tickers, mode=%s, policy=%s",
		len(r.opts.Tickers), r.mode(), r.opts.Policy.Name())

	if r.opts.Cache != nil {
		r.opts.Cache.Invalidate()
	}
	if err := r.syncPortfolio(ctx); err != nil {
		return nil, fmt.Errorf("syncing portfolio failed: %w", err)
	}

	result := &CycleResult{
		At:        started,
		Bundles:   make(map[string]types.SignalBundle, len(r.opts.Tickers)),
		Decisions: make(map[string]types.TradingDecision, len(r.opts.Tickers)),
	}

	snapshot := r.opts.State.Snapshot()
	result.Portfolio = snapshot

	for _, ticker := range r.opts.Tickers {
		decision, bundle, err := r.decideTicker(ctx, ticker, snapshot)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Errorf("cycle: %s decision failed, holding: %v", ticker, err)
			decision = types.Hold(fmt.Sprintf("cycle error: %v", err))
		}
		result.Bundles[ticker] = bundle
		result.Decisions[ticker] = decision
	}

	result.Executions = r.opts.Coordinator.Execute(ctx, result.Decisions)
	r.logDecisions(ctx, result)
	logger.InfoBlock(renderCycleSummary(result))
	return result, nil
}

func (r *Runner) decideTicker(ctx context.Context, ticker string, snapshot types.PortfolioSnapshot) (types.TradingDecision, types.SignalBundle, error) {
	asOf := time.Now()

	bundle, err := r.opts.Committee.Run(ctx, ticker, asOf)
	if err != nil {
		return types.TradingDecision{}, nil, err
	}
	agg, err := r.opts.Aggregator.Aggregate(bundle)
	if err != nil {
		return types.TradingDecision{}, bundle, err
	}

	price, err := r.opts.Data.LatestPrice(ctx, ticker, asOf)
	if err != nil {
		return types.TradingDecision{}, bundle, err
	}
	envelope, err := r.opts.Risk.Compute(ticker, snapshot, price)
	if err != nil {
		return types.TradingDecision{}, bundle, err
	}

	decision, err := r.opts.Policy.Decide(ctx, engine.Input{
		Ticker:        ticker,
		Aggregated:    agg,
		Bundle:        bundle,
		Envelope:      envelope,
		CurrentShares: snapshot.Shares(ticker),
		Portfolio:     snapshot,
	})
	if err != nil {
		return types.TradingDecision{}, bundle, err
	}

	decision, err = r.opts.Translator.Translate(ticker, decision, price)
	if err != nil {
		return types.TradingDecision{}, bundle, err
	}
	logger.Infof("cycle: %s verdict %s -> %s %d (%s)", ticker, agg, decision.Action, decision.Quantity, decision.Reasoning)
	return decision, bundle, nil
}

// syncPortfolio refreshes the book from the broker in live mode. Paper mode
// keeps the local book authoritative.
func (r *Runner) syncPortfolio(ctx context.Context) error {
	if !r.opts.Live {
		return nil
	}
	account, err := r.opts.Broker.GetAccount(ctx)
	if err != nil {
		return err
	}
	positions, err := r.opts.Broker.GetAllPositions(ctx)
	if err != nil {
		return err
	}
	*r.opts.State = *portfolio.NewStateFromBroker(account, positions)
	logger.Debugf("portfolio synced from %s: cash=%.2f positions=%d",
		r.opts.Broker.Name(), account.Cash, len(positions))
	return nil
}

func (r *Runner) logDecisions(ctx context.Context, result *CycleResult) {
	if r.opts.DecisionLog == nil {
		return
	}
	for _, ticker := range r.opts.Tickers {
		decision := result.Decisions[ticker]
		entry := decisionlog.Entry{
			TS:         result.At.Unix(),
			Ticker:     ticker,
			Action:     string(decision.Action),
			Quantity:   decision.Quantity,
			Confidence: decision.Confidence,
			Reasoning:  decision.Reasoning,
			Policy:     r.opts.Policy.Name(),
			Mode:       r.mode(),
			Signals:    result.Bundles[ticker],
			Order:      decision.Order,
		}
		if exec, ok := result.Executions[ticker]; ok {
			exec := exec
			entry.Execution = &exec
		}
		if _, err := r.opts.DecisionLog.Append(ctx, entry); err != nil {
			logger.Warnf("decision log append failed for %s: %v", ticker, err)
		}
	}
}

// Loop runs cycles on a fixed interval until the context is cancelled.
func (r *Runner) Loop(ctx context.Context, interval time.Duration, runImmediately bool) error {
	if interval <= 0 {
		return fmt.Errorf("runner: loop interval must be positive")
	}
	if runImmediately {
		if _, err := r.RunCycle(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("cycle failed: %v", err)
		}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RunCycle(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Errorf("cycle failed: %v", err)
			}
		}
	}
}

func (r *Runner) mode() string {
	if r.opts.Live {
		return "live"
	}
	return "paper"
}

func renderCycleSummary(result *CycleResult) string {
	var b strings.Builder
	b.WriteString("cycle summary @ " + result.At.Format(time.RFC3339) + "\n")

	tickers := make([]string, 0, len(result.Decisions))
	for ticker := range result.Decisions {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	submitted, failed := 0, 0
	for _, ticker := range tickers {
		decision := result.Decisions[ticker]
		line := fmt.Sprintf("  %-6s %-5s qty=%-5d conf=%5.1f%%", ticker, decision.Action, decision.Quantity, decision.Confidence)
		if exec, ok := result.Executions[ticker]; ok {
			if exec.Status == types.ExecutionSuccess {
				submitted++
				line += " [submitted " + exec.OrderID + "]"
			} else {
				failed++
				line += " [failed: " + exec.Error + "]"
			}
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(fmt.Sprintf("  decisions=%d submitted=%d failed=%d cash=%.2f",
		len(result.Decisions), submitted, failed, result.Portfolio.Cash))
	return b.String()
}
