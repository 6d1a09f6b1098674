// Package backtest replays the decision cycle over historical business days
// against a simulated portfolio book and reports return statistics.
package backtest

import (
	"context"
	"fmt"
	"time"

	"alphadesk/internal/analyst"
	"alphadesk/internal/engine"
	"alphadesk/internal/logger"
	"alphadesk/internal/marketdata"
	"alphadesk/internal/portfolio"
	"alphadesk/internal/risk"
	"alphadesk/internal/signal"
	"alphadesk/internal/store/gormstore"
	"alphadesk/internal/types"

	"github.com/google/uuid"
)

const dayLayout = "2006-01-02"

// Options configures one backtest run. Store is optional; ReportDir empty
// disables the HTML report.
type Options struct {
	Tickers     []string
	Committee   *analyst.Committee
	Aggregator  *signal.Aggregator
	Data        marketdata.Provider
	Store       *gormstore.Store
	ReportDir   string
	SnapshotPNG bool
}

// DayValue is one equity-curve point.
type DayValue struct {
	Day   string
	Value float64
}

// Result is the outcome of a completed run.
type Result struct {
	RunID      string
	Stats      Stats
	FinalValue float64
	Equity     []DayValue
	ReportPath string
}

type Backtester struct {
	opts   Options
	risk   *risk.Calculator
	policy engine.Policy
}

func New(opts Options) (*Backtester, error) {
	if len(opts.Tickers) == 0 {
		return nil, fmt.Errorf("backtest: tickers are required")
	}
	if opts.Committee == nil || opts.Aggregator == nil || opts.Data == nil {
		return nil, fmt.Errorf("backtest: missing required component")
	}
	return &Backtester{
		opts:   opts,
		risk:   risk.NewCalculator(false),
		policy: engine.NewRulesPolicy(),
	}, nil
}

// Run replays start..end (inclusive), skipping weekends. Trades fill at the
// day's closing price against the simulated book.
func (b *Backtester) Run(ctx context.Context, start, end time.Time, initialCash float64) (*Result, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("backtest: end %s before start %s", end.Format(dayLayout), start.Format(dayLayout))
	}
	if initialCash <= 0 {
		return nil, fmt.Errorf("backtest: initial cash must be positive")
	}

	runID := uuid.NewString()
	state := portfolio.NewState(initialCash)
	logger.Infof("backtest %s starting: %v from %s to %s, cash %.2f",
		runID, b.opts.Tickers, start.Format(dayLayout), end.Format(dayLayout), initialCash)

	var (
		equity  []DayValue
		records []gormstore.RecordModel
		signals []gormstore.SignalModel
	)

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dayStr := day.Format(dayLayout)
		prices := make(map[string]float64, len(b.opts.Tickers))
		snapshot := state.Snapshot()

		for _, ticker := range b.opts.Tickers {
			price, err := b.opts.Data.LatestPrice(ctx, ticker, day)
			if err != nil || price <= 0 {
				logger.Warnf("backtest %s: no price for %s on %s, skipping", runID, ticker, dayStr)
				continue
			}
			prices[ticker] = price

			bundle, err := b.opts.Committee.Run(ctx, ticker, day)
			if err != nil {
				return nil, err
			}
			agg, err := b.opts.Aggregator.Aggregate(bundle)
			if err != nil {
				logger.Warnf("backtest %s: aggregation failed for %s on %s: %v", runID, ticker, dayStr, err)
				continue
			}
			envelope, err := b.risk.Compute(ticker, snapshot, price)
			if err != nil {
				continue
			}
			decision, err := b.policy.Decide(ctx, engine.Input{
				Ticker:        ticker,
				Aggregated:    agg,
				Bundle:        bundle,
				Envelope:      envelope,
				CurrentShares: snapshot.Shares(ticker),
				Portfolio:     snapshot,
			})
			if err != nil {
				logger.Warnf("backtest %s: decision failed for %s on %s: %v", runID, ticker, dayStr, err)
				continue
			}

			executed, err := state.Apply(ticker, decision.Action, decision.Quantity, price)
			if err != nil {
				return nil, err
			}

			daySnap := state.Snapshot()
			bull, bear, neutral := countDirections(bundle)
			records = append(records, gormstore.RecordModel{
				RunID:         runID,
				Day:           dayStr,
				Ticker:        ticker,
				Action:        string(decision.Action),
				Quantity:      executed,
				Price:         price,
				Shares:        daySnap.Shares(ticker),
				PositionValue: float64(daySnap.Shares(ticker)) * price,
				Cash:          daySnap.Cash,
				BullishCount:  bull,
				BearishCount:  bear,
				NeutralCount:  neutral,
			})
			for name, sig := range bundle {
				signals = append(signals, gormstore.SignalModel{
					RunID:      runID,
					Day:        dayStr,
					Ticker:     ticker,
					Analyst:    name,
					Direction:  string(sig.Direction),
					Confidence: sig.Confidence,
					Reasoning:  sig.Reasoning,
				})
			}
			// Re-snapshot so later tickers the same day see the updated book.
			snapshot = daySnap
		}

		total := state.TotalValue(prices)
		equity = append(equity, DayValue{Day: dayStr, Value: total})
		for i := range records {
			if records[i].Day == dayStr {
				records[i].TotalValue = total
			}
		}
	}

	if len(equity) == 0 {
		return nil, fmt.Errorf("backtest: no business days in range")
	}

	values := make([]float64, len(equity))
	days := make([]string, len(equity))
	for i, point := range equity {
		values[i] = point.Value
		days[i] = point.Day
	}
	result := &Result{
		RunID:      runID,
		Stats:      ComputeStats(values),
		FinalValue: values[len(values)-1],
		Equity:     equity,
	}

	if b.opts.ReportDir != "" {
		path, err := WriteEquityCurve(b.opts.ReportDir, runID, days, values)
		if err != nil {
			logger.Warnf("backtest %s: report generation failed: %v", runID, err)
		} else {
			result.ReportPath = path
			if b.opts.SnapshotPNG {
				if _, err := SnapshotPNG(ctx, path); err != nil {
					logger.Warnf("backtest %s: %v", runID, err)
				}
			}
		}
	}

	if err := b.persist(ctx, start, end, initialCash, result, records, signals); err != nil {
		return nil, err
	}

	logger.InfoBlock(renderRunSummary(result, initialCash))
	return result, nil
}

func (b *Backtester) persist(ctx context.Context, start, end time.Time, initialCash float64, result *Result, records []gormstore.RecordModel, signals []gormstore.SignalModel) error {
	if b.opts.Store == nil {
		return nil
	}
	run := &gormstore.RunModel{
		ID:             result.RunID,
		StartDate:      start.Format(dayLayout),
		EndDate:        end.Format(dayLayout),
		Tickers:        gormstore.TickersJSON(b.opts.Tickers),
		InitialCash:    initialCash,
		FinalValue:     result.FinalValue,
		TotalReturnPct: result.Stats.TotalReturnPct,
		SharpeRatio:    result.Stats.SharpeRatio,
		SortinoRatio:   result.Stats.SortinoRatio,
		MaxDrawdownPct: result.Stats.MaxDrawdownPct,
		WinRatePct:     result.Stats.WinRatePct,
		ReportPath:     result.ReportPath,
		CreatedAt:      time.Now(),
	}
	if err := b.opts.Store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("persisting run failed: %w", err)
	}
	if err := b.opts.Store.AppendRecords(ctx, records); err != nil {
		return fmt.Errorf("persisting records failed: %w", err)
	}
	if err := b.opts.Store.AppendSignals(ctx, signals); err != nil {
		return fmt.Errorf("persisting signals failed: %w", err)
	}
	return nil
}

func countDirections(bundle types.SignalBundle) (bull, bear, neutral int) {
	for _, sig := range bundle {
		switch sig.Direction {
		case types.Bullish:
			bull++
		case types.Bearish:
			bear++
		default:
			neutral++
		}
	}
	return
}

func renderRunSummary(result *Result, initialCash float64) string {
	return fmt.Sprintf(
		"backtest %s finished\n  initial=%.2f final=%.2f return=%+.2f%%\n  sharpe=%.2f sortino=%.2f maxdd=%.2f%% winrate=%.1f%%",
		result.RunID, initialCash, result.FinalValue, result.Stats.TotalReturnPct,
		result.Stats.SharpeRatio, result.Stats.SortinoRatio, result.Stats.MaxDrawdownPct, result.Stats.WinRatePct)
}
