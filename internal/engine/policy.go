package engine

import (
	"context"

	"alphadesk/internal/types"
)

// Input carries everything a policy may consult for one ticker's decision.
type Input struct {
	Ticker        string
	Aggregated    types.AggregatedConfidence
	Bundle        types.SignalBundle
	Envelope      types.RiskEnvelope
	CurrentShares int
	Portfolio     types.PortfolioSnapshot
}

// Policy produces one decision per ticker. The tiered rules policy is the
// default; the llm policy delegates the call to a model but enforces the same
// quantity bounds afterwards.
type Policy interface {
	Name() string
	Decide(ctx context.Context, in Input) (types.TradingDecision, error)
}

// RulesPolicy is the deterministic tier table.
type RulesPolicy struct {
	engine *Engine
}

func NewRulesPolicy() *RulesPolicy {
	return &RulesPolicy{engine: New()}
}

func (p *RulesPolicy) Name() string { return "rules" }

func (p *RulesPolicy) Decide(_ context.Context, in Input) (types.TradingDecision, error) {
	return p.engine.Decide(in.Ticker, in.Aggregated, in.Envelope, in.CurrentShares)
}
