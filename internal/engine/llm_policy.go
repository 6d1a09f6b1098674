package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"alphadesk/internal/logger"
	"alphadesk/internal/types"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// Completer is the narrow oracle surface the llm policy needs.
type Completer interface {
	Complete(ctx context.Context, purpose, systemPrompt, userPrompt string) (string, error)
}

const llmDecisionSchema = `{
	"type": "object",
	"required": ["action", "quantity"],
	"properties": {
		"action": {"type": "string", "enum": ["buy", "sell", "hold"]},
		"quantity": {"type": "integer", "minimum": 0},
		"confidence": {"type": "number", "minimum": 0, "maximum": 100},
		"reasoning": {"type": "string"}
	}
}`

const llmSystemPrompt = `You are a portfolio manager making a final trading decision for one ticker.
Rules you must follow:
- Only buy when the committee is bullish and you have spare buying capacity.
- Never buy more than the permitted maximum shares.
- Never sell more shares than currently held.
- When in doubt, hold.
Respond with a single JSON object: {"action": "buy"|"sell"|"hold", "quantity": <int>, "confidence": <0-100>, "reasoning": "<short>"}.`

// LLMPolicy asks a model for the decision, then holds it to the same bounds
// the rules policy enforces. Any model or parse failure degrades to hold so
// one flaky completion can never halt a cycle.
type LLMPolicy struct {
	oracle Completer
	schema *jsonschema.Schema
}

func NewLLMPolicy(oracle Completer) (*LLMPolicy, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("decision.json", strings.NewReader(llmDecisionSchema)); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile("decision.json")
	if err != nil {
		return nil, err
	}
	return &LLMPolicy{oracle: oracle, schema: schema}, nil
}

func (p *LLMPolicy) Name() string { return "llm" }

func (p *LLMPolicy) Decide(ctx context.Context, in Input) (types.TradingDecision, error) {
	raw, err := p.oracle.Complete(ctx, "decision:"+in.Ticker, llmSystemPrompt, buildDecisionPrompt(in))
	if err != nil {
		logger.Warnf("[policy] oracle failed for %s, defaulting to hold: %v", in.Ticker, err)
		return holdOnError(err), nil
	}
	decision, err := p.parseDecision(raw)
	if err != nil {
		logger.Warnf("[policy] unusable completion for %s, defaulting to hold: %v", in.Ticker, err)
		return holdOnError(err), nil
	}
	return clampDecision(decision, in), nil
}

func buildDecisionPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticker: %s\n", in.Ticker)
	fmt.Fprintf(&b, "Committee verdict: %s\n", in.Aggregated)
	fmt.Fprintf(&b, "Current position: %d shares\n", in.CurrentShares)
	fmt.Fprintf(&b, "Maximum shares permitted to buy: %d\n", in.Envelope.MaxShares)
	fmt.Fprintf(&b, "Current price: %.2f\n", in.Envelope.CurrentPrice)
	fmt.Fprintf(&b, "Cash available: %.2f\n\n", in.Portfolio.Cash)

	b.WriteString("Analyst signals:\n")
	names := make([]string, 0, len(in.Bundle))
	for name := range in.Bundle {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sig := in.Bundle[name]
		fmt.Fprintf(&b, "- %s: %s %.1f%%", name, sig.Direction, sig.Confidence)
		if sig.Reasoning != "" {
			fmt.Fprintf(&b, " (%s)", sig.Reasoning)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (p *LLMPolicy) parseDecision(raw string) (types.TradingDecision, error) {
	payload := extractJSONObject(raw)
	if payload == "" {
		return types.TradingDecision{}, fmt.Errorf("completion contains no JSON object")
	}
	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return types.TradingDecision{}, fmt.Errorf("completion is not valid JSON: %w", err)
	}
	if err := p.schema.Validate(doc); err != nil {
		return types.TradingDecision{}, fmt.Errorf("completion failed schema validation: %w", err)
	}
	parsed := gjson.Parse(payload)
	action, err := types.ParseAction(parsed.Get("action").String())
	if err != nil {
		return types.TradingDecision{}, err
	}
	return types.TradingDecision{
		Action:     action,
		Quantity:   int(parsed.Get("quantity").Int()),
		Confidence: parsed.Get("confidence").Float(),
		Reasoning:  parsed.Get("reasoning").String(),
	}, nil
}

// extractJSONObject tolerates completions wrapped in markdown fences or
// surrounded by prose.
func extractJSONObject(raw string) string {
	raw = strings.TrimSpace(raw)
	if idx := strings.Index(raw, "```"); idx >= 0 {
		rest := raw[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		raw = strings.TrimSpace(rest)
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

func clampDecision(d types.TradingDecision, in Input) types.TradingDecision {
	if d.Confidence < 0 {
		d.Confidence = 0
	}
	if d.Confidence > 100 {
		d.Confidence = 100
	}
	switch d.Action {
	case types.ActionBuy:
		if d.Quantity > in.Envelope.MaxShares {
			d.Quantity = in.Envelope.MaxShares
		}
	case types.ActionSell:
		if in.CurrentShares > 0 && d.Quantity > in.CurrentShares {
			d.Quantity = in.CurrentShares
		}
	}
	if d.Action != types.ActionHold && d.Quantity <= 0 {
		return types.Hold(fmt.Sprintf("model proposed %s with no executable quantity", d.Action))
	}
	return d
}

func holdOnError(err error) types.TradingDecision {
	return types.Hold(fmt.Sprintf("error in decision model, defaulting to hold: %v", err))
}
