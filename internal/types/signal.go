package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Direction is an analyst's view on a ticker.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

// ParseDirection normalizes free-form direction strings coming from analysts
// or model output. Unknown values map to Neutral so a single sloppy producer
// cannot poison aggregation.
func ParseDirection(raw string) Direction {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "bullish", "buy", "long":
		return Bullish
	case "bearish", "sell", "short":
		return Bearish
	default:
		return Neutral
	}
}

// AnalystSignal is one producer's opinion on one ticker. Immutable once
// emitted; confidence is on a 0-100 scale.
type AnalystSignal struct {
	Direction  Direction `json:"signal"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning,omitempty"`
}

// UnmarshalJSON tolerates confidence arriving as a string or being absent:
// malformed confidence values decode to 0 rather than failing the bundle.
func (s *AnalystSignal) UnmarshalJSON(data []byte) error {
	var aux struct {
		Direction  string          `json:"signal"`
		Confidence json.RawMessage `json:"confidence"`
		Reasoning  string          `json:"reasoning"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Direction = ParseDirection(aux.Direction)
	s.Reasoning = aux.Reasoning
	s.Confidence = coerceConfidence(aux.Confidence)
	return nil
}

func coerceConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			return f
		}
	}
	return 0
}

// SignalBundle maps producer name to its signal for a single ticker. The risk
// producer never appears here; any non-empty subset of the analyst set is
// valid.
type SignalBundle map[string]AnalystSignal

// AggregatedConfidence is the committee verdict for one ticker. Direction is
// always bullish or bearish; ties resolve to bullish.
type AggregatedConfidence struct {
	Confidence float64   `json:"confidence"`
	Direction  Direction `json:"direction"`
}

func (a AggregatedConfidence) String() string {
	return fmt.Sprintf("%s %.1f%%", a.Direction, a.Confidence)
}
