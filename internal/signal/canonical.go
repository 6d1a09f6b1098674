package signal

import "strings"

// Canonical producer keys used by the weight table. Analysts register under
// raw names like "technical_analyst_agent"; CanonicalKey folds those onto the
// keys below once, at ingestion, so aggregation never does ad-hoc string
// munging.
const (
	KeyFundamentals = "fundamentals"
	KeyTechnical    = "technical_analysis"
	KeyValuation    = "valuation"
	KeyDeepValue    = "warren_buffett"
	KeySentiment    = "sentiment"
)

// CanonicalKey normalizes a raw producer name: lowercase, strip an "_agent"
// suffix, and map "analyst" to "analysis".
func CanonicalKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.TrimSuffix(key, "_agent")
	key = strings.ReplaceAll(key, "analyst", "analysis")
	return key
}
