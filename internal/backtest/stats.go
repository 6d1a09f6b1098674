package backtest

import "math"

const (
	riskFreeAnnual = 0.0434
	tradingDays    = 252
)

// Stats summarizes a completed run from its daily portfolio values.
type Stats struct {
	TotalReturnPct float64 `json:"total_return_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	SortinoRatio   float64 `json:"sortino_ratio"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	WinRatePct     float64 `json:"win_rate_pct"`
}

// ComputeStats derives return statistics from the daily value series. Sharpe
// and Sortino are annualized against the treasury risk-free rate; drawdown is
// the worst peak-to-trough move in percent (negative or zero).
func ComputeStats(values []float64) Stats {
	var s Stats
	if len(values) < 2 || values[0] == 0 {
		return s
	}
	s.TotalReturnPct = (values[len(values)-1]/values[0] - 1) * 100

	dailyRF := riskFreeAnnual / tradingDays
	returns := make([]float64, 0, len(values)-1)
	wins := 0
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		r := values[i]/values[i-1] - 1
		returns = append(returns, r)
		if r > 0 {
			wins++
		}
	}
	if len(returns) == 0 {
		return s
	}
	s.WinRatePct = float64(wins) / float64(len(returns)) * 100

	meanExcess := 0.0
	for _, r := range returns {
		meanExcess += r - dailyRF
	}
	meanExcess /= float64(len(returns))

	variance := 0.0
	downsideVariance := 0.0
	downsideCount := 0
	for _, r := range returns {
		d := r - dailyRF - meanExcess
		variance += d * d
		if r < dailyRF {
			dd := r - dailyRF
			downsideVariance += dd * dd
			downsideCount++
		}
	}
	variance /= float64(len(returns))
	if std := math.Sqrt(variance); std > 0 {
		s.SharpeRatio = meanExcess / std * math.Sqrt(tradingDays)
	}
	if downsideCount > 0 {
		downsideDev := math.Sqrt(downsideVariance / float64(downsideCount))
		if downsideDev > 0 {
			s.SortinoRatio = meanExcess / downsideDev * math.Sqrt(tradingDays)
		}
	}

	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (v - peak) / peak
			if dd < maxDD {
				maxDD = dd
			}
		}
	}
	s.MaxDrawdownPct = maxDD * 100
	return s
}
