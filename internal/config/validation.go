package config

import (
	"fmt"
	"strings"
	"time"
)

func validate(c *Config) error {
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Signals.validate(); err != nil {
		return err
	}
	if err := c.Broker.validate(c.Trading.IsLive()); err != nil {
		return err
	}
	if err := c.Oracle.validate(c.Trading.Policy); err != nil {
		return err
	}
	if err := c.Backtest.validate(); err != nil {
		return err
	}
	return nil
}

func (t *TradingConfig) validate() error {
	mode := strings.ToLower(strings.TrimSpace(t.Mode))
	if mode != "paper" && mode != "live" {
		return fmt.Errorf("trading.mode only supports 'paper' or 'live', got %s", t.Mode)
	}
	policy := strings.ToLower(strings.TrimSpace(t.Policy))
	if policy != "rules" && policy != "llm" {
		return fmt.Errorf("trading.policy only supports 'rules' or 'llm', got %s", t.Policy)
	}
	if len(t.Tickers) == 0 {
		return fmt.Errorf("trading.tickers requires at least one ticker")
	}
	seen := make(map[string]bool, len(t.Tickers))
	for _, ticker := range t.Tickers {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker == "" {
			return fmt.Errorf("trading.tickers contains an empty entry")
		}
		if seen[ticker] {
			return fmt.Errorf("trading.tickers contains duplicate ticker %s", ticker)
		}
		seen[ticker] = true
	}
	if t.InitialCash <= 0 {
		return fmt.Errorf("trading.initial_cash must be > 0")
	}
	return nil
}

func (s *SignalsConfig) validate() error {
	for name, w := range s.Weights {
		if w < 0 {
			return fmt.Errorf("signals.weights.%s must be >= 0", name)
		}
	}
	return nil
}

func (b *BrokerConfig) validate(live bool) error {
	if !live {
		return nil
	}
	if strings.TrimSpace(b.APIURL) == "" {
		return fmt.Errorf("broker.api_url cannot be empty in live mode")
	}
	if strings.TrimSpace(b.APIKey) == "" || strings.TrimSpace(b.APISecret) == "" {
		return fmt.Errorf("live mode requires broker.api_key and broker.api_secret")
	}
	return nil
}

func (o *OracleConfig) validate(policy string) error {
	if !strings.EqualFold(strings.TrimSpace(policy), "llm") {
		return nil
	}
	if strings.TrimSpace(o.APIURL) == "" {
		return fmt.Errorf("oracle.api_url cannot be empty with trading.policy=llm")
	}
	if strings.TrimSpace(o.Model) == "" {
		return fmt.Errorf("oracle.model cannot be empty with trading.policy=llm")
	}
	return nil
}

func (b *BacktestConfig) validate() error {
	if b.StartDate == "" && b.EndDate == "" {
		return nil
	}
	start, err := time.Parse("2006-01-02", b.StartDate)
	if err != nil {
		return fmt.Errorf("backtest.start_date must be YYYY-MM-DD: %w", err)
	}
	end, err := time.Parse("2006-01-02", b.EndDate)
	if err != nil {
		return fmt.Errorf("backtest.end_date must be YYYY-MM-DD: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("backtest.end_date %s is before start_date %s", b.EndDate, b.StartDate)
	}
	return nil
}
