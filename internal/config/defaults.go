package config

import "strings"

const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppHTTPAddr       = ":9880"
	defaultAppLogPath        = "data/logs/alphadesk.log"
	defaultAppOracleLogPath  = "data/logs/alphadesk-oracle.log"
	defaultTradingMode       = "paper"
	defaultTradingPolicy     = "rules"
	defaultTradingCash       = 100000
	defaultTradingInterval   = 3600
	defaultWeightsPath       = "configs/weights.yaml"
	defaultBrokerAPI         = "https://paper-api.alpaca.markets"
	defaultBrokerTimeout     = 15
	defaultMarketAPI         = "https://api.financialdatasets.ai"
	defaultMarketTimeout     = 20
	defaultMarketCacheTTL    = 300
	defaultMarketMaxBars     = 300
	defaultOracleAPI         = "https://api.openai.com/v1"
	defaultOracleModel       = "gpt-4o"
	defaultOracleTimeout     = 120
	defaultOracleRetries     = 3
	defaultBacktestDBPath    = "data/db/backtests.db"
	defaultDecisionLogPath   = "data/db/decisions.db"
	defaultBacktestCash      = 100000
	defaultBacktestReportDir = "data/reports"
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.Signals.applyDefaults(keys)
	c.Broker.applyDefaults(keys)
	c.MarketData.applyDefaults(keys)
	c.Oracle.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Backtest.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.oracle_log_path", &a.OracleLogPath, defaultAppOracleLogPath),
	)
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("trading.mode", &t.Mode, defaultTradingMode),
		stringFieldDefault("trading.policy", &t.Policy, defaultTradingPolicy),
		fieldDefault{
			key:   "trading.initial_cash",
			need:  func() bool { return t.InitialCash <= 0 },
			apply: func() { t.InitialCash = defaultTradingCash },
		},
		fieldDefault{
			key:   "trading.cycle_interval_seconds",
			need:  func() bool { return t.CycleIntervalSeconds <= 0 },
			apply: func() { t.CycleIntervalSeconds = defaultTradingInterval },
		},
		boolFieldDefault("trading.run_immediately", &t.RunImmediately, true),
	)
}

func (s *SignalsConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("signals.weights_path", &s.WeightsPath, defaultWeightsPath),
	)
}

func (b *BrokerConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("broker.api_url", &b.APIURL, defaultBrokerAPI),
		fieldDefault{
			key:   "broker.timeout_seconds",
			need:  func() bool { return b.TimeoutSeconds <= 0 },
			apply: func() { b.TimeoutSeconds = defaultBrokerTimeout },
		},
	)
}

func (m *MarketDataConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market_data.api_url", &m.APIURL, defaultMarketAPI),
		fieldDefault{
			key:   "market_data.timeout_seconds",
			need:  func() bool { return m.TimeoutSeconds <= 0 },
			apply: func() { m.TimeoutSeconds = defaultMarketTimeout },
		},
		fieldDefault{
			key:   "market_data.cache_ttl_seconds",
			need:  func() bool { return m.CacheTTLSeconds <= 0 },
			apply: func() { m.CacheTTLSeconds = defaultMarketCacheTTL },
		},
		fieldDefault{
			key:   "market_data.max_cached_bars",
			need:  func() bool { return m.MaxCachedBars <= 0 },
			apply: func() { m.MaxCachedBars = defaultMarketMaxBars },
		},
	)
}

func (o *OracleConfig) applyDefaults(keys keySet) {
	if o == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("oracle.api_url", &o.APIURL, defaultOracleAPI),
		stringFieldDefault("oracle.model", &o.Model, defaultOracleModel),
		fieldDefault{
			key:   "oracle.timeout_seconds",
			need:  func() bool { return o.TimeoutSeconds <= 0 },
			apply: func() { o.TimeoutSeconds = defaultOracleTimeout },
		},
		fieldDefault{
			key:   "oracle.max_retries",
			need:  func() bool { return o.MaxRetries <= 0 },
			apply: func() { o.MaxRetries = defaultOracleRetries },
		},
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.backtest_db_path", &s.BacktestDBPath, defaultBacktestDBPath),
		stringFieldDefault("store.decision_log_path", &s.DecisionLogPath, defaultDecisionLogPath),
	)
}

func (b *BacktestConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "backtest.initial_cash",
			need:  func() bool { return b.InitialCash <= 0 },
			apply: func() { b.InitialCash = defaultBacktestCash },
		},
		stringFieldDefault("backtest.report_dir", &b.ReportDir, defaultBacktestReportDir),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
