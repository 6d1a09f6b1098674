package config

import "strings"

// Config is the root configuration carrier.
type Config struct {
	App        AppConfig        `yaml:"app"`
	Trading    TradingConfig    `yaml:"trading"`
	Signals    SignalsConfig    `yaml:"signals"`
	Broker     BrokerConfig     `yaml:"broker"`
	MarketData MarketDataConfig `yaml:"market_data"`
	Oracle     OracleConfig     `yaml:"oracle"`
	Store      StoreConfig      `yaml:"store"`
	Backtest   BacktestConfig   `yaml:"backtest"`
}

type AppConfig struct {
	Env           string `yaml:"env"`
	LogLevel      string `yaml:"log_level"`
	HTTPAddr      string `yaml:"http_addr"`
	LogPath       string `yaml:"log_path"`
	OracleLogPath string `yaml:"oracle_log_path"`
	OracleDump    bool   `yaml:"oracle_dump_payload"`
}

// TradingConfig controls the trading loop: which tickers run through the
// cycle, whether decisions mutate a simulated book or hit the broker, and
// which decision policy is in charge.
type TradingConfig struct {
	Mode                 string   `yaml:"mode"`   // "paper" | "live"
	Policy               string   `yaml:"policy"` // "rules" | "llm"
	Tickers              []string `yaml:"tickers"`
	InitialCash          float64  `yaml:"initial_cash"`
	CycleIntervalSeconds int      `yaml:"cycle_interval_seconds"`
	RunImmediately       bool     `yaml:"run_immediately"`
}

func (t TradingConfig) IsLive() bool {
	return strings.EqualFold(strings.TrimSpace(t.Mode), "live")
}

type SignalsConfig struct {
	WeightsPath string             `yaml:"weights_path"`
	Weights     map[string]float64 `yaml:"weights"`
	WatchFile   bool               `yaml:"watch_file"`
}

// BrokerConfig describes the brokerage REST endpoint used in live mode.
type BrokerConfig struct {
	APIURL             string `yaml:"api_url"`
	APIKey             string `yaml:"api_key"`
	APISecret          string `yaml:"api_secret"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

type MarketDataConfig struct {
	APIURL          string `yaml:"api_url"`
	APIKey          string `yaml:"api_key"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	MaxCachedBars   int    `yaml:"max_cached_bars"`
}

// OracleConfig configures the chat-completions endpoint backing the llm
// policy and the sentiment analyst.
type OracleConfig struct {
	APIURL         string            `yaml:"api_url"`
	APIKey         string            `yaml:"api_key"`
	Model          string            `yaml:"model"`
	Headers        map[string]string `yaml:"headers"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	MaxRetries     int               `yaml:"max_retries"`
	ExpectJSON     bool              `yaml:"expect_json"`
}

type StoreConfig struct {
	BacktestDBPath  string `yaml:"backtest_db_path"`
	DecisionLogPath string `yaml:"decision_log_path"`
}

type BacktestConfig struct {
	StartDate   string  `yaml:"start_date"`
	EndDate     string  `yaml:"end_date"`
	InitialCash float64 `yaml:"initial_cash"`
	ReportDir   string  `yaml:"report_dir"`
	SnapshotPNG bool    `yaml:"snapshot_png"`
}

// keySet tracks which field paths the config files set explicitly.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault describes the default rule for a single field.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
