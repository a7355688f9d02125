package config

import "strings"

// Config 是 cryptozz 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Server   ServerConfig   `toml:"server"`
	Market   MarketConfig   `toml:"market"`
	SMC      SMCConfig      `toml:"smc"`
	Backtest BacktestConfig `toml:"backtest"`
	Store    StoreConfig    `toml:"store"`
	Notify   NotifyConfig   `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// ServerConfig 控制 HTTP 层的鉴权与限流。
type ServerConfig struct {
	APIKeys        []string `toml:"api_keys"`
	RateLimitRPS   float64  `toml:"rate_limit_rps"`
	RateLimitBurst int      `toml:"rate_limit_burst"`
}

// MarketConfig 描述行情来源（OKX 为主）。
type MarketConfig struct {
	OKXBaseURL     string   `toml:"okx_base_url"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	KlineMaxCached int      `toml:"kline_max_cached"`
	DefaultSymbols []string `toml:"default_symbols"`
	DefaultTF      string   `toml:"default_timeframe"`
}

// SMCConfig 汇总信号引擎的可调参数。权重默认值即生产值，
// 配置文件可覆盖并支持热更新。
type SMCConfig struct {
	HistoryLimit int            `toml:"history_limit"`
	StaleHours   int            `toml:"stale_hours"`
	Bias         BiasWeights    `toml:"bias"`
	Execution    ExecWeights    `toml:"execution"`
	Plan         PlanParameters `toml:"plan"`
}

type BiasWeights struct {
	CHoCH float64 `toml:"choch"`
	BOS   float64 `toml:"bos"`
	Trend float64 `toml:"trend"`
}

type ExecWeights struct {
	CHoCH          float64 `toml:"choch"`
	FVG            float64 `toml:"fvg"`
	VolumeDelta    float64 `toml:"volume_delta"`
	RSI            float64 `toml:"rsi"`
	OrderFlow      float64 `toml:"order_flow"`
	ValidThreshold float64 `toml:"valid_threshold"`
	PendThreshold  float64 `toml:"pending_threshold"`
}

type PlanParameters struct {
	FallbackStopPct float64   `toml:"fallback_stop_pct"`
	MaxSizePct      float64   `toml:"max_size_pct"`
	RiskMultiples   []float64 `toml:"risk_multiples"`
}

type BacktestConfig struct {
	DataRoot       string  `toml:"data_root"`
	DefaultBalance float64 `toml:"default_balance"`
	FeeRate        float64 `toml:"fee_rate"`
	BinanceEnabled bool    `toml:"binance_enabled"`
}

type StoreConfig struct {
	SignalDB string `toml:"signal_db"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
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

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
