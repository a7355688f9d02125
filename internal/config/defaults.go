package config

import "strings"

// 默认值常量。SMC 权重与 spec 中的线性打分公式保持一致。
const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppHTTPAddr     = ":5000"
	defaultAppLogPath      = ""
	defaultRateLimitRPS    = 2.0
	defaultRateLimitBurst  = 10
	defaultOKXBaseURL      = "https://www.okx.com"
	defaultMarketTimeout   = 15
	defaultKlineMaxCached  = 300
	defaultDefaultTF       = "1H"
	defaultHistoryLimit    = 100
	defaultStaleHours      = 24
	defaultBiasCHoCH       = 0.4
	defaultBiasBOS         = 0.4
	defaultBiasTrend       = 0.2
	defaultExecCHoCH       = 0.3
	defaultExecFVG         = 0.25
	defaultExecDelta       = 0.2
	defaultExecRSI         = 0.15
	defaultExecOrderFlow   = 0.1
	defaultExecValid       = 0.7
	defaultExecPending     = 0.5
	defaultFallbackStopPct = 0.02
	defaultMaxSizePct      = 50.0
	defaultBacktestRoot    = "data/backtest"
	defaultBacktestBalance = 10000.0
	defaultBacktestFee     = 0.0005
	defaultSignalDB        = "data/db/signals.db"
)

// Default 返回全默认配置，供测试与无配置文件的启动路径使用。
func Default() *Config {
	var cfg Config
	cfg.applyDefaults(make(keySet))
	return &cfg
}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Server.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.SMC.applyDefaults(keys)
	c.Backtest.applyDefaults(keys)
	c.Store.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (s *ServerConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "server.rate_limit_rps",
			need:  func() bool { return s.RateLimitRPS <= 0 },
			apply: func() { s.RateLimitRPS = defaultRateLimitRPS },
		},
		fieldDefault{
			key:   "server.rate_limit_burst",
			need:  func() bool { return s.RateLimitBurst <= 0 },
			apply: func() { s.RateLimitBurst = defaultRateLimitBurst },
		},
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market.okx_base_url", &m.OKXBaseURL, defaultOKXBaseURL),
		stringFieldDefault("market.default_timeframe", &m.DefaultTF, defaultDefaultTF),
		fieldDefault{
			key:   "market.timeout_seconds",
			need:  func() bool { return m.TimeoutSeconds <= 0 },
			apply: func() { m.TimeoutSeconds = defaultMarketTimeout },
		},
		fieldDefault{
			key:   "market.kline_max_cached",
			need:  func() bool { return m.KlineMaxCached <= 0 },
			apply: func() { m.KlineMaxCached = defaultKlineMaxCached },
		},
		fieldDefault{
			key:   "market.default_symbols",
			need:  func() bool { return len(m.DefaultSymbols) == 0 },
			apply: func() { m.DefaultSymbols = []string{"BTC-USDT", "ETH-USDT", "SOL-USDT"} },
		},
	)
}

func (s *SMCConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "smc.history_limit",
			need:  func() bool { return s.HistoryLimit <= 0 },
			apply: func() { s.HistoryLimit = defaultHistoryLimit },
		},
		fieldDefault{
			key:   "smc.stale_hours",
			need:  func() bool { return s.StaleHours <= 0 },
			apply: func() { s.StaleHours = defaultStaleHours },
		},
		floatFieldDefault("smc.bias.choch", &s.Bias.CHoCH, defaultBiasCHoCH),
		floatFieldDefault("smc.bias.bos", &s.Bias.BOS, defaultBiasBOS),
		floatFieldDefault("smc.bias.trend", &s.Bias.Trend, defaultBiasTrend),
		floatFieldDefault("smc.execution.choch", &s.Execution.CHoCH, defaultExecCHoCH),
		floatFieldDefault("smc.execution.fvg", &s.Execution.FVG, defaultExecFVG),
		floatFieldDefault("smc.execution.volume_delta", &s.Execution.VolumeDelta, defaultExecDelta),
		floatFieldDefault("smc.execution.rsi", &s.Execution.RSI, defaultExecRSI),
		floatFieldDefault("smc.execution.order_flow", &s.Execution.OrderFlow, defaultExecOrderFlow),
		floatFieldDefault("smc.execution.valid_threshold", &s.Execution.ValidThreshold, defaultExecValid),
		floatFieldDefault("smc.execution.pending_threshold", &s.Execution.PendThreshold, defaultExecPending),
		floatFieldDefault("smc.plan.fallback_stop_pct", &s.Plan.FallbackStopPct, defaultFallbackStopPct),
		floatFieldDefault("smc.plan.max_size_pct", &s.Plan.MaxSizePct, defaultMaxSizePct),
		fieldDefault{
			key:   "smc.plan.risk_multiples",
			need:  func() bool { return len(s.Plan.RiskMultiples) == 0 },
			apply: func() { s.Plan.RiskMultiples = []float64{1.5, 2.5, 3.5} },
		},
	)
}

func (b *BacktestConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("backtest.data_root", &b.DataRoot, defaultBacktestRoot),
		floatFieldDefault("backtest.default_balance", &b.DefaultBalance, defaultBacktestBalance),
		floatFieldDefault("backtest.fee_rate", &b.FeeRate, defaultBacktestFee),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.signal_db", &s.SignalDB, defaultSignalDB),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
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

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
