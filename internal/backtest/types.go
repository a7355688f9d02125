// Package backtest 把历史 K 线 + 规则策略推演为资金曲线与指标。
// 回测同步执行：请求进来、单遍扫描、立即返回结果。
package backtest

import "time"

// Request 描述一次回测。零值字段由服务层补默认值。
type Request struct {
	Symbol         string  `json:"symbol"`
	Timeframe      string  `json:"timeframe"`
	Strategy       string  `json:"strategy"`
	Limit          int     `json:"limit"`
	InitialBalance float64 `json:"initial_balance"`
	FeeRate        float64 `json:"fee_rate"`
	SlippageBps    float64 `json:"slippage_bps"`
}

// Trade 是一笔完整的开平仓记录。
type Trade struct {
	Side       string  `json:"side"` // long / short
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	EntryTime  int64   `json:"entry_time"`
	ExitTime   int64   `json:"exit_time"`
	PnL        float64 `json:"pnl"`
	PnLPct     float64 `json:"pnl_pct"`
}

// EquityPoint 是资金曲线上的一个采样点。
type EquityPoint struct {
	TS     int64   `json:"ts"`
	Equity float64 `json:"equity"`
}

// Metrics 汇总回测表现。
type Metrics struct {
	Trades         int     `json:"trades"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	WinRate        float64 `json:"win_rate"`
	Profit         float64 `json:"profit"`
	ReturnPct      float64 `json:"return_pct"`
	ProfitFactor   float64 `json:"profit_factor"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	FinalBalance   float64 `json:"final_balance"`
	EquityPeak     float64 `json:"equity_peak"`

	// 行情画像：窗口价格区间、ATR 波动率（占收盘价的百分比）与均量
	PriceLow      float64 `json:"price_low"`
	PriceHigh     float64 `json:"price_high"`
	VolatilityPct float64 `json:"volatility_pct"`
	AvgVolume     float64 `json:"avg_volume"`
}

// Result 是一次回测的完整输出。
type Result struct {
	ID         string        `json:"id"`
	Symbol     string        `json:"symbol"`
	Timeframe  string        `json:"timeframe"`
	Strategy   string        `json:"strategy"`
	Candles    int           `json:"candles"`
	Metrics    Metrics       `json:"metrics"`
	TradeList  []Trade       `json:"trade_list,omitempty"`
	Equity     []EquityPoint `json:"equity_curve,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}
