// Package smc 定义 Smart Money Concept 域模型：结构破坏、订单块、
// 公允价值缺口、流动性扫荡，以及偏向/执行/交易计划的输出类型。
package smc

import "time"

type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Valid 只接受 LONG/SHORT。
func (d Direction) Valid() bool { return d == Long || d == Short }

// Bullish 表示方向是否对应看涨。
func (d Direction) Bullish() bool { return d == Long }

type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
	BiasNeutral Bias = "neutral"
	BiasMixed   Bias = "mixed"
)

type BreakKind string

const (
	KindBOS   BreakKind = "BOS"
	KindCHoCH BreakKind = "CHoCH"
)

type MitigationStatus string

const (
	MitigationUntested MitigationStatus = "untested"
	MitigationActive   MitigationStatus = "active"
	MitigationPartial  MitigationStatus = "partially_mitigated"
)

type FillStatus string

const (
	FillUnfilled FillStatus = "unfilled"
	FillFilled   FillStatus = "filled"
)

type ValidationResult string

const (
	ResultValid    ValidationResult = "valid"
	ResultPending  ValidationResult = "pending"
	ResultInvalid  ValidationResult = "invalid"
	ResultRejected ValidationResult = "rejected"
)

type PlanQuality string

const (
	QualityExcellent PlanQuality = "excellent"
	QualityGood      PlanQuality = "good"
	QualityAverage   PlanQuality = "average"
	QualityPoor      PlanQuality = "poor"
)

// StructureBreak 表示一次 BOS 或 CHoCH。
type StructureBreak struct {
	Kind       BreakKind `json:"kind"`
	Direction  Bias      `json:"direction"`
	Price      float64   `json:"price"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// OrderBlock 表示推定的机构挂单区间。
type OrderBlock struct {
	Symbol    string           `json:"symbol"`
	Timeframe string           `json:"timeframe"`
	Direction Bias             `json:"direction"`
	Price     float64          `json:"price"`
	High      float64          `json:"high"`
	Low       float64          `json:"low"`
	Strength  float64          `json:"strength"`
	Status    MitigationStatus `json:"mitigation_status"`
	FormedAt  time.Time        `json:"formed_at"`
}

// FairValueGap 表示被强势 K 线跳过的价格区间。
type FairValueGap struct {
	Symbol    string     `json:"symbol"`
	Timeframe string     `json:"timeframe"`
	Direction Bias       `json:"direction"`
	GapLow    float64    `json:"gap_low"`
	GapHigh   float64    `json:"gap_high"`
	Strength  float64    `json:"strength"`
	Fill      FillStatus `json:"fill_status"`
	FormedAt  time.Time  `json:"formed_at"`
}

// LiquiditySweep 表示对前高/前低的瞬时扫荡。
// VolumeSpike 由上游检测器选填；缺省时检测逻辑必须按未知处理。
type LiquiditySweep struct {
	Level       float64   `json:"level"`
	Side        string    `json:"side"` // high / low
	Timestamp   time.Time `json:"timestamp"`
	VolumeSpike *float64  `json:"volume_spike,omitempty"`
}

type SwingPoint struct {
	Kind      string    `json:"kind"` // high / low
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// SwingPoints 按类别分组的摆动点列表。
type SwingPoints struct {
	Highs []SwingPoint `json:"highs"`
	Lows  []SwingPoint `json:"lows"`
}

// VolumePoint 表示单周期的成交量增量（delta = 主动买 − 主动卖）。
type VolumePoint struct {
	Delta     float64   `json:"delta"`
	Total     float64   `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

// BiasSignal 是方向偏向判定的输出。
type BiasSignal struct {
	Bias           Bias     `json:"bias"`
	Strength       float64  `json:"strength"`
	Confidence     float64  `json:"confidence"`
	Factors        []string `json:"factors"`
	CHoCHCount     int      `json:"choch_count"`
	BOSCount       int      `json:"bos_count"`
	TrendAlignment string   `json:"trend_alignment"`
}

// CheckDetail 记录单项确认检查的结果。
type CheckDetail struct {
	Name      string  `json:"name"`
	Confirmed bool    `json:"confirmed"`
	Weight    float64 `json:"weight"`
	Note      string  `json:"note,omitempty"`
}

// ExecutionSignal 是入场验证的输出。
type ExecutionSignal struct {
	Symbol           string           `json:"symbol"`
	Direction        Direction        `json:"direction"`
	Result           ValidationResult `json:"result"`
	Score            float64          `json:"score"`
	Checks           []CheckDetail    `json:"checks"`
	RejectionReasons []string         `json:"rejection_reasons,omitempty"`
}

// Confirmed 返回指定检查是否通过。
func (e ExecutionSignal) Confirmed(name string) bool {
	for _, c := range e.Checks {
		if c.Name == name {
			return c.Confirmed
		}
	}
	return false
}

// TradePlan 是挂单计划：入场、止损、三档止盈与仓位建议。
type TradePlan struct {
	Symbol          string      `json:"symbol"`
	Timeframe       string      `json:"timeframe"`
	Direction       Direction   `json:"direction"`
	Entry           float64     `json:"entry_price"`
	StopLoss        float64     `json:"stop_loss"`
	TakeProfits     [3]float64  `json:"take_profits"`
	RiskReward      float64     `json:"risk_reward"`
	PositionSizePct float64     `json:"position_size_pct"`
	Quality         PlanQuality `json:"quality"`
	EntryBasis      string      `json:"entry_basis"` // order_block / fvg / market
	Notes           []string    `json:"notes,omitempty"`
}

// Snapshot 是单个 symbol+timeframe 的结构快照。
type Snapshot struct {
	Symbol     string          `json:"symbol"`
	Timeframe  string          `json:"timeframe"`
	LastBOS    *StructureBreak `json:"last_bos,omitempty"`
	LastCHoCH  *StructureBreak `json:"last_choch,omitempty"`
	BullishOBs []OrderBlock    `json:"bullish_order_blocks,omitempty"`
	BearishOBs []OrderBlock    `json:"bearish_order_blocks,omitempty"`
	FVGs       []FairValueGap  `json:"fair_value_gaps,omitempty"`
	LastSweep  *LiquiditySweep `json:"last_liquidity_sweep,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Update 是一次结构分析的增量输入。列表字段允许为空；
// 非空时仅最后一个元素会进入“最新”快照（与历史记录完整保留不同）。
type Update struct {
	BOS    []StructureBreak `json:"bos,omitempty"`
	CHoCH  []StructureBreak `json:"choch,omitempty"`
	OBs    []OrderBlock     `json:"order_blocks,omitempty"`
	FVGs   []FairValueGap   `json:"fair_value_gaps,omitempty"`
	Sweeps []LiquiditySweep `json:"liquidity_sweeps,omitempty"`
}
