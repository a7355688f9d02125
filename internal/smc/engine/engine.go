// Package engine 串起完整的 SMC 分析流水线：取 K 线、检测结构、
// 写入记忆、判定偏向、验证入场、生成计划与叙述，最后合成综合建议。
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"cryptozz/internal/config"
	"cryptozz/internal/logger"
	"cryptozz/internal/market"
	"cryptozz/internal/smc"
	"cryptozz/internal/smc/bias"
	"cryptozz/internal/smc/execution"
	"cryptozz/internal/smc/memory"
	"cryptozz/internal/smc/narrative"
	"cryptozz/internal/smc/plan"
)

const (
	defaultCandleLimit = 200
	defaultBalance     = 10000
	defaultRiskPct     = 1
	fetchTimeout       = 10 * time.Second
)

// Analysis 是一次完整分析的聚合结果。Err 非空时其余字段为兜底值。
type Analysis struct {
	Symbol         string              `json:"symbol"`
	Timeframe      string              `json:"timeframe"`
	CurrentPrice   float64             `json:"current_price"`
	Bias           smc.BiasSignal      `json:"bias"`
	Execution      smc.ExecutionSignal `json:"execution"`
	Plan           smc.TradePlan       `json:"trade_plan"`
	Recommendation string              `json:"recommendation"`
	Narrative      string              `json:"narrative,omitempty"`
	Err            string              `json:"error,omitempty"`
	GeneratedAt    time.Time           `json:"generated_at"`
}

// Options 控制叙述输出与仓位假设。
type Options struct {
	Verbosity      narrative.Verbosity
	Encoding       narrative.Encoding
	AccountBalance float64
	RiskPercent    float64
	CandleLimit    int
}

// components 把三个打分组件捆成一个不可变整体，
// 热更新时整包替换，分析过程中读到的永远是一致的一套权重。
type components struct {
	bias      *bias.Builder
	execution *execution.Engine
	planner   *plan.Planner
}

// Engine 按固定顺序调度各 SMC 组件。组件显式注入，无全局状态。
type Engine struct {
	source    market.Source
	memory    *memory.Memory
	comps     atomic.Pointer[components]
	formatter *narrative.Formatter
	now       func() time.Time
}

func New(source market.Source, mem *memory.Memory, b *bias.Builder, exec *execution.Engine, planner *plan.Planner, formatter *narrative.Formatter) *Engine {
	if mem == nil {
		mem = memory.New(0)
	}
	if formatter == nil {
		formatter = narrative.NewFormatter(nil)
	}
	if b == nil {
		b = bias.NewBuilder(config.BiasWeights{})
	}
	if exec == nil {
		exec = execution.NewEngine(config.ExecWeights{})
	}
	if planner == nil {
		planner = plan.NewPlanner(config.PlanParameters{})
	}
	e := &Engine{
		source:    source,
		memory:    mem,
		formatter: formatter,
		now:       time.Now,
	}
	e.comps.Store(&components{bias: b, execution: exec, planner: planner})
	return e
}

// ApplyTunables 用新的权重配置重建打分组件。供配置热更新调用。
func (e *Engine) ApplyTunables(cfg config.SMCConfig) {
	e.comps.Store(&components{
		bias:      bias.NewBuilder(cfg.Bias),
		execution: execution.NewEngine(cfg.Execution),
		planner:   plan.NewPlanner(cfg.Plan),
	})
}

// Memory 暴露底层结构记忆，供 HTTP 查询端点复用。
func (e *Engine) Memory() *memory.Memory { return e.memory }

// Analyze 对单个 symbol+timeframe 跑完整流水线。
// 数据源失败不向上抛错，而是返回带固定错误文案的兜底结果。
func (e *Engine) Analyze(ctx context.Context, symbol, timeframe string, opts Options) Analysis {
	opts = normalize(opts)
	out := Analysis{Symbol: symbol, Timeframe: timeframe, GeneratedAt: e.now()}

	fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	raw, err := e.source.FetchHistory(fctx, symbol, timeframe, opts.CandleLimit)
	if err != nil || len(raw) == 0 {
		if err != nil {
			logger.Errorf("fetch %s %s failed: %v", symbol, timeframe, err)
		}
		return e.failed(out, symbol)
	}
	candles := market.Candles(raw)
	out.CurrentPrice = candles[len(candles)-1].Close

	update, swings := DetectStructure(symbol, timeframe, candles)
	e.memory.Update(update, symbol, timeframe)

	comps := e.comps.Load()
	out.Bias = comps.bias.DetermineMarketBias(candles, update.CHoCH, update.BOS, swings, timeframe)

	direction := smc.Long
	if out.Bias.Bias == smc.BiasBearish {
		direction = smc.Short
	}
	out.Execution = comps.execution.ValidateEntrySignal(symbol, direction, out.CurrentPrice,
		update.CHoCH, update.FVGs, VolumeDeltas(candles), candles, timeframe)

	tradePlan, err := comps.planner.CreateTradePlan(symbol, direction, out.CurrentPrice,
		update.OBs, update.FVGs, update.Sweeps, swings, opts.AccountBalance, opts.RiskPercent, timeframe)
	if err != nil {
		logger.Errorf("plan %s %s failed: %v", symbol, timeframe, err)
		return e.failed(out, symbol)
	}
	out.Plan = tradePlan

	out.Recommendation = recommend(out.Bias, out.Execution, out.Plan)

	msg, err := e.formatter.FormatCompleteSignal(narrative.Input{
		Symbol:         symbol,
		Timeframe:      timeframe,
		CurrentPrice:   out.CurrentPrice,
		Bias:           out.Bias,
		Execution:      out.Execution,
		Plan:           out.Plan,
		Recommendation: out.Recommendation,
		GeneratedAt:    out.GeneratedAt,
	}, opts.Verbosity, opts.Encoding)
	if err != nil {
		logger.Warnf("narrative %s %s: %v", symbol, timeframe, err)
		msg = narrative.Apology(symbol, direction)
	}
	out.Narrative = msg
	return out
}

// AnalyzeMulti 并发分析多个周期，结果按入参顺序返回。
func (e *Engine) AnalyzeMulti(ctx context.Context, symbol string, timeframes []string, opts Options) ([]Analysis, error) {
	results := make([]Analysis, len(timeframes))
	g, gctx := errgroup.WithContext(ctx)
	for i, tf := range timeframes {
		g.Go(func() error {
			results[i] = e.Analyze(gctx, symbol, tf, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// failed 生成固定结构的错误结果：HOLD + 道歉文案。
func (e *Engine) failed(out Analysis, symbol string) Analysis {
	out.Bias = smc.BiasSignal{Bias: smc.BiasNeutral, TrendAlignment: "unknown"}
	out.Recommendation = "HOLD"
	out.Err = fmt.Sprintf("analisis %s gagal: data pasar tidak tersedia", symbol)
	out.Narrative = narrative.Apology(symbol, smc.Long)
	return out
}

func normalize(opts Options) Options {
	if opts.Verbosity == "" {
		opts.Verbosity = narrative.VerbosityDetailed
	}
	if opts.Encoding == "" {
		opts.Encoding = narrative.EncodingConsole
	}
	if opts.AccountBalance <= 0 {
		opts.AccountBalance = defaultBalance
	}
	if opts.RiskPercent <= 0 {
		opts.RiskPercent = defaultRiskPct
	}
	if opts.CandleLimit <= 0 {
		opts.CandleLimit = defaultCandleLimit
	}
	return opts
}

// recommend 把三个分量折算为七档建议。方向性不足或验证失败时收敛到 HOLD。
func recommend(b smc.BiasSignal, ex smc.ExecutionSignal, p smc.TradePlan) string {
	if b.Bias != smc.BiasBullish && b.Bias != smc.BiasBearish {
		return "HOLD"
	}
	if ex.Result == smc.ResultInvalid || ex.Result == smc.ResultRejected {
		return "HOLD"
	}

	composite := 0.5*ex.Score + 0.3*b.Strength + 0.2*qualityScore(p.Quality)
	var tier string
	switch {
	case composite >= 0.75 && ex.Result == smc.ResultValid:
		tier = "STRONG_"
	case composite >= 0.6:
		tier = ""
	case composite >= 0.45:
		tier = "WEAK_"
	default:
		return "HOLD"
	}

	if b.Bias == smc.BiasBullish {
		return tier + "BUY"
	}
	return tier + "SELL"
}

func qualityScore(q smc.PlanQuality) float64 {
	switch q {
	case smc.QualityExcellent:
		return 1
	case smc.QualityGood:
		return 0.75
	case smc.QualityAverage:
		return 0.5
	default:
		return 0.25
	}
}
