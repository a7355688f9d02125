// Package execution 对提议的交易方向做五项独立确认检查，
// 并按固定权重合成验证结论。
package execution

import (
	"fmt"
	"math"
	"time"

	talib "github.com/markcheno/go-talib"

	"cryptozz/internal/config"
	"cryptozz/internal/market"
	"cryptozz/internal/smc"
)

const (
	chochWindow    = 24 * time.Hour
	fvgWindow      = 12 * time.Hour
	chochTolerance = 0.02
	fvgTolerance   = 0.01
	rsiPeriod      = 14
	rsiLongCeiling = 70.0
	rsiShortFloor  = 30.0
	deltaLookback  = 10
	flowLookback   = 20
	flowRatio      = 0.55
)

const (
	CheckCHoCH       = "choch"
	CheckFVG         = "fvg"
	CheckVolumeDelta = "volume_delta"
	CheckRSI         = "rsi"
	CheckOrderFlow   = "order_flow"
)

// Engine 执行入场验证。权重可配置，默认与生产公式一致。
type Engine struct {
	weights config.ExecWeights
	now     func() time.Time
}

func NewEngine(weights config.ExecWeights) *Engine {
	if weights.CHoCH <= 0 && weights.FVG <= 0 {
		weights = config.ExecWeights{
			CHoCH: 0.3, FVG: 0.25, VolumeDelta: 0.2, RSI: 0.15, OrderFlow: 0.1,
			ValidThreshold: 0.7, PendThreshold: 0.5,
		}
	}
	return &Engine{weights: weights, now: time.Now}
}

// ValidateEntrySignal 运行五项检查并合成加权分。
// 分数恒为权重集合的子集和，因此取值是一个有限集合。
func (e *Engine) ValidateEntrySignal(
	symbol string,
	direction smc.Direction,
	currentPrice float64,
	chochSignals []smc.StructureBreak,
	fvgSignals []smc.FairValueGap,
	volumeData []smc.VolumePoint,
	priceData market.Candles,
	timeframe string,
) smc.ExecutionSignal {
	out := smc.ExecutionSignal{Symbol: symbol, Direction: direction}
	if !direction.Valid() || currentPrice <= 0 {
		out.Result = smc.ResultRejected
		out.RejectionReasons = []string{"invalid_request"}
		return out
	}

	checks := []smc.CheckDetail{
		e.checkCHoCH(direction, currentPrice, chochSignals),
		e.checkFVG(currentPrice, fvgSignals),
		e.checkVolumeDelta(direction, volumeData),
		e.checkRSI(direction, priceData),
		e.checkOrderFlow(direction, priceData),
	}

	score := 0.0
	for _, c := range checks {
		if c.Confirmed {
			score += c.Weight
		} else {
			out.RejectionReasons = append(out.RejectionReasons, c.Name)
		}
	}
	out.Checks = checks
	out.Score = score

	switch {
	case score >= e.weights.ValidThreshold:
		out.Result = smc.ResultValid
		out.RejectionReasons = nil
	case score >= e.weights.PendThreshold:
		out.Result = smc.ResultPending
	default:
		out.Result = smc.ResultInvalid
	}
	return out
}

// checkCHoCH：24h 内存在同方向 CHoCH 且与现价偏差不超过 2%。
func (e *Engine) checkCHoCH(direction smc.Direction, price float64, signals []smc.StructureBreak) smc.CheckDetail {
	detail := smc.CheckDetail{Name: CheckCHoCH, Weight: e.weights.CHoCH}
	want := smc.BiasBearish
	if direction.Bullish() {
		want = smc.BiasBullish
	}
	cutoff := e.now().Add(-chochWindow)
	for _, sig := range signals {
		if sig.Kind != smc.KindCHoCH && sig.Kind != "" {
			continue
		}
		if sig.Direction != want || sig.Timestamp.Before(cutoff) {
			continue
		}
		if sig.Price <= 0 {
			continue
		}
		if math.Abs(sig.Price-price)/price <= chochTolerance {
			detail.Confirmed = true
			detail.Note = fmt.Sprintf("choch@%.4f", sig.Price)
			return detail
		}
	}
	detail.Note = "no recent aligned choch"
	return detail
}

// checkFVG：现价落在 12h 内某个缺口内，或距缺口边界不超过 1%。
func (e *Engine) checkFVG(price float64, gaps []smc.FairValueGap) smc.CheckDetail {
	detail := smc.CheckDetail{Name: CheckFVG, Weight: e.weights.FVG}
	cutoff := e.now().Add(-fvgWindow)
	for _, gap := range gaps {
		if gap.FormedAt.Before(cutoff) || gap.GapHigh <= gap.GapLow {
			continue
		}
		inside := price >= gap.GapLow && price <= gap.GapHigh
		nearLow := math.Abs(price-gap.GapLow)/price <= fvgTolerance
		nearHigh := math.Abs(price-gap.GapHigh)/price <= fvgTolerance
		if inside || nearLow || nearHigh {
			detail.Confirmed = true
			detail.Note = fmt.Sprintf("gap %.4f-%.4f", gap.GapLow, gap.GapHigh)
			return detail
		}
	}
	detail.Note = "price outside recent gaps"
	return detail
}

// checkVolumeDelta：最新 delta 与 10 周期均值同号，且与方向一致。
func (e *Engine) checkVolumeDelta(direction smc.Direction, points []smc.VolumePoint) smc.CheckDetail {
	detail := smc.CheckDetail{Name: CheckVolumeDelta, Weight: e.weights.VolumeDelta}
	if len(points) == 0 {
		detail.Note = "no volume data"
		return detail
	}
	latest := points[len(points)-1].Delta
	window := points
	if len(window) > deltaLookback {
		window = window[len(window)-deltaLookback:]
	}
	sum := 0.0
	for _, p := range window {
		sum += p.Delta
	}
	avg := sum / float64(len(window))
	if direction.Bullish() {
		detail.Confirmed = latest > 0 && avg > 0
	} else {
		detail.Confirmed = latest < 0 && avg < 0
	}
	detail.Note = fmt.Sprintf("latest=%.2f avg=%.2f", latest, avg)
	return detail
}

// checkRSI：Wilder RSI；LONG 要求 <70（未超买），SHORT 要求 >30（未超卖）。
func (e *Engine) checkRSI(direction smc.Direction, candles market.Candles) smc.CheckDetail {
	detail := smc.CheckDetail{Name: CheckRSI, Weight: e.weights.RSI}
	closes := candles.Closes()
	if len(closes) <= rsiPeriod {
		detail.Note = "insufficient price data"
		return detail
	}
	series := talib.Rsi(closes, rsiPeriod)
	rsi := series[len(series)-1]
	if direction.Bullish() {
		detail.Confirmed = rsi < rsiLongCeiling
	} else {
		detail.Confirmed = rsi > rsiShortFloor
	}
	detail.Note = fmt.Sprintf("rsi=%.1f", rsi)
	return detail
}

// checkOrderFlow：近 20 根 K 线中，方向一致的收盘所占成交量比例 >55%。
func (e *Engine) checkOrderFlow(direction smc.Direction, candles market.Candles) smc.CheckDetail {
	detail := smc.CheckDetail{Name: CheckOrderFlow, Weight: e.weights.OrderFlow}
	window := candles
	if len(window) > flowLookback {
		window = window[len(window)-flowLookback:]
	}
	total, aligned := 0.0, 0.0
	for _, c := range window {
		total += c.Volume
		if direction.Bullish() == c.Bullish() {
			aligned += c.Volume
		}
	}
	if total <= 0 {
		detail.Note = "no volume in window"
		return detail
	}
	ratio := aligned / total
	detail.Confirmed = ratio > flowRatio
	detail.Note = fmt.Sprintf("flow=%.0f%%", ratio*100)
	return detail
}
