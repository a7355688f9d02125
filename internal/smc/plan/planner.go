// Package plan 从订单块/缺口/流动性结构推导入场、止损、止盈与仓位。
package plan

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"cryptozz/internal/config"
	"cryptozz/internal/smc"
)

const (
	entryOffsetPct   = 0.001 // 入场价相对结构边界的微调
	structureZonePct = 0.03  // 入场只考虑距现价 3% 以内的结构
	maxStopDistPct   = 0.05  // 止损候选的最大距离
	stopBufferPct    = 0.001
)

// Planner 生成交易计划。参数（兜底止损比例、仓位上限、风险倍数）可配置。
type Planner struct {
	params config.PlanParameters
}

func NewPlanner(params config.PlanParameters) *Planner {
	if params.FallbackStopPct <= 0 {
		params.FallbackStopPct = 0.02
	}
	if params.MaxSizePct <= 0 {
		params.MaxSizePct = 50
	}
	if len(params.RiskMultiples) == 0 {
		params.RiskMultiples = []float64{1.5, 2.5, 3.5}
	}
	return &Planner{params: params}
}

// CreateTradePlan 推导完整计划。保证 LONG 满足
// stop < entry < tp1 < tp2 < tp3，SHORT 则完全相反。
func (p *Planner) CreateTradePlan(
	symbol string,
	direction smc.Direction,
	currentPrice float64,
	orderBlocks []smc.OrderBlock,
	fvgs []smc.FairValueGap,
	sweeps []smc.LiquiditySweep,
	swings smc.SwingPoints,
	accountBalance, riskPercent float64,
	timeframe string,
) (smc.TradePlan, error) {
	if !direction.Valid() {
		return smc.TradePlan{}, fmt.Errorf("direction must be LONG or SHORT (got %q)", direction)
	}
	if currentPrice <= 0 {
		return smc.TradePlan{}, fmt.Errorf("current price must be positive")
	}

	out := smc.TradePlan{
		Symbol:    symbol,
		Timeframe: timeframe,
		Direction: direction,
	}

	entry, basis, entryConf := p.deriveEntry(direction, currentPrice, orderBlocks, fvgs)
	out.Entry = entry
	out.EntryBasis = basis

	stop, stopNote := p.deriveStop(direction, entry, currentPrice, orderBlocks, swings)
	out.StopLoss = stop
	if stopNote != "" {
		out.Notes = append(out.Notes, stopNote)
	}

	risk := math.Abs(entry - stop)
	out.TakeProfits = p.deriveTargets(direction, entry, risk, sweeps, swings)
	out.RiskReward = roundTo(math.Abs(out.TakeProfits[1]-entry)/risk, 2)
	out.PositionSizePct = p.positionSizePct(accountBalance, riskPercent, entry, risk)
	out.Quality = p.rateQuality(out.RiskReward, entryConf, basis)

	switch basis {
	case "order_block":
		out.Notes = append(out.Notes, "entry berbasis order block terdekat")
	case "fvg":
		out.Notes = append(out.Notes, "entry berbasis fair value gap")
	default:
		out.Notes = append(out.Notes, "entry berbasis harga pasar")
	}
	return out, nil
}

// deriveEntry：OB 边界优先，其次 FVG 边界，最后市场价微调。
// 返回入场价、依据与入场置信度（取结构强度）。
func (p *Planner) deriveEntry(direction smc.Direction, price float64, obs []smc.OrderBlock, fvgs []smc.FairValueGap) (float64, string, float64) {
	if direction.Bullish() {
		bestEdge, bestConf := 0.0, 0.0
		for _, ob := range obs {
			if ob.Direction == smc.BiasBearish || ob.Status == smc.MitigationPartial {
				continue
			}
			edge := ob.High
			if edge <= 0 || edge > price || (price-edge)/price > structureZonePct {
				continue
			}
			if edge > bestEdge {
				bestEdge, bestConf = edge, ob.Strength
			}
		}
		if bestEdge > 0 {
			return bestEdge * (1 + entryOffsetPct), "order_block", bestConf
		}
		for _, gap := range fvgs {
			if gap.Fill == smc.FillFilled {
				continue
			}
			edge := gap.GapHigh
			if edge <= 0 || edge > price || (price-edge)/price > structureZonePct {
				continue
			}
			if edge > bestEdge {
				bestEdge, bestConf = edge, gap.Strength
			}
		}
		if bestEdge > 0 {
			return bestEdge * (1 + entryOffsetPct), "fvg", bestConf
		}
		return mulPct(price, 1-entryOffsetPct), "market", 0.3
	}

	bestEdge, bestConf := math.MaxFloat64, 0.0
	for _, ob := range obs {
		if ob.Direction == smc.BiasBullish || ob.Status == smc.MitigationPartial {
			continue
		}
		edge := ob.Low
		if edge <= 0 || edge < price || (edge-price)/price > structureZonePct {
			continue
		}
		if edge < bestEdge {
			bestEdge, bestConf = edge, ob.Strength
		}
	}
	if bestEdge < math.MaxFloat64 {
		return bestEdge * (1 - entryOffsetPct), "order_block", bestConf
	}
	for _, gap := range fvgs {
		if gap.Fill == smc.FillFilled {
			continue
		}
		edge := gap.GapLow
		if edge <= 0 || edge < price || (edge-price)/price > structureZonePct {
			continue
		}
		if edge < bestEdge {
			bestEdge, bestConf = edge, gap.Strength
		}
	}
	if bestEdge < math.MaxFloat64 {
		return bestEdge * (1 - entryOffsetPct), "fvg", bestConf
	}
	return mulPct(price, 1+entryOffsetPct), "market", 0.3
}

// deriveStop：在限定距离内找最近的摆动低点/OB 支撑（LONG）或
// 摆动高点/阻力（SHORT）；找不到则按现价比例兜底。
func (p *Planner) deriveStop(direction smc.Direction, entry, currentPrice float64, obs []smc.OrderBlock, swings smc.SwingPoints) (float64, string) {
	if direction.Bullish() {
		best := 0.0
		for _, sp := range swings.Lows {
			if sp.Price <= 0 || sp.Price >= entry {
				continue
			}
			if (entry-sp.Price)/entry > maxStopDistPct {
				continue
			}
			if sp.Price > best {
				best = sp.Price
			}
		}
		for _, ob := range obs {
			if ob.Direction == smc.BiasBearish || ob.Low <= 0 || ob.Low >= entry {
				continue
			}
			if (entry-ob.Low)/entry > maxStopDistPct {
				continue
			}
			if ob.Low > best {
				best = ob.Low
			}
		}
		if best > 0 {
			return best * (1 - stopBufferPct), ""
		}
		stop := mulPct(currentPrice, 1-p.params.FallbackStopPct)
		if stop >= entry {
			// 深结构回踩时入场可以落在现价兜底线之下，改锚到入场价
			stop = mulPct(entry, 1-p.params.FallbackStopPct)
		}
		return stop, "stop loss memakai fallback persentase"
	}

	best := math.MaxFloat64
	for _, sp := range swings.Highs {
		if sp.Price <= entry {
			continue
		}
		if (sp.Price-entry)/entry > maxStopDistPct {
			continue
		}
		if sp.Price < best {
			best = sp.Price
		}
	}
	for _, ob := range obs {
		if ob.Direction == smc.BiasBullish || ob.High <= entry {
			continue
		}
		if (ob.High-entry)/entry > maxStopDistPct {
			continue
		}
		if ob.High < best {
			best = ob.High
		}
	}
	if best < math.MaxFloat64 {
		return best * (1 + stopBufferPct), ""
	}
	stop := mulPct(currentPrice, 1+p.params.FallbackStopPct)
	if stop <= entry {
		stop = mulPct(entry, 1+p.params.FallbackStopPct)
	}
	return stop, "stop loss memakai fallback persentase"
}

// mulPct 用 decimal 做比例运算，保证兜底价位不带二进制尾差
//（100 × 0.98 精确得到 98.0）。
func mulPct(price, factor float64) float64 {
	f, _ := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(factor)).Float64()
	return f
}

// deriveTargets：结构目标（扫荡位/摆动点）与风险倍数候选合并后取最近三档。
func (p *Planner) deriveTargets(direction smc.Direction, entry, risk float64, sweeps []smc.LiquiditySweep, swings smc.SwingPoints) [3]float64 {
	var pool []float64
	appendIf := func(level float64) {
		if direction.Bullish() && level > entry {
			pool = append(pool, level)
		}
		if !direction.Bullish() && level < entry && level > 0 {
			pool = append(pool, level)
		}
	}
	for _, sw := range sweeps {
		appendIf(sw.Level)
	}
	if direction.Bullish() {
		for _, sp := range swings.Highs {
			appendIf(sp.Price)
		}
	} else {
		for _, sp := range swings.Lows {
			appendIf(sp.Price)
		}
	}
	if direction.Bullish() {
		sort.Float64s(pool)
	} else {
		sort.Sort(sort.Reverse(sort.Float64Slice(pool)))
	}
	if len(pool) > 3 {
		pool = pool[:3]
	}
	pool = dedupe(pool)

	for _, m := range p.params.RiskMultiples {
		if len(pool) >= 3 {
			break
		}
		var candidate float64
		if direction.Bullish() {
			candidate = entry + m*risk
		} else {
			candidate = entry - m*risk
		}
		pool = append(pool, candidate)
	}
	if direction.Bullish() {
		sort.Float64s(pool)
	} else {
		sort.Sort(sort.Reverse(sort.Float64Slice(pool)))
	}
	pool = dedupe(pool)
	for len(pool) < 3 {
		// 候选耗尽时按末档递推，保持严格单调
		last := pool[len(pool)-1]
		if direction.Bullish() {
			pool = append(pool, last+risk)
		} else {
			pool = append(pool, last-risk)
		}
	}
	return [3]float64{pool[0], pool[1], pool[2]}
}

func dedupe(sorted []float64) []float64 {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if math.Abs(v-out[len(out)-1]) < 1e-9 {
			continue
		}
		out = append(out, v)
	}
	return out
}

// positionSizePct：名义仓位占账户的百分比，上限 MaxSizePct。
// 使用 decimal 避免小数位漂移。
func (p *Planner) positionSizePct(balance, riskPercent, entry, riskDist float64) float64 {
	if balance <= 0 || riskPercent <= 0 || riskDist <= 0 || entry <= 0 {
		return 0
	}
	bal := decimal.NewFromFloat(balance)
	riskAmount := bal.Mul(decimal.NewFromFloat(riskPercent)).Div(decimal.NewFromInt(100))
	qty := riskAmount.Div(decimal.NewFromFloat(riskDist))
	notional := qty.Mul(decimal.NewFromFloat(entry))
	pct := notional.Div(bal).Mul(decimal.NewFromInt(100))
	f, _ := pct.Round(2).Float64()
	if f > p.params.MaxSizePct {
		return p.params.MaxSizePct
	}
	return f
}

// rateQuality：RR、入场置信度与结构加成的加权分，映射到四档。
func (p *Planner) rateQuality(rr, entryConf float64, basis string) smc.PlanQuality {
	rrScore := rr / 3.0
	if rrScore > 1 {
		rrScore = 1
	}
	structural := 0.0
	if basis == "order_block" || basis == "fvg" {
		structural = 1.0
	}
	score := 0.5*rrScore + 0.3*entryConf + 0.2*structural
	switch {
	case score >= 0.8:
		return smc.QualityExcellent
	case score >= 0.6:
		return smc.QualityGood
	case score >= 0.4:
		return smc.QualityAverage
	default:
		return smc.QualityPoor
	}
}

func roundTo(v float64, places int) float64 {
	pow := math.Pow10(places)
	return math.Round(v*pow) / pow
}
