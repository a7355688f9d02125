// Package bias 根据结构破坏信号与摆动点计算方向偏向。
package bias

import (
	"fmt"
	"time"

	"cryptozz/internal/config"
	"cryptozz/internal/logger"
	"cryptozz/internal/market"
	"cryptozz/internal/smc"
)

const (
	recentWindow  = 24 * time.Hour
	swingLookback = 5
	scoreDeadband = 0.1
)

// Builder 按固定权重合成 CHoCH/BOS/趋势三个子偏向。
type Builder struct {
	weights config.BiasWeights
	now     func() time.Time
}

func NewBuilder(weights config.BiasWeights) *Builder {
	if weights.CHoCH <= 0 && weights.BOS <= 0 && weights.Trend <= 0 {
		weights = config.BiasWeights{CHoCH: 0.4, BOS: 0.4, Trend: 0.2}
	}
	return &Builder{weights: weights, now: time.Now}
}

// DetermineMarketBias 合成最终偏向。任何内部异常都会退化为
// neutral/0 置信度，不向上传播。
func (b *Builder) DetermineMarketBias(
	priceData market.Candles,
	chochSignals, bosSignals []smc.StructureBreak,
	swings smc.SwingPoints,
	timeframe string,
) (out smc.BiasSignal) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("bias builder panic (%s): %v", timeframe, r)
			out = smc.BiasSignal{Bias: smc.BiasNeutral, TrendAlignment: "unknown"}
		}
	}()

	cutoff := b.now().Add(-recentWindow)
	chochScore, chochCount := structureScore(chochSignals, cutoff)
	bosScore, bosCount := structureScore(bosSignals, cutoff)

	trendScore, trendBias, alignment := trendFrom(swings, priceData)
	if alignment == "structure_default" {
		// 无摆动数据时趋势标签跟随结构方向，但不贡献分值
		trendBias = signBias(chochScore + bosScore)
	}

	combined := b.weights.CHoCH*chochScore + b.weights.BOS*bosScore + b.weights.Trend*trendScore
	final := signBias(combined)

	chochBias := signBias(chochScore)
	bosBias := signBias(bosScore)
	if final == smc.BiasNeutral && opposed(chochBias, bosBias) {
		final = smc.BiasMixed
	}

	agree := 0
	for _, sub := range []smc.Bias{chochBias, bosBias, trendBias} {
		if sub == final {
			agree++
		}
	}

	strength := combined
	if strength < 0 {
		strength = -strength
	}
	if strength > 1 {
		strength = 1
	}

	var factors []string
	if chochCount > 0 {
		factors = append(factors, fmt.Sprintf("choch:%s(%d)", chochBias, chochCount))
	}
	if bosCount > 0 {
		factors = append(factors, fmt.Sprintf("bos:%s(%d)", bosBias, bosCount))
	}
	factors = append(factors, "trend:"+alignment)

	return smc.BiasSignal{
		Bias:           final,
		Strength:       strength,
		Confidence:     float64(agree) / 3.0,
		Factors:        factors,
		CHoCHCount:     chochCount,
		BOSCount:       bosCount,
		TrendAlignment: alignment,
	}
}

// structureScore 统计 24h 内信号的多空占比，返回 [-1,1] 分值与样本数。
func structureScore(signals []smc.StructureBreak, cutoff time.Time) (float64, int) {
	bull, bear := 0, 0
	for _, sig := range signals {
		if sig.Timestamp.Before(cutoff) {
			continue
		}
		switch sig.Direction {
		case smc.BiasBullish:
			bull++
		case smc.BiasBearish:
			bear++
		}
	}
	total := bull + bear
	if total == 0 {
		return 0, 0
	}
	return float64(bull-bear) / float64(total), total
}

// trendFrom 依据最近 5 个摆动高/低点的单调性打分；摆动点不足时
// 退回最近收盘价序列；两者都缺失则返回 structure_default。
func trendFrom(swings smc.SwingPoints, candles market.Candles) (float64, smc.Bias, string) {
	ups, downs := 0, 0
	countPairs := func(points []smc.SwingPoint) {
		n := len(points)
		if n < 2 {
			return
		}
		if n > swingLookback {
			points = points[n-swingLookback:]
		}
		for i := 1; i < len(points); i++ {
			switch {
			case points[i].Price > points[i-1].Price:
				ups++
			case points[i].Price < points[i-1].Price:
				downs++
			}
		}
	}
	countPairs(swings.Highs)
	countPairs(swings.Lows)

	if ups+downs == 0 && len(candles) >= 2 {
		closes := candles
		if len(closes) > swingLookback {
			closes = closes[len(closes)-swingLookback:]
		}
		for i := 1; i < len(closes); i++ {
			switch {
			case closes[i].Close > closes[i-1].Close:
				ups++
			case closes[i].Close < closes[i-1].Close:
				downs++
			}
		}
	}

	total := ups + downs
	if total == 0 {
		return 0, smc.BiasNeutral, "structure_default"
	}
	score := float64(ups-downs) / float64(total)
	trend := signBias(score)
	switch trend {
	case smc.BiasBullish:
		return score, trend, "uptrend"
	case smc.BiasBearish:
		return score, trend, "downtrend"
	default:
		return score, trend, "sideways"
	}
}

func signBias(score float64) smc.Bias {
	switch {
	case score > scoreDeadband:
		return smc.BiasBullish
	case score < -scoreDeadband:
		return smc.BiasBearish
	default:
		return smc.BiasNeutral
	}
}

func opposed(a, b smc.Bias) bool {
	return (a == smc.BiasBullish && b == smc.BiasBearish) ||
		(a == smc.BiasBearish && b == smc.BiasBullish)
}
