package engine

import (
	"time"

	"cryptozz/internal/market"
	"cryptozz/internal/smc"
)

const (
	fractalSpan  = 2
	spikeWindow  = 20
	obMaxPerSide = 5
)

func candleTime(c market.Candle) time.Time {
	ts := c.CloseTime
	if ts == 0 {
		ts = c.OpenTime
	}
	return time.UnixMilli(ts).UTC()
}

// DetectStructure 从 K 线序列提取 SMC 结构要素。检测是确定性的：
// 相同输入恒得相同输出，便于回放与测试。
func DetectStructure(symbol, timeframe string, candles market.Candles) (smc.Update, smc.SwingPoints) {
	var update smc.Update
	swings := detectSwings(candles)
	if len(candles) == 0 {
		return update, swings
	}

	update.BOS, update.CHoCH, update.OBs = detectBreaks(symbol, timeframe, candles, swings)
	update.FVGs = detectFVGs(symbol, timeframe, candles)
	update.Sweeps = detectSweeps(candles, swings)
	return update, swings
}

// VolumeDeltas 用 K 线方向近似主动买卖差：阳线记正量，阴线记负量。
func VolumeDeltas(candles market.Candles) []smc.VolumePoint {
	points := make([]smc.VolumePoint, 0, len(candles))
	for _, c := range candles {
		delta := c.Volume
		if !c.Bullish() {
			delta = -c.Volume
		}
		points = append(points, smc.VolumePoint{Delta: delta, Total: c.Volume, Timestamp: candleTime(c)})
	}
	return points
}

// detectSwings 用对称分形找摆动点：两侧各 fractalSpan 根都不超过自己。
func detectSwings(candles market.Candles) smc.SwingPoints {
	var swings smc.SwingPoints
	for i := fractalSpan; i < len(candles)-fractalSpan; i++ {
		isHigh, isLow := true, true
		for j := i - fractalSpan; j <= i+fractalSpan; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
		}
		if isHigh {
			swings.Highs = append(swings.Highs, smc.SwingPoint{Kind: "high", Price: candles[i].High, Timestamp: candleTime(candles[i])})
		}
		if isLow {
			swings.Lows = append(swings.Lows, smc.SwingPoint{Kind: "low", Price: candles[i].Low, Timestamp: candleTime(candles[i])})
		}
	}
	return swings
}

// detectBreaks 按时间序扫描收盘对最近摆动高/低的突破。
// 顺势突破记 BOS，逆势首次突破记 CHoCH，并同步提取订单块。
func detectBreaks(symbol, timeframe string, candles market.Candles, swings smc.SwingPoints) (bos, choch []smc.StructureBreak, obs []smc.OrderBlock) {
	trend := smc.BiasNeutral
	hi, lo := 0, 0
	var lastHigh, lastLow *smc.SwingPoint

	for i, c := range candles {
		ct := candleTime(c)
		for hi < len(swings.Highs) && swings.Highs[hi].Timestamp.Before(ct) {
			lastHigh = &swings.Highs[hi]
			hi++
		}
		for lo < len(swings.Lows) && swings.Lows[lo].Timestamp.Before(ct) {
			lastLow = &swings.Lows[lo]
			lo++
		}

		if lastHigh != nil && c.Close > lastHigh.Price {
			brk := smc.StructureBreak{
				Direction:  smc.BiasBullish,
				Price:      lastHigh.Price,
				Confidence: breakConfidence(c, lastHigh.Price),
				Timestamp:  ct,
			}
			if trend == smc.BiasBearish {
				brk.Kind = smc.KindCHoCH
				choch = append(choch, brk)
			} else {
				brk.Kind = smc.KindBOS
				bos = append(bos, brk)
			}
			if ob := orderBlockBefore(symbol, timeframe, candles, i, smc.BiasBullish); ob != nil {
				obs = append(obs, *ob)
			}
			trend = smc.BiasBullish
			lastHigh = nil
			continue
		}

		if lastLow != nil && c.Close < lastLow.Price {
			brk := smc.StructureBreak{
				Direction:  smc.BiasBearish,
				Price:      lastLow.Price,
				Confidence: breakConfidence(c, lastLow.Price),
				Timestamp:  ct,
			}
			if trend == smc.BiasBullish {
				brk.Kind = smc.KindCHoCH
				choch = append(choch, brk)
			} else {
				brk.Kind = smc.KindBOS
				bos = append(bos, brk)
			}
			if ob := orderBlockBefore(symbol, timeframe, candles, i, smc.BiasBearish); ob != nil {
				obs = append(obs, *ob)
			}
			trend = smc.BiasBearish
			lastLow = nil
		}
	}

	if len(obs) > obMaxPerSide*2 {
		obs = obs[len(obs)-obMaxPerSide*2:]
	}
	return bos, choch, obs
}

// breakConfidence：收盘越过突破位越远，置信度越高，封顶 1。
func breakConfidence(c market.Candle, level float64) float64 {
	if level <= 0 {
		return 0
	}
	dist := c.Close - level
	if dist < 0 {
		dist = -dist
	}
	conf := 0.5 + dist/level*50
	if conf > 1 {
		conf = 1
	}
	return conf
}

// orderBlockBefore 取突破 K 线之前最近一根反向 K 线作为订单块。
func orderBlockBefore(symbol, timeframe string, candles market.Candles, breakIdx int, direction smc.Bias) *smc.OrderBlock {
	for i := breakIdx - 1; i >= 0 && i >= breakIdx-10; i-- {
		c := candles[i]
		opposite := (direction == smc.BiasBullish && !c.Bullish()) ||
			(direction == smc.BiasBearish && c.Bullish())
		if !opposite {
			continue
		}
		strength := 0.5
		if r := c.High - c.Low; r > 0 && c.Volume > 0 {
			body := c.Close - c.Open
			if body < 0 {
				body = -body
			}
			strength = 0.4 + 0.6*body/r
		}
		return &smc.OrderBlock{
			Symbol:    symbol,
			Timeframe: timeframe,
			Direction: direction,
			Price:     (c.High + c.Low) / 2,
			High:      c.High,
			Low:       c.Low,
			Strength:  strength,
			Status:    smc.MitigationUntested,
			FormedAt:  candleTime(c),
		}
	}
	return nil
}

// detectFVGs：三连 K 线留下的未回补价格真空。
func detectFVGs(symbol, timeframe string, candles market.Candles) []smc.FairValueGap {
	var gaps []smc.FairValueGap
	for i := 0; i+2 < len(candles); i++ {
		first, third := candles[i], candles[i+2]
		if third.Low > first.High {
			gaps = append(gaps, fvg(symbol, timeframe, smc.BiasBullish, first.High, third.Low, candleTime(third)))
		}
		if third.High < first.Low {
			gaps = append(gaps, fvg(symbol, timeframe, smc.BiasBearish, third.High, first.Low, candleTime(third)))
		}
	}
	return gaps
}

func fvg(symbol, timeframe string, dir smc.Bias, low, high float64, at time.Time) smc.FairValueGap {
	strength := 0.0
	if low > 0 {
		strength = (high - low) / low * 100
		if strength > 1 {
			strength = 1
		}
	}
	return smc.FairValueGap{
		Symbol:    symbol,
		Timeframe: timeframe,
		Direction: dir,
		GapLow:    low,
		GapHigh:   high,
		Strength:  strength,
		Fill:      smc.FillUnfilled,
		FormedAt:  at,
	}
}

// detectSweeps：影线刺穿前摆动高/低但收盘收回，视为流动性扫荡。
// 成交量倍数相对近 20 根均量计算，均量缺失时留空。
func detectSweeps(candles market.Candles, swings smc.SwingPoints) []smc.LiquiditySweep {
	var sweeps []smc.LiquiditySweep
	for i, c := range candles {
		ct := candleTime(c)
		for _, sw := range swings.Lows {
			if !sw.Timestamp.Before(ct) {
				continue
			}
			if c.Low < sw.Price && c.Close > sw.Price {
				sweeps = append(sweeps, sweepAt(candles, i, sw.Price, "low"))
				break
			}
		}
		for _, sw := range swings.Highs {
			if !sw.Timestamp.Before(ct) {
				continue
			}
			if c.High > sw.Price && c.Close < sw.Price {
				sweeps = append(sweeps, sweepAt(candles, i, sw.Price, "high"))
				break
			}
		}
	}
	return sweeps
}

func sweepAt(candles market.Candles, idx int, level float64, side string) smc.LiquiditySweep {
	sweep := smc.LiquiditySweep{Level: level, Side: side, Timestamp: candleTime(candles[idx])}
	start := idx - spikeWindow
	if start < 0 {
		start = 0
	}
	sum, n := 0.0, 0
	for _, c := range candles[start:idx] {
		sum += c.Volume
		n++
	}
	if n > 0 && sum > 0 {
		ratio := candles[idx].Volume / (sum / float64(n))
		sweep.VolumeSpike = &ratio
	}
	return sweep
}
