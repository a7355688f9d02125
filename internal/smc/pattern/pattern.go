// Package pattern 在结构记忆之上做 Wyckoff 形态启发式识别。
// 这些检测依赖上游可选字段（如 volume_spike），缺失时只会降低
// 置信度或直接判未检出，绝不虚构信号质量。
package pattern

import (
	"time"

	"cryptozz/internal/smc"
)

const sweepRecency = 12 * time.Hour

type Detection struct {
	Pattern    string   `json:"pattern"`
	Detected   bool     `json:"detected"`
	Confidence float64  `json:"confidence"`
	Notes      []string `json:"notes,omitempty"`
}

type Result struct {
	Symbol      string      `json:"symbol"`
	Timeframe   string      `json:"timeframe"`
	Patterns    []Detection `json:"patterns"`
	EvaluatedAt time.Time   `json:"evaluated_at"`
}

// Recognize 对单个快照运行全部形态检测。
func Recognize(snap smc.Snapshot, now time.Time) Result {
	if now.IsZero() {
		now = time.Now()
	}
	return Result{
		Symbol:    snap.Symbol,
		Timeframe: snap.Timeframe,
		Patterns: []Detection{
			detectSpring(snap, now),
			detectUpthrust(snap, now),
			detectAccumulation(snap),
			detectDistribution(snap),
		},
		EvaluatedAt: now,
	}
}

// detectSpring：扫荡前低后出现看涨 CHoCH。volume_spike 可选，
// 存在且显著时提升置信度。
func detectSpring(snap smc.Snapshot, now time.Time) Detection {
	det := Detection{Pattern: "spring"}
	sweep := snap.LastSweep
	if sweep == nil || sweep.Side != "low" || now.Sub(sweep.Timestamp) > sweepRecency {
		det.Notes = append(det.Notes, "no recent low sweep")
		return det
	}
	choch := snap.LastCHoCH
	if choch == nil || choch.Direction != smc.BiasBullish || choch.Timestamp.Before(sweep.Timestamp) {
		det.Notes = append(det.Notes, "no bullish choch after sweep")
		return det
	}
	det.Detected = true
	det.Confidence = 0.5
	if choch.Confidence > 0 {
		det.Confidence += 0.2 * choch.Confidence
	}
	if sweep.VolumeSpike != nil {
		if *sweep.VolumeSpike >= 1.5 {
			det.Confidence += 0.2
		}
	} else {
		det.Notes = append(det.Notes, "volume spike data unavailable")
	}
	if det.Confidence > 1 {
		det.Confidence = 1
	}
	return det
}

// detectUpthrust：扫荡前高后出现看跌 CHoCH。
func detectUpthrust(snap smc.Snapshot, now time.Time) Detection {
	det := Detection{Pattern: "upthrust"}
	sweep := snap.LastSweep
	if sweep == nil || sweep.Side != "high" || now.Sub(sweep.Timestamp) > sweepRecency {
		det.Notes = append(det.Notes, "no recent high sweep")
		return det
	}
	choch := snap.LastCHoCH
	if choch == nil || choch.Direction != smc.BiasBearish || choch.Timestamp.Before(sweep.Timestamp) {
		det.Notes = append(det.Notes, "no bearish choch after sweep")
		return det
	}
	det.Detected = true
	det.Confidence = 0.5
	if choch.Confidence > 0 {
		det.Confidence += 0.2 * choch.Confidence
	}
	if sweep.VolumeSpike != nil && *sweep.VolumeSpike >= 1.5 {
		det.Confidence += 0.2
	} else if sweep.VolumeSpike == nil {
		det.Notes = append(det.Notes, "volume spike data unavailable")
	}
	if det.Confidence > 1 {
		det.Confidence = 1
	}
	return det
}

// detectAccumulation：看涨订单块占多数，且最近结构转为看涨。
func detectAccumulation(snap smc.Snapshot) Detection {
	det := Detection{Pattern: "wyckoff_accumulation"}
	bull, bear := len(snap.BullishOBs), len(snap.BearishOBs)
	if bull == 0 || bull <= bear {
		det.Notes = append(det.Notes, "bullish order blocks not dominant")
		return det
	}
	turned := snap.LastCHoCH != nil && snap.LastCHoCH.Direction == smc.BiasBullish
	continued := snap.LastBOS != nil && snap.LastBOS.Direction == smc.BiasBullish
	if !turned && !continued {
		det.Notes = append(det.Notes, "structure not turned bullish")
		return det
	}
	det.Detected = true
	det.Confidence = 0.4 + 0.1*float64(min(bull-bear, 4))
	if turned && continued {
		det.Confidence += 0.1
	}
	return det
}

// detectDistribution：看跌订单块占多数，且最近结构转为看跌。
func detectDistribution(snap smc.Snapshot) Detection {
	det := Detection{Pattern: "wyckoff_distribution"}
	bull, bear := len(snap.BullishOBs), len(snap.BearishOBs)
	if bear == 0 || bear <= bull {
		det.Notes = append(det.Notes, "bearish order blocks not dominant")
		return det
	}
	turned := snap.LastCHoCH != nil && snap.LastCHoCH.Direction == smc.BiasBearish
	continued := snap.LastBOS != nil && snap.LastBOS.Direction == smc.BiasBearish
	if !turned && !continued {
		det.Notes = append(det.Notes, "structure not turned bearish")
		return det
	}
	det.Detected = true
	det.Confidence = 0.4 + 0.1*float64(min(bear-bull, 4))
	if turned && continued {
		det.Confidence += 0.1
	}
	return det
}
