package bias

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cryptozz/internal/config"
	"cryptozz/internal/smc"
)

func defaultWeights() config.BiasWeights {
	return config.BiasWeights{CHoCH: 0.4, BOS: 0.4, Trend: 0.2}
}

func chochAt(dir smc.Bias, ts time.Time) smc.StructureBreak {
	return smc.StructureBreak{Kind: smc.KindCHoCH, Direction: dir, Price: 100, Timestamp: ts}
}

func TestPureBullishCHoCHScenario(t *testing.T) {
	b := NewBuilder(defaultWeights())
	now := time.Now()
	signals := []smc.StructureBreak{
		chochAt(smc.BiasBullish, now),
		chochAt(smc.BiasBullish, now),
		chochAt(smc.BiasBullish, now),
	}

	out := b.DetermineMarketBias(nil, signals, nil, smc.SwingPoints{}, "1H")

	assert.Equal(t, smc.BiasBullish, out.Bias)
	assert.InDelta(t, 2.0/3.0, out.Confidence, 1e-9)
	assert.Equal(t, 3, out.CHoCHCount)
	assert.Equal(t, 0, out.BOSCount)
	// 0.4*1 + 0.4*0 + 0.2*0
	assert.InDelta(t, 0.4, out.Strength, 1e-9)
	assert.Equal(t, "structure_default", out.TrendAlignment)
}

func TestConfidenceAlwaysInUnitInterval(t *testing.T) {
	b := NewBuilder(defaultWeights())
	now := time.Now()
	cases := [][]smc.StructureBreak{
		nil,
		{chochAt(smc.BiasBullish, now)},
		{chochAt(smc.BiasBearish, now), chochAt(smc.BiasBullish, now)},
		{chochAt(smc.BiasBearish, now), chochAt(smc.BiasBearish, now), chochAt(smc.BiasBullish, now)},
	}
	for _, choch := range cases {
		out := b.DetermineMarketBias(nil, choch, choch, smc.SwingPoints{}, "1H")
		assert.GreaterOrEqual(t, out.Confidence, 0.0)
		assert.LessOrEqual(t, out.Confidence, 1.0)
		assert.Contains(t, []smc.Bias{smc.BiasBullish, smc.BiasBearish, smc.BiasNeutral, smc.BiasMixed}, out.Bias)
	}
}

func TestStaleSignalsAreIgnored(t *testing.T) {
	b := NewBuilder(defaultWeights())
	old := time.Now().Add(-25 * time.Hour)
	signals := []smc.StructureBreak{chochAt(smc.BiasBullish, old), chochAt(smc.BiasBullish, old)}

	out := b.DetermineMarketBias(nil, signals, nil, smc.SwingPoints{}, "1H")

	assert.Equal(t, smc.BiasNeutral, out.Bias)
	assert.Equal(t, 0, out.CHoCHCount)
	assert.Equal(t, 0.0, out.Strength)
}

func TestSwingMonotonicityDrivesTrend(t *testing.T) {
	b := NewBuilder(defaultWeights())
	now := time.Now()
	swings := smc.SwingPoints{
		Highs: []smc.SwingPoint{
			{Kind: "high", Price: 100, Timestamp: now.Add(-4 * time.Hour)},
			{Kind: "high", Price: 102, Timestamp: now.Add(-3 * time.Hour)},
			{Kind: "high", Price: 104, Timestamp: now.Add(-2 * time.Hour)},
		},
		Lows: []smc.SwingPoint{
			{Kind: "low", Price: 95, Timestamp: now.Add(-4 * time.Hour)},
			{Kind: "low", Price: 97, Timestamp: now.Add(-3 * time.Hour)},
		},
	}

	out := b.DetermineMarketBias(nil, nil, nil, swings, "4H")

	assert.Equal(t, "uptrend", out.TrendAlignment)
	// 仅趋势分量：0.2*1 = 0.2 > 0.1
	assert.Equal(t, smc.BiasBullish, out.Bias)
	assert.InDelta(t, 0.2, out.Strength, 1e-9)
	// 仅趋势子偏向与最终结果一致
	assert.InDelta(t, 1.0/3.0, out.Confidence, 1e-9)
}

func TestOpposedStructureYieldsMixed(t *testing.T) {
	b := NewBuilder(defaultWeights())
	now := time.Now()
	choch := []smc.StructureBreak{chochAt(smc.BiasBullish, now), chochAt(smc.BiasBullish, now)}
	bos := []smc.StructureBreak{
		{Kind: smc.KindBOS, Direction: smc.BiasBearish, Price: 100, Timestamp: now},
		{Kind: smc.KindBOS, Direction: smc.BiasBearish, Price: 100, Timestamp: now},
	}

	out := b.DetermineMarketBias(nil, choch, bos, smc.SwingPoints{}, "1H")

	assert.Equal(t, smc.BiasMixed, out.Bias)
}
