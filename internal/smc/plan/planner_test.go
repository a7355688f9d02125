package plan

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptozz/internal/config"
	"cryptozz/internal/smc"
)

func defaultParams() config.PlanParameters {
	return config.PlanParameters{
		FallbackStopPct: 0.02,
		MaxSizePct:      50,
		RiskMultiples:   []float64{1.5, 2.5, 3.5},
	}
}

func TestFallbackStopAndTargetsExactValues(t *testing.T) {
	p := NewPlanner(defaultParams())

	out, err := p.CreateTradePlan("BTC-USDT", smc.Long, 100,
		nil, nil, nil, smc.SwingPoints{}, 10000, 1, "1H")
	require.NoError(t, err)

	// 无结构输入：止损兜底为现价 ×0.98，入场为现价微调
	assert.InDelta(t, 98.0, out.StopLoss, 1e-12)
	assert.InDelta(t, 99.9, out.Entry, 1e-12)
	assert.Equal(t, "market", out.EntryBasis)

	risk := out.Entry - out.StopLoss
	assert.InDelta(t, out.Entry+1.5*risk, out.TakeProfits[0], 1e-9)
	assert.InDelta(t, out.Entry+2.5*risk, out.TakeProfits[1], 1e-9)
	assert.InDelta(t, out.Entry+3.5*risk, out.TakeProfits[2], 1e-9)
}

func TestLongOrderingInvariant(t *testing.T) {
	p := NewPlanner(defaultParams())
	now := time.Now()
	scenarios := []struct {
		name   string
		obs    []smc.OrderBlock
		sweeps []smc.LiquiditySweep
		swings smc.SwingPoints
	}{
		{name: "bare"},
		{
			name: "with structure",
			obs: []smc.OrderBlock{
				{Direction: smc.BiasBullish, Price: 99, High: 99.5, Low: 98.2, Strength: 0.8, FormedAt: now},
			},
			sweeps: []smc.LiquiditySweep{{Level: 104, Side: "high", Timestamp: now}},
			swings: smc.SwingPoints{
				Highs: []smc.SwingPoint{{Kind: "high", Price: 106, Timestamp: now}},
				Lows:  []smc.SwingPoint{{Kind: "low", Price: 98.5, Timestamp: now}},
			},
		},
	}
	for _, sc := range scenarios {
		out, err := p.CreateTradePlan("ETH-USDT", smc.Long, 100, sc.obs, nil, sc.sweeps, sc.swings, 5000, 1, "1H")
		require.NoError(t, err, sc.name)
		assert.Less(t, out.StopLoss, out.Entry, sc.name)
		assert.Less(t, out.Entry, out.TakeProfits[0], sc.name)
		assert.Less(t, out.TakeProfits[0], out.TakeProfits[1], sc.name)
		assert.Less(t, out.TakeProfits[1], out.TakeProfits[2], sc.name)
	}
}

// 入场吃到深结构回踩（OB 边界离现价近 3%）而 OB 另一侧超出止损
// 搜索窗口时，兜底止损必须跟着入场走，不能高于入场价。
func TestFallbackStopStaysBelowDeepEntry(t *testing.T) {
	p := NewPlanner(defaultParams())
	now := time.Now()

	out, err := p.CreateTradePlan("BTC-USDT", smc.Long, 100,
		[]smc.OrderBlock{{Direction: smc.BiasBullish, Price: 95, High: 97.1, Low: 90, Strength: 0.8, FormedAt: now}},
		nil, nil, smc.SwingPoints{}, 10000, 1, "1H")
	require.NoError(t, err)

	assert.Equal(t, "order_block", out.EntryBasis)
	assert.InDelta(t, 97.1*(1+entryOffsetPct), out.Entry, 1e-9)
	assert.Less(t, out.StopLoss, out.Entry)
	assert.InDelta(t, out.Entry*(1-p.params.FallbackStopPct), out.StopLoss, 1e-6)
	assert.Less(t, out.Entry, out.TakeProfits[0])
	assert.Less(t, out.TakeProfits[0], out.TakeProfits[1])
	assert.Less(t, out.TakeProfits[1], out.TakeProfits[2])
}

func TestFallbackStopStaysAboveDeepShortEntry(t *testing.T) {
	p := NewPlanner(defaultParams())
	now := time.Now()

	out, err := p.CreateTradePlan("BTC-USDT", smc.Short, 100,
		[]smc.OrderBlock{{Direction: smc.BiasBearish, Price: 106, High: 110, Low: 102.9, Strength: 0.8, FormedAt: now}},
		nil, nil, smc.SwingPoints{}, 10000, 1, "1H")
	require.NoError(t, err)

	assert.Equal(t, "order_block", out.EntryBasis)
	assert.InDelta(t, 102.9*(1-entryOffsetPct), out.Entry, 1e-9)
	assert.Greater(t, out.StopLoss, out.Entry)
	assert.InDelta(t, out.Entry*(1+p.params.FallbackStopPct), out.StopLoss, 1e-6)
	assert.Greater(t, out.Entry, out.TakeProfits[0])
}

func TestShortOrderingInvariant(t *testing.T) {
	p := NewPlanner(defaultParams())
	now := time.Now()

	out, err := p.CreateTradePlan("SOL-USDT", smc.Short, 200,
		[]smc.OrderBlock{{Direction: smc.BiasBearish, Price: 203, High: 205, Low: 202, Strength: 0.7, FormedAt: now}},
		nil,
		[]smc.LiquiditySweep{{Level: 190, Side: "low", Timestamp: now}},
		smc.SwingPoints{Lows: []smc.SwingPoint{{Kind: "low", Price: 185, Timestamp: now}}},
		5000, 1, "4H")
	require.NoError(t, err)

	assert.Greater(t, out.StopLoss, out.Entry)
	assert.Greater(t, out.Entry, out.TakeProfits[0])
	assert.Greater(t, out.TakeProfits[0], out.TakeProfits[1])
	assert.Greater(t, out.TakeProfits[1], out.TakeProfits[2])
}

func TestPositionSizeNeverExceedsCap(t *testing.T) {
	p := NewPlanner(defaultParams())
	for _, riskPct := range []float64{0.5, 1, 2, 5, 10} {
		out, err := p.CreateTradePlan("BTC-USDT", smc.Long, 100, nil, nil, nil, smc.SwingPoints{}, 10000, riskPct, "1H")
		require.NoError(t, err)
		assert.LessOrEqual(t, out.PositionSizePct, 50.0, "risk=%v", riskPct)
		assert.GreaterOrEqual(t, out.PositionSizePct, 0.0)
	}
}

func TestEntryPrefersNearbyOrderBlock(t *testing.T) {
	p := NewPlanner(defaultParams())
	now := time.Now()
	obs := []smc.OrderBlock{
		{Direction: smc.BiasBullish, Price: 98.8, High: 99.2, Low: 98.0, Strength: 0.9, FormedAt: now},
		{Direction: smc.BiasBullish, Price: 90, High: 91, Low: 89, Strength: 0.9, FormedAt: now}, // 超出 3% 区间
	}

	out, err := p.CreateTradePlan("BTC-USDT", smc.Long, 100, obs, nil, nil, smc.SwingPoints{}, 10000, 1, "1H")
	require.NoError(t, err)

	assert.Equal(t, "order_block", out.EntryBasis)
	assert.InDelta(t, 99.2*(1+entryOffsetPct), out.Entry, 1e-9)
}

func TestRejectsUnknownDirection(t *testing.T) {
	p := NewPlanner(defaultParams())
	_, err := p.CreateTradePlan("BTC-USDT", "HOLD", 100, nil, nil, nil, smc.SwingPoints{}, 1000, 1, "1H")
	require.Error(t, err)
}

func TestRiskRewardUsesMiddleTarget(t *testing.T) {
	p := NewPlanner(defaultParams())
	out, err := p.CreateTradePlan("BTC-USDT", smc.Long, 100, nil, nil, nil, smc.SwingPoints{}, 10000, 1, "1H")
	require.NoError(t, err)

	risk := out.Entry - out.StopLoss
	expected := math.Round((out.TakeProfits[1]-out.Entry)/risk*100) / 100
	assert.InDelta(t, expected, out.RiskReward, 1e-9)
	assert.InDelta(t, 2.5, out.RiskReward, 1e-9)
}
