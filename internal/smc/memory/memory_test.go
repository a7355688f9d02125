package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptozz/internal/smc"
)

func TestUpdateKeepsLastElementOnly(t *testing.T) {
	mem := New(10)
	now := time.Now()

	mem.Update(smc.Update{
		BOS: []smc.StructureBreak{
			{Kind: smc.KindBOS, Direction: smc.BiasBearish, Price: 100, Timestamp: now.Add(-time.Hour)},
			{Kind: smc.KindBOS, Direction: smc.BiasBullish, Price: 105, Confidence: 0.8, Timestamp: now},
		},
		CHoCH: []smc.StructureBreak{
			{Kind: smc.KindCHoCH, Direction: smc.BiasBullish, Price: 103, Timestamp: now},
		},
	}, "BTC-USDT", "1H")

	snap, ok := mem.SnapshotFor("BTC-USDT", "1H")
	require.True(t, ok)
	require.NotNil(t, snap.LastBOS)
	assert.Equal(t, 105.0, snap.LastBOS.Price)
	assert.Equal(t, smc.BiasBullish, snap.LastBOS.Direction)
	assert.Equal(t, 0.8, snap.LastBOS.Confidence)
	require.NotNil(t, snap.LastCHoCH)
	assert.Equal(t, 103.0, snap.LastCHoCH.Price)
}

func TestContextReflectsJustWrittenValues(t *testing.T) {
	mem := New(10)
	now := time.Now()
	bos := smc.StructureBreak{Kind: smc.KindBOS, Direction: smc.BiasBullish, Price: 42000.5, Confidence: 0.9, Timestamp: now}

	mem.Update(smc.Update{BOS: []smc.StructureBreak{bos}}, "BTC-USDT", "4H")

	view := mem.Context()
	require.NotNil(t, view.Latest)
	require.NotNil(t, view.Latest.LastBOS)
	assert.Equal(t, bos, *view.Latest.LastBOS)
	assert.Equal(t, 1, view.Snapshots)
	assert.Equal(t, 1, view.History)
	assert.Equal(t, []string{"BTC-USDT"}, view.Symbols)
}

func TestHistoryNeverExceedsLimit(t *testing.T) {
	mem := New(100)
	for i := 0; i < 250; i++ {
		mem.Update(smc.Update{
			CHoCH: []smc.StructureBreak{{Kind: smc.KindCHoCH, Price: float64(i), Timestamp: time.Now()}},
		}, fmt.Sprintf("SYM%d-USDT", i%7), "1H")
		assert.LessOrEqual(t, len(mem.history), 100)
	}
	assert.Len(t, mem.history, 100)
	// 最旧的条目被先行淘汰
	assert.Equal(t, 150.0, mem.history[0].Update.CHoCH[0].Price)
}

func TestRecentHistoryFilters(t *testing.T) {
	mem := New(50)
	base := time.Now()
	mem.now = func() time.Time { return base.Add(-48 * time.Hour) }
	mem.Update(smc.Update{}, "BTC-USDT", "1H")
	mem.now = func() time.Time { return base }
	mem.Update(smc.Update{}, "BTC-USDT", "1H")
	mem.Update(smc.Update{}, "ETH-USDT", "4H")

	assert.Len(t, mem.RecentHistory(24, "", ""), 2)
	assert.Len(t, mem.RecentHistory(24, "BTC-USDT", ""), 1)
	assert.Len(t, mem.RecentHistory(24, "BTC-USDT", "4h"), 0)
	assert.Len(t, mem.RecentHistory(72, "", ""), 3)
}

func TestClearOldDropsStaleFields(t *testing.T) {
	mem := New(50)
	base := time.Now()
	stale := base.Add(-30 * time.Hour)

	mem.now = func() time.Time { return stale }
	mem.Update(smc.Update{
		BOS: []smc.StructureBreak{{Kind: smc.KindBOS, Price: 90, Timestamp: stale}},
		OBs: []smc.OrderBlock{{Direction: smc.BiasBullish, Price: 88, FormedAt: stale}},
	}, "BTC-USDT", "1H")

	mem.now = func() time.Time { return base }
	mem.Update(smc.Update{
		CHoCH: []smc.StructureBreak{{Kind: smc.KindCHoCH, Price: 95, Timestamp: base}},
	}, "BTC-USDT", "1H")

	removed := mem.ClearOld(24)
	assert.Equal(t, 1, removed)

	snap, ok := mem.SnapshotFor("BTC-USDT", "1H")
	require.True(t, ok)
	assert.Nil(t, snap.LastBOS)
	assert.Empty(t, snap.BullishOBs)
	require.NotNil(t, snap.LastCHoCH)
	assert.Equal(t, 95.0, snap.LastCHoCH.Price)
}
