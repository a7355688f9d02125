package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "signals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveSignalFillsDefaults(t *testing.T) {
	s := openTemp(t)

	rec, err := s.SaveSignal(context.Background(), SignalRecord{
		Symbol: "btc-usdt", Timeframe: "1h", Direction: "LONG", Recommendation: "BUY",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "BTC-USDT", rec.Symbol)
	assert.Greater(t, rec.CreatedAtUnix, int64(0))
	assert.Equal(t, "{}", string(rec.Plan))
}

func TestRecentSignalsFilterAndOrder(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour).UnixMilli()
	for i := 0; i < 5; i++ {
		sym := "BTC-USDT"
		if i%2 == 1 {
			sym = "ETH-USDT"
		}
		_, err := s.SaveSignal(ctx, SignalRecord{
			Symbol:        sym,
			Timeframe:     "1h",
			CreatedAtUnix: base + int64(i)*60_000,
			Plan:          datatypes.JSON([]byte(`{"entry":100}`)),
		})
		require.NoError(t, err)
	}

	all, err := s.RecentSignals(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Greater(t, all[0].CreatedAtUnix, all[4].CreatedAtUnix)

	btc, err := s.RecentSignals(ctx, "btc-usdt", 10)
	require.NoError(t, err)
	require.Len(t, btc, 3)
	for _, r := range btc {
		assert.Equal(t, "BTC-USDT", r.Symbol)
	}
}

func TestQueryLogRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.LogQuery(ctx, QueryLogRecord{
		Endpoint: "/api/gpts/sinyal/tajam", Params: "symbol=BTC-USDT", Status: 200, LatencyMillis: 42,
	}))
	require.NoError(t, s.LogQuery(ctx, QueryLogRecord{
		Endpoint: "/api/backtest", Params: "strategy=nope", Status: 400, LatencyMillis: 3,
	}))

	logs, err := s.RecentQueries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "/api/backtest", logs[0].Endpoint)
	assert.Equal(t, 400, logs[0].Status)
}

func TestPurgeBefore(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour).UnixMilli()
	_, err := s.SaveSignal(ctx, SignalRecord{Symbol: "BTC-USDT", CreatedAtUnix: old})
	require.NoError(t, err)
	_, err = s.SaveSignal(ctx, SignalRecord{Symbol: "BTC-USDT"})
	require.NoError(t, err)
	require.NoError(t, s.LogQuery(ctx, QueryLogRecord{Endpoint: "/health", CreatedAtUnix: old}))

	deleted, err := s.PurgeBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	left, err := s.RecentSignals(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestNilStoreIsNoop(t *testing.T) {
	var s *Store
	_, err := s.SaveSignal(context.Background(), SignalRecord{Symbol: "BTC-USDT"})
	assert.NoError(t, err)
	recs, err := s.RecentSignals(context.Background(), "", 10)
	assert.NoError(t, err)
	assert.Nil(t, recs)
	assert.NoError(t, s.LogQuery(context.Background(), QueryLogRecord{}))
	assert.NoError(t, s.Close())
}
