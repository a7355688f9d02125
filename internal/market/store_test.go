package market

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candleAt(ts int64, close float64) Candle {
	return Candle{OpenTime: ts, CloseTime: ts + 3600_000, Open: close, High: close + 1, Low: close - 1, Close: close, Volume: 10}
}

func TestMemoryKlineStorePutGet(t *testing.T) {
	s := NewMemoryKlineStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "BTC-USDT", "1h", []Candle{candleAt(1, 100), candleAt(2, 101)}, 10))
	got, err := s.Get(ctx, "BTC-USDT", "1h")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// 同一 OpenTime 覆盖，不追加
	require.NoError(t, s.Put(ctx, "BTC-USDT", "1h", []Candle{candleAt(2, 105)}, 10))
	got, _ = s.Get(ctx, "BTC-USDT", "1h")
	require.Len(t, got, 2)
	assert.InDelta(t, 105, got[1].Close, 1e-9)
}

func TestMemoryKlineStoreRetentionCap(t *testing.T) {
	s := NewMemoryKlineStore()
	ctx := context.Background()
	for i := int64(0); i < 20; i++ {
		require.NoError(t, s.Put(ctx, "ETH-USDT", "1h", []Candle{candleAt(i, 100)}, 5))
	}
	got, err := s.Get(ctx, "ETH-USDT", "1h")
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, int64(19), got[4].OpenTime)
}

type flakySource struct {
	candles []Candle
	fail    bool
	calls   int
}

func (f *flakySource) FetchHistory(context.Context, string, string, int) ([]Candle, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("upstream down")
	}
	return f.candles, nil
}

func TestCachedSourceServesStaleOnFailure(t *testing.T) {
	up := &flakySource{candles: []Candle{candleAt(1, 100), candleAt(2, 101), candleAt(3, 102)}}
	src := NewCachedSource(up, 10)
	ctx := context.Background()

	got, err := src.FetchHistory(ctx, "BTC-USDT", "1h", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// 上游挂掉后退化为缓存数据，并按 limit 截尾
	up.fail = true
	got, err = src.FetchHistory(ctx, "BTC-USDT", "1h", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].OpenTime)
}

func TestCachedSourcePropagatesErrorWithoutCache(t *testing.T) {
	src := NewCachedSource(&flakySource{fail: true}, 10)
	_, err := src.FetchHistory(context.Background(), "BTC-USDT", "1h", 10)
	assert.Error(t, err)
}
