package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptozz/internal/smc/engine"
)

func TestParseIntervalDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"15m": 15 * time.Minute,
		"1h":  time.Hour,
		"4H":  4 * time.Hour,
		"1d":  24 * time.Hour,
		"1w":  7 * 24 * time.Hour,
	}
	for raw, want := range cases {
		got, err := ParseIntervalDuration(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "h", "0m", "-5m", "10x", "abc"} {
		_, err := ParseIntervalDuration(raw)
		assert.Error(t, err, raw)
	}
}

func TestAlignedNextAfter(t *testing.T) {
	s := Aligned{Interval: time.Hour, Offset: 10 * time.Second}

	now := time.Date(2025, 3, 1, 14, 25, 0, 0, time.UTC)
	next := s.nextAfter(now)
	assert.Equal(t, time.Date(2025, 3, 1, 15, 0, 10, 0, time.UTC), next)

	// 边界 + offset 之前一点，仍然落在当前周期
	now = time.Date(2025, 3, 1, 15, 0, 5, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 1, 15, 0, 10, 0, time.UTC), s.nextAfter(now))

	// 刚好过了 offset，滚到下一个周期
	now = time.Date(2025, 3, 1, 15, 0, 10, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 1, 16, 0, 10, 0, time.UTC), s.nextAfter(now))
}

func TestAlignedRunImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ran := 0
	s := Aligned{Interval: time.Hour, RunImmediately: true}
	go func() {
		// 首次执行后立即退出，不等下一个边界
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	err := s.Run(ctx, func(context.Context) { ran++ })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, ran)
}

type scriptedAnalyzer struct {
	bySymbol map[string]engine.Analysis
}

func (s scriptedAnalyzer) Analyze(_ context.Context, symbol, timeframe string, _ engine.Options) engine.Analysis {
	a, ok := s.bySymbol[symbol]
	if !ok {
		return engine.Analysis{Symbol: symbol, Timeframe: timeframe, Err: "tidak ada data"}
	}
	return a
}

type captureNotifier struct {
	sent []string
}

func (c *captureNotifier) SendText(text string) error {
	c.sent = append(c.sent, text)
	return nil
}

func TestScannerNotifiesStrongOnce(t *testing.T) {
	analyzer := scriptedAnalyzer{bySymbol: map[string]engine.Analysis{
		"BTC-USDT": {Symbol: "BTC-USDT", Timeframe: "1h", Recommendation: "STRONG_BUY", CurrentPrice: 65000},
		"ETH-USDT": {Symbol: "ETH-USDT", Timeframe: "1h", Recommendation: "HOLD"},
	}}
	capture := &captureNotifier{}
	s := NewScanner(analyzer, capture, []string{"BTC-USDT", "ETH-USDT", "SOL-USDT"}, "1h")
	require.NotNil(t, s)

	ctx := context.Background()
	s.scanOnce(ctx)
	require.Len(t, capture.sent, 1)
	assert.Contains(t, capture.sent[0], "BTC-USDT")
	assert.Contains(t, capture.sent[0], "STRONG_BUY")

	// 同一档建议不重复推送
	s.scanOnce(ctx)
	assert.Len(t, capture.sent, 1)

	// 建议变化后恢复推送
	analyzer.bySymbol["BTC-USDT"] = engine.Analysis{Symbol: "BTC-USDT", Timeframe: "1h", Recommendation: "STRONG_SELL"}
	s.scanOnce(ctx)
	assert.Len(t, capture.sent, 2)
	assert.Contains(t, capture.sent[1], "STRONG_SELL")
}

func TestScannerResetsAfterDowngrade(t *testing.T) {
	analyzer := scriptedAnalyzer{bySymbol: map[string]engine.Analysis{
		"BTC-USDT": {Symbol: "BTC-USDT", Timeframe: "1h", Recommendation: "STRONG_BUY"},
	}}
	capture := &captureNotifier{}
	s := NewScanner(analyzer, capture, []string{"BTC-USDT"}, "1h")
	require.NotNil(t, s)

	ctx := context.Background()
	s.scanOnce(ctx)
	require.Len(t, capture.sent, 1)

	analyzer.bySymbol["BTC-USDT"] = engine.Analysis{Symbol: "BTC-USDT", Timeframe: "1h", Recommendation: "BUY"}
	s.scanOnce(ctx)
	assert.Len(t, capture.sent, 1)

	analyzer.bySymbol["BTC-USDT"] = engine.Analysis{Symbol: "BTC-USDT", Timeframe: "1h", Recommendation: "STRONG_BUY"}
	s.scanOnce(ctx)
	assert.Len(t, capture.sent, 2)
}

func TestNewScannerGuards(t *testing.T) {
	assert.Nil(t, NewScanner(nil, nil, []string{"BTC-USDT"}, "1h"))
	assert.Nil(t, NewScanner(scriptedAnalyzer{}, nil, nil, "1h"))
	assert.Nil(t, NewScanner(scriptedAnalyzer{}, nil, []string{"BTC-USDT"}, "banana"))

	s := NewScanner(scriptedAnalyzer{}, nil, []string{"BTC-USDT"}, "")
	require.NotNil(t, s)
	assert.Equal(t, "1h", s.timeframe)
}
