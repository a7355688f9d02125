package httpapi

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptozz/internal/backtest"
	"cryptozz/internal/config"
	"cryptozz/internal/market"
	"cryptozz/internal/smc/bias"
	"cryptozz/internal/smc/engine"
	"cryptozz/internal/smc/execution"
	"cryptozz/internal/smc/memory"
	"cryptozz/internal/smc/narrative"
	"cryptozz/internal/smc/plan"
	"cryptozz/internal/store"
)

type fakeSource struct{ candles []market.Candle }

func (f fakeSource) FetchHistory(context.Context, string, string, int) ([]market.Candle, error) {
	return f.candles, nil
}

func waveCandles(n int) []market.Candle {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, 0, n)
	for i := 0; i < n; i++ {
		price := 100 + 15*math.Sin(float64(i)/12)
		open := base.Add(time.Duration(i) * time.Hour)
		out = append(out, market.Candle{
			OpenTime:  open.UnixMilli(),
			CloseTime: open.Add(time.Hour).UnixMilli(),
			Open:      price, High: price + 0.6, Low: price - 0.6, Close: price, Volume: 100,
		})
	}
	return out
}

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *store.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.RateLimitRPS = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Server.APIKeys = nil
	if mutate != nil {
		mutate(cfg)
	}

	src := fakeSource{candles: waveCandles(200)}
	eng := engine.New(src, memory.New(cfg.SMC.HistoryLimit),
		bias.NewBuilder(cfg.SMC.Bias), execution.NewEngine(cfg.SMC.Execution),
		plan.NewPlanner(cfg.SMC.Plan), narrative.NewFormatter(nil))

	btStore, err := backtest.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = btStore.Close() })
	bt := backtest.NewService(cfg.Backtest, btStore, src, nil)

	signals, err := store.Open(filepath.Join(t.TempDir(), "signals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = signals.Close() })

	srv, err := NewServer(cfg, eng, bt, signals)
	require.NoError(t, err)
	return srv, signals
}

func doRequest(s *Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthAndDocsAreOpen(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.Server.APIKeys = []string{"secret"}
	})

	assert.Equal(t, 200, doRequest(s, "GET", "/health", "", nil).Code)

	w := doRequest(s, "GET", "/openapi.json", "", nil)
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "3.1.0")
	assert.Contains(t, w.Body.String(), "/api/gpts/sinyal/tajam")

	w = doRequest(s, "GET", "/openapi.yaml", "", nil)
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.1.0")

	w = doRequest(s, "GET", "/api/gpt-schemas/backtest/openapi.json", "", nil)
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "/api/backtest")

	assert.Equal(t, 404, doRequest(s, "GET", "/api/gpt-schemas/nope/openapi.json", "", nil).Code)
}

func TestAPIKeyGuard(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.Server.APIKeys = []string{"secret"}
	})

	w := doRequest(s, "GET", "/api/gpts/status", "", nil)
	assert.Equal(t, 401, w.Code)
	assert.Equal(t, "MISSING_API_KEY", decodeBody(t, w)["code"])

	w = doRequest(s, "GET", "/api/gpts/status", "", map[string]string{"X-API-Key": "salah"})
	assert.Equal(t, 403, w.Code)

	w = doRequest(s, "GET", "/api/gpts/status", "", map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, 200, w.Code)
}

func TestRateLimitReturns429(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.Server.RateLimitRPS = 0.001
		c.Server.RateLimitBurst = 1
	})

	assert.Equal(t, 200, doRequest(s, "GET", "/api/gpts/status", "", nil).Code)
	w := doRequest(s, "GET", "/api/gpts/status", "", nil)
	assert.Equal(t, 429, w.Code)
	assert.Equal(t, "error", decodeBody(t, w)["status"])
}

func TestSignalEndpoint(t *testing.T) {
	s, signals := newTestServer(t, nil)

	w := doRequest(s, "GET", "/api/gpts/sinyal/tajam", "", nil)
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "INVALID_SYMBOL", decodeBody(t, w)["code"])

	w = doRequest(s, "GET", "/api/gpts/sinyal/tajam?symbol=BTC-USDT&timeframe=1h", "", nil)
	require.Equal(t, 200, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "success", body["status"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "BTC-USDT", data["symbol"])
	assert.NotEmpty(t, data["recommendation"])
	assert.NotEmpty(t, data["trade_plan"])

	// 信号已落库
	recs, err := signals.RecentSignals(context.Background(), "BTC-USDT", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "1h", recs[0].Timeframe)
}

func TestSignalNarrativeFormat(t *testing.T) {
	s, _ := newTestServer(t, nil)

	w := doRequest(s, "POST", "/api/gpts/sinyal/tajam",
		`{"symbol":"ETH-USDT","format":"narrative","verbosity":"ringkas"}`, nil)
	require.Equal(t, 200, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "narrative", body["format"])
	assert.NotEmpty(t, body["narrative"])
}

func TestZonesDemoFallbackThenRealData(t *testing.T) {
	s, _ := newTestServer(t, nil)

	w := doRequest(s, "GET", "/api/smc/zones?symbol=BTC-USDT&timeframe=1h", "", nil)
	require.Equal(t, 200, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, true, data["demo_data"])

	// 分析一次后内存有了快照
	require.Equal(t, 200, doRequest(s, "GET", "/api/gpts/sinyal/tajam?symbol=BTC-USDT&timeframe=1h", "", nil).Code)

	w = doRequest(s, "GET", "/api/smc/zones?symbol=BTC-USDT&timeframe=1h", "", nil)
	require.Equal(t, 200, w.Code)
	data = decodeBody(t, w)["data"].(map[string]any)
	assert.NotContains(t, data, "demo_data")
	assert.Equal(t, "BTC-USDT", data["symbol"])
}

func TestSummaryAndHistory(t *testing.T) {
	s, _ := newTestServer(t, nil)
	require.Equal(t, 200, doRequest(s, "GET", "/api/gpts/sinyal/tajam?symbol=BTC-USDT", "", nil).Code)

	w := doRequest(s, "GET", "/api/smc/summary", "", nil)
	require.Equal(t, 200, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.GreaterOrEqual(t, data["snapshot_count"].(float64), 1.0)

	w = doRequest(s, "GET", "/api/smc/history?hours=24", "", nil)
	require.Equal(t, 200, w.Code)
	data = decodeBody(t, w)["data"].(map[string]any)
	assert.GreaterOrEqual(t, data["count"].(float64), 1.0)
}

func TestRecognizeValidation(t *testing.T) {
	s, _ := newTestServer(t, nil)

	w := doRequest(s, "POST", "/api/smc/patterns/recognize", `{"lookback_hours":24}`, nil)
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "SCHEMA_VIOLATION", decodeBody(t, w)["code"])

	w = doRequest(s, "POST", "/api/smc/patterns/recognize",
		`{"symbol":"BTC-USDT","timeframe":"1h","lookback_hours":24}`, nil)
	require.Equal(t, 200, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, true, body["demo_data"])
}

func TestBacktestEndpoints(t *testing.T) {
	s, _ := newTestServer(t, nil)

	w := doRequest(s, "GET", "/api/backtest?symbol=BTC-USDT&strategy=nope", "", nil)
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "INVALID_STRATEGY", decodeBody(t, w)["code"])

	w = doRequest(s, "GET", "/api/backtest?symbol=BTC-USDT&strategy=sma_cross&limit=200", "", nil)
	require.Equal(t, 200, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "sma_cross", data["strategy"])

	w = doRequest(s, "POST", "/api/backtest/quick", `{"symbol":"ETH-USDT"}`, nil)
	require.Equal(t, 200, w.Code)

	w = doRequest(s, "POST", "/api/backtest", `{"strategy":"sma_cross"}`, nil)
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "SCHEMA_VIOLATION", decodeBody(t, w)["code"])

	w = doRequest(s, "GET", "/api/backtest?symbol=BTC-USDT&strategy=sma_cross&limit=200&format=chart", "", nil)
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "echarts")
}

func TestSignalHistoryEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)
	require.Equal(t, 200, doRequest(s, "GET", "/api/gpts/sinyal/tajam?symbol=BTC-USDT", "", nil).Code)

	w := doRequest(s, "GET", "/api/signals/history?symbol=BTC-USDT", "", nil)
	require.Equal(t, 200, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, 1.0, data["count"])
}
