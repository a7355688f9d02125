// Package okx 基于 OKX v5 公共行情接口实现 market.Source。
// 只使用公共端点，不需要 API 密钥。
package okx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"

	"cryptozz/internal/config"
	"cryptozz/internal/logger"
	"cryptozz/internal/market"
	"cryptozz/internal/pkg/circuit"
	symbolpkg "cryptozz/internal/pkg/symbol"
)

const (
	defaultBaseURL = "https://www.okx.com"
	maxCandleLimit = 300
	breakerName    = "okx-rest"
)

// Client 对候选条目做三层防护：context 超时、指数退避重试、熔断。
type Client struct {
	baseURL string
	http    *http.Client
	breaker *circuit.Breaker
}

func New(cfg config.MarketConfig) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.OKXBaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		breaker: circuit.NewBreaker(breakerName, 5, 30*time.Second),
	}
}

// FetchHistory 拉取历史 K 线。OKX 返回新在前，这里反转为旧在前。
func (c *Client) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	instID := symbolpkg.Normalize(symbol)
	if instID == "" {
		return nil, fmt.Errorf("invalid symbol %q", symbol)
	}
	bar := normalizeBar(interval)
	if bar == "" {
		return nil, fmt.Errorf("invalid interval %q", interval)
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > maxCandleLimit {
		limit = maxCandleLimit
	}

	q := url.Values{}
	q.Set("instId", instID)
	q.Set("bar", bar)
	q.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/api/v5/market/candles", q)
	if err != nil {
		return nil, err
	}
	candles, err := parseCandles(body)
	if err != nil {
		return nil, err
	}
	logger.Debugf("okx %s %s: %d candle, terakhir %s", instID, bar,
		len(candles), candles[len(candles)-1].TimeString())
	return candles, nil
}

// FetchTicker 返回最新成交价。
func (c *Client) FetchTicker(ctx context.Context, symbol string) (float64, error) {
	instID := symbolpkg.Normalize(symbol)
	if instID == "" {
		return 0, fmt.Errorf("invalid symbol %q", symbol)
	}
	q := url.Values{}
	q.Set("instId", instID)

	body, err := c.get(ctx, "/api/v5/market/ticker", q)
	if err != nil {
		return 0, err
	}
	last := gjson.GetBytes(body, "data.0.last").Float()
	if last <= 0 {
		return 0, fmt.Errorf("okx ticker %s: empty last price", instID)
	}
	return last, nil
}

// get 执行一次受熔断与退避保护的 GET。4xx 不重试，5xx 与网络错误重试。
func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	endpoint := c.baseURL + path + "?" + q.Encode()

	var body []byte
	operation := func() error {
		return c.breaker.Do(func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return backoff.Permanent(err)
			}
			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			if err != nil {
				return err
			}
			if resp.StatusCode >= 500 {
				return fmt.Errorf("okx %s: http %d", path, resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				return backoff.Permanent(fmt.Errorf("okx %s: http %d", path, resp.StatusCode))
			}
			if code := gjson.GetBytes(raw, "code").String(); code != "0" {
				return backoff.Permanent(fmt.Errorf("okx %s: code=%s msg=%s",
					path, code, gjson.GetBytes(raw, "msg").String()))
			}
			body = raw
			return nil
		})
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		logger.Warnf("okx %s 请求失败，%s 后重试: %v", path, wait.Round(time.Millisecond), err)
	}); err != nil {
		return nil, err
	}
	return body, nil
}

// parseCandles 解析 data 数组：[ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm]。
func parseCandles(body []byte) ([]market.Candle, error) {
	rows := gjson.GetBytes(body, "data")
	if !rows.IsArray() {
		return nil, fmt.Errorf("okx candles: data is not an array")
	}
	raw := rows.Array()
	out := make([]market.Candle, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		cols := raw[i].Array()
		if len(cols) < 6 {
			continue
		}
		ts := cols[0].Int()
		out = append(out, market.Candle{
			OpenTime:  ts,
			CloseTime: ts,
			Open:      cols[1].Float(),
			High:      cols[2].Float(),
			Low:       cols[3].Float(),
			Close:     cols[4].Float(),
			Volume:    cols[5].Float(),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("okx candles: empty data")
	}
	return out, nil
}

// normalizeBar 把常见周期写法映射为 OKX 的 bar 参数。
func normalizeBar(interval string) string {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "1m":
		return "1m"
	case "5m":
		return "5m"
	case "15m":
		return "15m"
	case "30m":
		return "30m"
	case "1h":
		return "1H"
	case "2h":
		return "2H"
	case "4h":
		return "4H"
	case "1d":
		return "1D"
	case "1w":
		return "1W"
	default:
		return ""
	}
}
