// Package binance 基于 go-binance SDK 提供回测用的历史 K 线。
// 实时信号走 OKX，这里只做批量历史拉取。
package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"cryptozz/internal/market"
	symbolpkg "cryptozz/internal/pkg/symbol"
)

const maxHistoryLimit = 1500

type Source struct {
	client *futures.Client
}

func New(baseURL string) *Source {
	client := futures.NewClient("", "")
	if base := strings.TrimSpace(baseURL); base != "" {
		client.BaseURL = base
	}
	client.HTTPClient.Timeout = 15 * time.Second
	return &Source{client: client}
}

func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	sym := symbolpkg.Parse(symbol)
	if !sym.Valid() {
		return nil, fmt.Errorf("invalid symbol %q", symbol)
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	kls, err := s.client.NewKlinesService().
		Symbol(sym.Binance()).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	return out, nil
}

// FetchRange 按时间窗分页拉取，供回测准备长区间数据。
func (s *Source) FetchRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]market.Candle, error) {
	sym := symbolpkg.Parse(symbol)
	if !sym.Valid() {
		return nil, fmt.Errorf("invalid symbol %q", symbol)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("start must precede end")
	}

	var out []market.Candle
	cursor := start.UnixMilli()
	endMs := end.UnixMilli()
	for cursor < endMs {
		kls, err := s.client.NewKlinesService().
			Symbol(sym.Binance()).Interval(strings.ToLower(interval)).
			StartTime(cursor).EndTime(endMs).Limit(maxHistoryLimit).Do(ctx)
		if err != nil {
			return nil, err
		}
		if len(kls) == 0 {
			break
		}
		for _, kl := range kls {
			if kl == nil {
				continue
			}
			out = append(out, market.Candle{
				OpenTime:  kl.OpenTime,
				CloseTime: kl.CloseTime,
				Open:      parseFloat(kl.Open),
				High:      parseFloat(kl.High),
				Low:       parseFloat(kl.Low),
				Close:     parseFloat(kl.Close),
				Volume:    parseFloat(kl.Volume),
				Trades:    kl.TradeNum,
			})
		}
		next := kls[len(kls)-1].CloseTime + 1
		if next <= cursor {
			break
		}
		cursor = next
	}
	return out, nil
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}
