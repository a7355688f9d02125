package backtest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cryptozz/internal/config"
	"cryptozz/internal/gateway/notifier"
	"cryptozz/internal/logger"
	"cryptozz/internal/market"
	symbolpkg "cryptozz/internal/pkg/symbol"
	"cryptozz/internal/scheduler"
)

const (
	defaultLimit     = 500
	minCandlesNeeded = 40

	// 单次 REST 拉取的上限，超过走时间窗分页
	fetchPageLimit = 1500
)

// rangeSource 由支持时间窗分页的数据源实现（binance）。
type rangeSource interface {
	FetchRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]market.Candle, error)
}

// Service 负责取数与回测编排：优先读本地缓存，不足时向数据源
// 拉取并回填缓存，再交给模拟器。
type Service struct {
	cfg    config.BacktestConfig
	store  *Store
	source market.Source
	notify notifier.TextNotifier

	renderPNG func(context.Context, Result) ([]byte, error)
}

func NewService(cfg config.BacktestConfig, store *Store, source market.Source, notify notifier.TextNotifier) *Service {
	if notify == nil {
		notify = notifier.Nop{}
	}
	return &Service{cfg: cfg, store: store, source: source, notify: notify, renderPNG: RenderEquityPNG}
}

// Run 同步执行一次回测。
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	req, err := s.normalize(req)
	if err != nil {
		return Result{}, err
	}
	strategy, err := NewStrategy(req.Strategy)
	if err != nil {
		return Result{}, err
	}

	candles, err := s.loadCandles(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if len(candles) < minCandlesNeeded {
		return Result{}, fmt.Errorf("data %s %s tidak cukup: %d candle (minimal %d)",
			req.Symbol, req.Timeframe, len(candles), minCandlesNeeded)
	}

	res := Simulate(req, strategy, candles)
	s.sendSummary(ctx, res)
	return res, nil
}

// Quick 用默认参数跑一轮快速回测。
func (s *Service) Quick(ctx context.Context, symbol string) (Result, error) {
	return s.Run(ctx, Request{Symbol: symbol})
}

func (s *Service) normalize(req Request) (Request, error) {
	req.Symbol = symbolpkg.Normalize(req.Symbol)
	if req.Symbol == "" {
		return req, fmt.Errorf("symbol tidak valid")
	}
	if req.Timeframe == "" {
		req.Timeframe = "1h"
	}
	req.Timeframe = strings.ToLower(req.Timeframe)
	if req.Strategy == "" {
		req.Strategy = "sma_cross"
	}
	if req.Limit <= 0 {
		req.Limit = defaultLimit
	}
	if req.InitialBalance <= 0 {
		req.InitialBalance = s.cfg.DefaultBalance
	}
	if req.FeeRate <= 0 {
		req.FeeRate = s.cfg.FeeRate
	}
	return req, nil
}

func (s *Service) loadCandles(ctx context.Context, req Request) ([]market.Candle, error) {
	var cached []market.Candle
	if s.store != nil {
		var err error
		cached, err = s.store.QueryCandles(ctx, req.Symbol, req.Timeframe, req.Limit)
		if err != nil {
			logger.Warnf("backtest cache read %s %s: %v", req.Symbol, req.Timeframe, err)
		}
		if len(cached) >= req.Limit {
			return cached, nil
		}
	}
	if s.source == nil {
		return cached, nil
	}
	fetched, err := s.fetch(ctx, req)
	if err != nil {
		if len(cached) > 0 {
			logger.Warnf("backtest fetch %s %s gagal, pakai cache %d candle: %v",
				req.Symbol, req.Timeframe, len(cached), err)
			return cached, nil
		}
		return nil, err
	}
	if s.store != nil {
		if _, err := s.store.InsertCandles(ctx, req.Symbol, req.Timeframe, fetched); err != nil {
			logger.Warnf("backtest cache write %s %s: %v", req.Symbol, req.Timeframe, err)
		}
	}
	return fetched, nil
}

// fetch：常规请求单次拉取；深度请求（limit 超过单页上限）且数据源
// 支持时间窗分页时，按周期换算出起点走 FetchRange。
func (s *Service) fetch(ctx context.Context, req Request) ([]market.Candle, error) {
	ranger, ok := s.source.(rangeSource)
	if !ok || req.Limit <= fetchPageLimit {
		return s.source.FetchHistory(ctx, req.Symbol, req.Timeframe, req.Limit)
	}
	interval, err := scheduler.ParseIntervalDuration(req.Timeframe)
	if err != nil {
		return s.source.FetchHistory(ctx, req.Symbol, req.Timeframe, req.Limit)
	}
	end := time.Now().UTC()
	start := end.Add(-time.Duration(req.Limit) * interval)
	candles, err := ranger.FetchRange(ctx, req.Symbol, req.Timeframe, start, end)
	if err != nil {
		return nil, err
	}
	if len(candles) > req.Limit {
		candles = candles[len(candles)-req.Limit:]
	}
	return candles, nil
}

func (s *Service) sendSummary(ctx context.Context, res Result) {
	msg := notifier.StructuredMessage{
		Icon:  "📊",
		Title: fmt.Sprintf("Backtest %s %s", res.Symbol, res.Timeframe),
		Sections: []notifier.MessageSection{{
			Title: "Hasil",
			Lines: []string{
				fmt.Sprintf("strategi: %s", res.Strategy),
				fmt.Sprintf("trade: %d (menang %d)", res.Metrics.Trades, res.Metrics.Wins),
				fmt.Sprintf("winrate: %.1f%%", res.Metrics.WinRate*100),
				fmt.Sprintf("return: %.2f%%", res.Metrics.ReturnPct*100),
				fmt.Sprintf("max drawdown: %.2f%%", res.Metrics.MaxDrawdownPct*100),
			},
		}},
		Timestamp: time.Now(),
	}
	// 渠道支持图片时带上资金曲线截图；无 headless Chrome 则退回纯文本
	if pn, ok := s.notify.(notifier.PhotoNotifier); ok && s.renderPNG != nil {
		png, err := s.renderPNG(ctx, res)
		if err != nil {
			logger.Debugf("render equity png gagal: %v", err)
		} else if err := pn.SendPhoto(msg.RenderHTML(), png); err != nil {
			logger.Warnf("backtest photo notify gagal: %v", err)
		} else {
			return
		}
	}
	if err := s.notify.SendText(msg.RenderHTML()); err != nil {
		logger.Warnf("backtest notify gagal: %v", err)
	}
}
