package app

import (
	"context"
	"fmt"
	"strings"

	"cryptozz/internal/backtest"
	"cryptozz/internal/config"
	"cryptozz/internal/gateway/binance"
	"cryptozz/internal/gateway/notifier"
	"cryptozz/internal/gateway/okx"
	"cryptozz/internal/logger"
	"cryptozz/internal/market"
	"cryptozz/internal/scheduler"
	"cryptozz/internal/smc/bias"
	"cryptozz/internal/smc/engine"
	"cryptozz/internal/smc/execution"
	"cryptozz/internal/smc/memory"
	"cryptozz/internal/smc/narrative"
	"cryptozz/internal/smc/plan"
	"cryptozz/internal/store"
	httpapi "cryptozz/internal/transport/http"
)

// AppBuilder 装配全部依赖。各 Fn 字段可被测试替换。
type AppBuilder struct {
	cfg     *config.Config
	cfgPath string

	marketSourceFn   func(*config.Config) market.Source
	backtestSourceFn func(*config.Config, market.Source) market.Source
	notifierFn       func(config.NotifyConfig) notifier.TextNotifier
	signalStoreFn    func(config.StoreConfig) (*store.Store, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *config.Config, cfgPath string, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:              cfg,
		cfgPath:          cfgPath,
		marketSourceFn:   buildMarketSource,
		backtestSourceFn: buildBacktestSource,
		notifierFn:       buildNotifier,
		signalStoreFn:    buildSignalStore,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := b.cfg
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	source := b.marketSourceFn(cfg)
	logger.Infof("✓ sumber data pasar: OKX %s", cfg.Market.OKXBaseURL)

	mem := memory.New(cfg.SMC.HistoryLimit)
	eng := engine.New(source, mem,
		bias.NewBuilder(cfg.SMC.Bias),
		execution.NewEngine(cfg.SMC.Execution),
		plan.NewPlanner(cfg.SMC.Plan),
		narrative.NewFormatter(narrative.NewComposer()))

	var watcher *config.Watcher
	if path := strings.TrimSpace(b.cfgPath); path != "" {
		w, err := config.NewWatcher(path)
		if err != nil {
			logger.Warnf("config watcher tidak aktif: %v", err)
		} else {
			watcher = w
			w.Subscribe(func(snap config.TunableSnapshot) {
				eng.ApplyTunables(snap.SMC)
				logger.Infof("✓ bobot SMC dimuat ulang (versi %d)", snap.Version)
			})
		}
	}

	signals, err := b.signalStoreFn(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("buka signal store gagal: %w", err)
	}

	btStore, err := backtest.NewStore(cfg.Backtest.DataRoot)
	if err != nil {
		return nil, fmt.Errorf("buka backtest store gagal: %w", err)
	}
	tgNotifier := b.notifierFn(cfg.Notify)
	btService := backtest.NewService(cfg.Backtest, btStore, b.backtestSourceFn(cfg, source), tgNotifier)

	server, err := httpapi.NewServer(cfg, eng, btService, signals)
	if err != nil {
		return nil, err
	}

	// 扫描协程让结构记忆常驻更新，HTTP 端的 /api/smc 读到的
	// 永远是近一根 K 线的快照。
	scanner := scheduler.NewScanner(eng, tgNotifier, cfg.Market.DefaultSymbols, cfg.Market.DefaultTF)

	return &App{
		cfg:     cfg,
		server:  server,
		engine:  eng,
		signals: signals,
		btStore: btStore,
		watcher: watcher,
		scanner: scanner,
	}, nil
}

func buildMarketSource(cfg *config.Config) market.Source {
	return market.NewCachedSource(okx.New(cfg.Market), cfg.Market.KlineMaxCached)
}

// buildBacktestSource 回测优先走 Binance 合约历史（分页深度更足），
// 未启用时退回主行情源。
func buildBacktestSource(cfg *config.Config, fallback market.Source) market.Source {
	if cfg.Backtest.BinanceEnabled {
		return binance.New("")
	}
	return fallback
}

func buildNotifier(cfg config.NotifyConfig) notifier.TextNotifier {
	if !cfg.Telegram.Enabled {
		return notifier.Nop{}
	}
	return notifier.NewTelegram(cfg.Telegram)
}

func buildSignalStore(cfg config.StoreConfig) (*store.Store, error) {
	if strings.TrimSpace(cfg.SignalDB) == "" {
		return nil, nil
	}
	return store.Open(cfg.SignalDB)
}

func WithMarketSource(fn func(*config.Config) market.Source) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.marketSourceFn = fn
		}
	}
}

func WithBacktestSource(fn func(*config.Config, market.Source) market.Source) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.backtestSourceFn = fn
		}
	}
}

func WithNotifier(fn func(config.NotifyConfig) notifier.TextNotifier) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.notifierFn = fn
		}
	}
}

func WithSignalStore(fn func(config.StoreConfig) (*store.Store, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.signalStoreFn = fn
		}
	}
}
