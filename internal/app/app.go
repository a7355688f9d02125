// Package app 负责应用级编排：装配依赖、启动 HTTP 服务、
// 跑周期性的内存与日志清理。
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"cryptozz/internal/backtest"
	"cryptozz/internal/config"
	"cryptozz/internal/logger"
	"cryptozz/internal/scheduler"
	"cryptozz/internal/smc/engine"
	"cryptozz/internal/store"
	httpapi "cryptozz/internal/transport/http"
)

const janitorInterval = time.Hour

// App 持有已装配完成的全部组件。
type App struct {
	cfg     *config.Config
	server  *httpapi.Server
	engine  *engine.Engine
	signals *store.Store
	btStore *backtest.Store
	watcher *config.Watcher
	scanner *scheduler.Scanner
}

// NewApp 根据配置构建应用对象（不启动）。cfgPath 非空时启用
// SMC 权重热更新。
func NewApp(cfg *config.Config, cfgPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg, cfgPath)
}

// Run 启动 HTTP 服务与清理协程，直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	logger.Infof("✓ cryptozz siap, listen=%s", a.server.Addr())

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		a.janitor(ctx)
		return nil
	})
	if a.scanner != nil {
		group.Go(func() error {
			if err := a.scanner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("scanner error: %w", err)
			}
			return nil
		})
	}

	err := group.Wait()
	a.close()
	return err
}

// janitor 周期性清掉过期的结构历史与落库日志。
func (a *App) janitor(ctx context.Context) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stale := a.cfg.SMC.StaleHours
			removed := a.engine.Memory().ClearOld(stale)
			if removed > 0 {
				logger.Infof("bersih-bersih memori struktur: %d entri kedaluwarsa", removed)
			}
			cutoff := time.Now().Add(-30 * 24 * time.Hour)
			if n, err := a.signals.PurgeBefore(ctx, cutoff); err != nil {
				logger.Warnf("purge signal store gagal: %v", err)
			} else if n > 0 {
				logger.Infof("purge signal store: %d baris dihapus", n)
			}
		}
	}
}

func (a *App) close() {
	if a.signals != nil {
		if err := a.signals.Close(); err != nil {
			logger.Warnf("tutup signal store: %v", err)
		}
	}
	if a.btStore != nil {
		if err := a.btStore.Close(); err != nil {
			logger.Warnf("tutup backtest store: %v", err)
		}
	}
}

// Engine 暴露分析引擎（测试与回放脚手架用）。
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}

// Server 暴露 HTTP 服务。
func (a *App) Server() *httpapi.Server {
	if a == nil {
		return nil
	}
	return a.server
}
