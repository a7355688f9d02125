package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"cryptozz/internal/logger"
)

// TunableSnapshot 对外暴露的只读 SMC 参数快照。
type TunableSnapshot struct {
	Version  int64
	LoadedAt time.Time
	SMC      SMCConfig
}

// ChangeListener 在配置变更时被调用。
type ChangeListener func(TunableSnapshot)

// Watcher 监听配置文件变更，热更新 SMC 可调参数（权重、阈值）。
// 仅 smc 段参与热更新，服务器地址等需重启生效。
type Watcher struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  TunableSnapshot
	listeners []ChangeListener
}

// NewWatcher 读取配置文件并开始监听 FS 事件。
func NewWatcher(path string) (*Watcher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config watcher requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}
	w := &Watcher{path: path, v: v}
	if err := w.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := w.reload(); err != nil {
			logger.Errorf("config reload failed (%s): %v", evt.Name, err)
			return
		}
		w.notify()
	})
	v.WatchConfig()
	return w, nil
}

func (w *Watcher) reload() error {
	if err := w.v.ReadInConfig(); err != nil {
		return err
	}
	cfg, err := decode(w.v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.snapshot = TunableSnapshot{
		Version:  w.snapshot.Version + 1,
		LoadedAt: time.Now(),
		SMC:      cfg.SMC,
	}
	w.mu.Unlock()
	return nil
}

// Snapshot 返回当前参数快照。
func (w *Watcher) Snapshot() TunableSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// Subscribe 注册监听器，并立即收到一次完整快照。
func (w *Watcher) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	w.listeners = append(w.listeners, fn)
	snap := w.snapshot
	w.mu.Unlock()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("config listener panic: %v", r)
			}
		}()
		fn(snap)
	}()
}

func (w *Watcher) notify() {
	w.mu.RLock()
	snap := w.snapshot
	listeners := append([]ChangeListener(nil), w.listeners...)
	w.mu.RUnlock()
	for _, fn := range listeners {
		func(cb ChangeListener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("config listener panic: %v", r)
				}
			}()
			cb(snap)
		}(fn)
	}
}
