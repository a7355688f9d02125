package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherSnapshotAndReload(t *testing.T) {
	path := writeConfig(t, `
smc:
  execution:
    valid_threshold: 0.8
    pending_threshold: 0.5
`)
	w, err := NewWatcher(path)
	require.NoError(t, err)

	snap := w.Snapshot()
	assert.Equal(t, int64(1), snap.Version)
	assert.InDelta(t, 0.8, snap.SMC.Execution.ValidThreshold, 1e-9)

	// 直接触发 reload，不依赖 fsnotify 事件时序
	require.NoError(t, os.WriteFile(path, []byte(`
smc:
  execution:
    valid_threshold: 0.9
    pending_threshold: 0.5
`), 0o644))
	require.NoError(t, w.reload())

	snap = w.Snapshot()
	assert.Equal(t, int64(2), snap.Version)
	assert.InDelta(t, 0.9, snap.SMC.Execution.ValidThreshold, 1e-9)
}

func TestWatcherRejectsInvalidReload(t *testing.T) {
	path := writeConfig(t, "app: {log_level: info}\n")
	w, err := NewWatcher(path)
	require.NoError(t, err)
	before := w.Snapshot()

	require.NoError(t, os.WriteFile(path, []byte(`
smc:
  bias: {choch: 0.9, bos: 0.9, trend: 0.9}
`), 0o644))
	assert.Error(t, w.reload())
	// 失败的 reload 不动快照
	assert.Equal(t, before.Version, w.Snapshot().Version)
}

func TestWatcherSubscribeDeliversInitialSnapshot(t *testing.T) {
	path := writeConfig(t, "app: {log_level: info}\n")
	w, err := NewWatcher(path)
	require.NoError(t, err)

	got := make(chan TunableSnapshot, 1)
	w.Subscribe(func(s TunableSnapshot) { got <- s })

	select {
	case snap := <-got:
		assert.Equal(t, int64(1), snap.Version)
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot awal tidak pernah sampai")
	}
}

func TestNewWatcherGuards(t *testing.T) {
	_, err := NewWatcher("")
	assert.Error(t, err)
	_, err = NewWatcher("/nonexistent/config.yaml")
	assert.Error(t, err)
}
