// Package memory 维护进程内的 SMC 结构记忆：按 symbol+timeframe
// 键控的最新快照，外加一条容量受限的滚动历史。
package memory

import (
	"strings"
	"sync"
	"time"

	"cryptozz/internal/smc"
)

const DefaultHistoryLimit = 100

// HistoryEntry 是一次结构更新的完整留档。
type HistoryEntry struct {
	Symbol    string     `json:"symbol"`
	Timeframe string     `json:"timeframe"`
	Update    smc.Update `json:"update"`
	Timestamp time.Time  `json:"timestamp"`
}

// ContextView 是 Context() 返回的聚合视图。
type ContextView struct {
	Latest     *smc.Snapshot `json:"latest,omitempty"`
	Snapshots  int           `json:"snapshot_count"`
	History    int           `json:"history_count"`
	Symbols    []string      `json:"tracked_symbols"`
	Timeframes []string      `json:"tracked_timeframes"`
}

// Memory 是显式注入的结构存储，替代全局单例。
type Memory struct {
	mu        sync.RWMutex
	limit     int
	snapshots map[string]*smc.Snapshot
	history   []HistoryEntry
	lastKey   string
	now       func() time.Time
}

func New(limit int) *Memory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Memory{
		limit:     limit,
		snapshots: make(map[string]*smc.Snapshot),
		now:       time.Now,
	}
}

func snapKey(symbol, timeframe string) string {
	return strings.ToUpper(symbol) + "@" + strings.ToLower(timeframe)
}

// Update 用一次分析结果覆盖对应键的快照。列表输入只保留最后一个
// 元素进入快照；完整内容进入历史，历史超限时先进先出。
func (m *Memory) Update(u smc.Update, symbol, timeframe string) {
	now := m.now()
	key := snapKey(symbol, timeframe)

	m.mu.Lock()
	defer m.mu.Unlock()

	snap, ok := m.snapshots[key]
	if !ok {
		snap = &smc.Snapshot{Symbol: symbol, Timeframe: timeframe}
		m.snapshots[key] = snap
	}
	if n := len(u.BOS); n > 0 {
		last := u.BOS[n-1]
		snap.LastBOS = &last
	}
	if n := len(u.CHoCH); n > 0 {
		last := u.CHoCH[n-1]
		snap.LastCHoCH = &last
	}
	if len(u.OBs) > 0 {
		snap.BullishOBs = snap.BullishOBs[:0]
		snap.BearishOBs = snap.BearishOBs[:0]
		for _, ob := range u.OBs {
			if ob.Direction == smc.BiasBearish {
				snap.BearishOBs = append(snap.BearishOBs, ob)
			} else {
				snap.BullishOBs = append(snap.BullishOBs, ob)
			}
		}
	}
	if len(u.FVGs) > 0 {
		snap.FVGs = append(snap.FVGs[:0], u.FVGs...)
	}
	if n := len(u.Sweeps); n > 0 {
		last := u.Sweeps[n-1]
		snap.LastSweep = &last
	}
	snap.UpdatedAt = now
	m.lastKey = key

	m.history = append(m.history, HistoryEntry{
		Symbol:    symbol,
		Timeframe: timeframe,
		Update:    u,
		Timestamp: now,
	})
	if len(m.history) > m.limit {
		m.history = m.history[len(m.history)-m.limit:]
	}
}

// Context 返回最近一次写入的快照与统计。
func (m *Memory) Context() ContextView {
	m.mu.RLock()
	defer m.mu.RUnlock()

	view := ContextView{
		Snapshots: len(m.snapshots),
		History:   len(m.history),
	}
	symbols := make(map[string]struct{})
	timeframes := make(map[string]struct{})
	for _, snap := range m.snapshots {
		symbols[snap.Symbol] = struct{}{}
		timeframes[snap.Timeframe] = struct{}{}
	}
	for s := range symbols {
		view.Symbols = append(view.Symbols, s)
	}
	for tf := range timeframes {
		view.Timeframes = append(view.Timeframes, tf)
	}
	if snap, ok := m.snapshots[m.lastKey]; ok {
		cp := cloneSnapshot(snap)
		view.Latest = &cp
	}
	return view
}

// SnapshotFor 返回指定键的快照副本。
func (m *Memory) SnapshotFor(symbol, timeframe string) (smc.Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[snapKey(symbol, timeframe)]
	if !ok {
		return smc.Snapshot{}, false
	}
	return cloneSnapshot(snap), true
}

// RecentHistory 线性过滤历史：时间窗口 + 可选的 symbol/timeframe 等值过滤。
func (m *Memory) RecentHistory(hours int, symbol, timeframe string) []HistoryEntry {
	if hours <= 0 {
		hours = 24
	}
	cutoff := m.now().Add(-time.Duration(hours) * time.Hour)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []HistoryEntry
	for _, entry := range m.history {
		if entry.Timestamp.Before(cutoff) {
			continue
		}
		if symbol != "" && !strings.EqualFold(entry.Symbol, symbol) {
			continue
		}
		if timeframe != "" && !strings.EqualFold(entry.Timeframe, timeframe) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// ClearOld 清除早于 cutoff 的历史与快照字段，返回清除的历史条数。
func (m *Memory) ClearOld(hours int) int {
	if hours <= 0 {
		hours = 24
	}
	cutoff := m.now().Add(-time.Duration(hours) * time.Hour)

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.history[:0]
	removed := 0
	for _, entry := range m.history {
		if entry.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	m.history = kept

	for _, snap := range m.snapshots {
		if snap.LastBOS != nil && snap.LastBOS.Timestamp.Before(cutoff) {
			snap.LastBOS = nil
		}
		if snap.LastCHoCH != nil && snap.LastCHoCH.Timestamp.Before(cutoff) {
			snap.LastCHoCH = nil
		}
		if snap.LastSweep != nil && snap.LastSweep.Timestamp.Before(cutoff) {
			snap.LastSweep = nil
		}
		snap.BullishOBs = filterOBs(snap.BullishOBs, cutoff)
		snap.BearishOBs = filterOBs(snap.BearishOBs, cutoff)
		snap.FVGs = filterFVGs(snap.FVGs, cutoff)
	}
	return removed
}

func filterOBs(obs []smc.OrderBlock, cutoff time.Time) []smc.OrderBlock {
	kept := obs[:0]
	for _, ob := range obs {
		if ob.FormedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, ob)
	}
	return kept
}

func filterFVGs(fvgs []smc.FairValueGap, cutoff time.Time) []smc.FairValueGap {
	kept := fvgs[:0]
	for _, gap := range fvgs {
		if gap.FormedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, gap)
	}
	return kept
}

func cloneSnapshot(snap *smc.Snapshot) smc.Snapshot {
	cp := *snap
	if snap.LastBOS != nil {
		b := *snap.LastBOS
		cp.LastBOS = &b
	}
	if snap.LastCHoCH != nil {
		c := *snap.LastCHoCH
		cp.LastCHoCH = &c
	}
	if snap.LastSweep != nil {
		s := *snap.LastSweep
		cp.LastSweep = &s
	}
	cp.BullishOBs = append([]smc.OrderBlock(nil), snap.BullishOBs...)
	cp.BearishOBs = append([]smc.OrderBlock(nil), snap.BearishOBs...)
	cp.FVGs = append([]smc.FairValueGap(nil), snap.FVGs...)
	return cp
}
