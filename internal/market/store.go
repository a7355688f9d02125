package market

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"cryptozz/internal/logger"
)

// Source 提供历史 K 线（OKX 实现在 gateway/okx）。
type Source interface {
	FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}

type KlineStore interface {
	Put(ctx context.Context, symbol, interval string, ks []Candle, max int) error
	Get(ctx context.Context, symbol, interval string) ([]Candle, error)
}

// MemoryKlineStore 是分片加锁的进程内 K 线缓存。
type MemoryKlineStore struct {
	shards []klineShard
}

type klineShard struct {
	mu   sync.RWMutex
	data map[string][]Candle
}

const defaultShardCount = 32

func NewMemoryKlineStore() *MemoryKlineStore {
	out := &MemoryKlineStore{
		shards: make([]klineShard, defaultShardCount),
	}
	for i := range out.shards {
		out.shards[i] = klineShard{data: make(map[string][]Candle)}
	}
	return out
}

func (s *MemoryKlineStore) shardFor(key string) *klineShard {
	idx := hashKey(key) % uint32(len(s.shards))
	return &s.shards[idx]
}

func hashKey(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32()
}

func storeKey(symbol, interval string) string { return symbol + "@" + interval }

func (s *MemoryKlineStore) Put(ctx context.Context, symbol, interval string, ks []Candle, max int) error {
	if symbol == "" || interval == "" {
		return errors.New("symbol/interval 不能为空")
	}
	if len(ks) == 0 {
		return nil
	}
	if max <= 0 {
		max = 100
	}
	k := storeKey(symbol, interval)
	sh := s.shardFor(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	cur := sh.data[k]
	for _, candle := range ks {
		n := len(cur)
		if n > 0 && cur[n-1].OpenTime == candle.OpenTime {
			// 同一根未收盘 K 线：覆盖
			cur[n-1] = candle
			continue
		}
		cur = append(cur, candle)
	}
	if len(cur) > max {
		cur = cur[len(cur)-max:]
	}
	sh.data[k] = cur
	return nil
}

func (s *MemoryKlineStore) Get(ctx context.Context, symbol, interval string) ([]Candle, error) {
	if symbol == "" || interval == "" {
		return nil, errors.New("symbol/interval 不能为空")
	}
	k := storeKey(symbol, interval)
	sh := s.shardFor(k)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	cur := sh.data[k]
	out := make([]Candle, len(cur))
	copy(out, cur)
	return out, nil
}

// CachedSource 在真实数据源前面挂一层进程内缓存：拉取成功回填，
// 拉取失败且缓存足够时退化为旧数据，避免上游抖动直接打穿分析链路。
type CachedSource struct {
	upstream Source
	cache    KlineStore
	maxKeep  int
}

func NewCachedSource(upstream Source, maxKeep int) *CachedSource {
	if maxKeep <= 0 {
		maxKeep = 300
	}
	return &CachedSource{
		upstream: upstream,
		cache:    NewMemoryKlineStore(),
		maxKeep:  maxKeep,
	}
}

func (c *CachedSource) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	fetched, err := c.upstream.FetchHistory(ctx, symbol, interval, limit)
	if err == nil {
		if putErr := c.cache.Put(ctx, symbol, interval, fetched, c.maxKeep); putErr != nil {
			logger.Warnf("kline cache put %s %s: %v", symbol, interval, putErr)
		}
		return fetched, nil
	}
	stale, getErr := c.cache.Get(ctx, symbol, interval)
	if getErr != nil || len(stale) == 0 {
		return nil, err
	}
	if limit > 0 && len(stale) > limit {
		stale = stale[len(stale)-limit:]
	}
	logger.Warnf("fetch %s %s gagal, pakai %d candle dari cache: %v", symbol, interval, len(stale), err)
	return stale, nil
}
