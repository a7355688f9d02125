// Package scheduler 提供按 K 线周期对齐的定时执行，以及基于它的
// 周期性信号扫描器。
package scheduler

import (
	"context"
	"time"
)

// Aligned 在 UTC 周期边界（加 Offset）触发任务。Offset 通常留几秒
// 余量，确保交易所那边当根 K 线已经收盘。
type Aligned struct {
	Interval       time.Duration
	Offset         time.Duration
	RunImmediately bool

	nowFn func() time.Time
}

// Run 阻塞执行，直到 ctx 取消。task 的 panic 不做恢复，由上层兜底。
func (s Aligned) Run(ctx context.Context, task func(context.Context)) error {
	if s.Interval <= 0 {
		s.Interval = time.Hour
	}
	now := s.now()
	if s.RunImmediately {
		task(ctx)
	}
	next := s.nextAfter(now)
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			task(ctx)
			next = s.nextAfter(s.now())
			timer.Reset(time.Until(next))
		}
	}
}

// nextAfter 返回 now 之后第一个「周期边界 + Offset」时刻。
func (s Aligned) nextAfter(now time.Time) time.Time {
	aligned := now.UTC().Truncate(s.Interval)
	for {
		candidate := aligned.Add(s.Offset)
		if candidate.After(now) {
			return candidate
		}
		aligned = aligned.Add(s.Interval)
	}
}

func (s Aligned) now() time.Time {
	if s.nowFn != nil {
		return s.nowFn()
	}
	return time.Now()
}
