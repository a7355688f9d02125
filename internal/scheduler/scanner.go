package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cryptozz/internal/gateway/notifier"
	"cryptozz/internal/logger"
	"cryptozz/internal/smc/engine"
)

// closeGrace 对齐后再等几秒，给交易所留出收盘数据落地的时间。
const closeGrace = 10 * time.Second

// Analyzer 是 Scanner 对分析引擎的最小依赖。
type Analyzer interface {
	Analyze(ctx context.Context, symbol, timeframe string, opts engine.Options) engine.Analysis
}

// Scanner 在每根 K 线收盘后扫描一遍关注的交易对：保持结构记忆
// 常驻更新，并把 VALID 信号推送出去。同一建议不重复推送，直到
// 建议档位变化。
type Scanner struct {
	engine    Analyzer
	notify    notifier.TextNotifier
	symbols   []string
	timeframe string
	interval  time.Duration

	lastSent map[string]string
}

// NewScanner 构造扫描器。timeframe 决定扫描节奏；symbols 为空或
// 周期解析失败时返回 nil，调用方据此跳过扫描协程。
func NewScanner(eng Analyzer, notify notifier.TextNotifier, symbols []string, timeframe string) *Scanner {
	if eng == nil || len(symbols) == 0 {
		return nil
	}
	tf := strings.ToLower(strings.TrimSpace(timeframe))
	if tf == "" {
		tf = "1h"
	}
	interval, err := ParseIntervalDuration(tf)
	if err != nil {
		logger.Warnf("scanner nonaktif: %v", err)
		return nil
	}
	if notify == nil {
		notify = notifier.Nop{}
	}
	return &Scanner{
		engine:    eng,
		notify:    notify,
		symbols:   symbols,
		timeframe: tf,
		interval:  interval,
		lastSent:  make(map[string]string),
	}
}

// Run 阻塞扫描，直到 ctx 取消。
func (s *Scanner) Run(ctx context.Context) error {
	if s == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	logger.Infof("✓ scanner aktif: %d simbol, timeframe %s", len(s.symbols), s.timeframe)
	sched := Aligned{Interval: s.interval, Offset: closeGrace, RunImmediately: true}
	return sched.Run(ctx, s.scanOnce)
}

func (s *Scanner) scanOnce(ctx context.Context) {
	for _, symbol := range s.symbols {
		if ctx.Err() != nil {
			return
		}
		a := s.engine.Analyze(ctx, symbol, s.timeframe, engine.Options{})
		if a.Err != "" {
			logger.Warnf("scan %s gagal: %s", symbol, a.Err)
			continue
		}
		logger.Debugf("scan %s: %s (skor %.2f)", symbol, a.Recommendation, a.Execution.Score)
		s.maybeNotify(a)
	}
}

// maybeNotify 只推送 STRONG 档建议，且同档位只推一次。
func (s *Scanner) maybeNotify(a engine.Analysis) {
	if !strings.HasPrefix(a.Recommendation, "STRONG_") {
		delete(s.lastSent, a.Symbol)
		return
	}
	if s.lastSent[a.Symbol] == a.Recommendation {
		return
	}
	if err := s.notify.SendText(scanMessage(a).RenderHTML()); err != nil {
		logger.Warnf("推送信号失败 %s: %v", a.Symbol, err)
		return
	}
	s.lastSent[a.Symbol] = a.Recommendation
}

func scanMessage(a engine.Analysis) notifier.StructuredMessage {
	icon := "🟢"
	if strings.HasSuffix(a.Recommendation, "SELL") {
		icon = "🔴"
	}
	return notifier.StructuredMessage{
		Icon:  icon,
		Title: fmt.Sprintf("%s %s · %s", a.Symbol, a.Timeframe, a.Recommendation),
		Sections: []notifier.MessageSection{
			{
				Title: "Sinyal",
				Lines: []string{
					fmt.Sprintf("Bias: %s (confidence %.0f%%)", a.Bias.Bias, a.Bias.Confidence*100),
					fmt.Sprintf("Skor eksekusi: %.2f (%s)", a.Execution.Score, a.Execution.Result),
					fmt.Sprintf("Harga: %.4f", a.CurrentPrice),
				},
			},
			{
				Title: "Rencana",
				Lines: []string{
					fmt.Sprintf("Entry: %.4f (%s)", a.Plan.Entry, a.Plan.EntryBasis),
					fmt.Sprintf("Stop: %.4f", a.Plan.StopLoss),
					fmt.Sprintf("TP: %.4f / %.4f / %.4f", a.Plan.TakeProfits[0], a.Plan.TakeProfits[1], a.Plan.TakeProfits[2]),
					fmt.Sprintf("RR: %.2f", a.Plan.RiskReward),
				},
			},
		},
		Footer:    "Bukan saran finansial. DYOR.",
		Timestamp: a.GeneratedAt,
	}
}
