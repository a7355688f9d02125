package narrative

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

type Encoding string

const (
	EncodingTelegram Encoding = "telegram"
	EncodingConsole  Encoding = "console"
	EncodingMarkdown Encoding = "markdown"
	EncodingJSON     Encoding = "json"
)

// Formatter 把同一份信号渲染为 Telegram HTML、终端文本、Markdown 或 JSON。
type Formatter struct {
	composer *Composer
}

func NewFormatter(composer *Composer) *Formatter {
	if composer == nil {
		composer = NewComposer()
	}
	return &Formatter{composer: composer}
}

// FormatCompleteSignal 渲染完整信号。数值一律经由 Price()，
// 因此 JSON 输出回灌再渲染时，入场/止损/止盈字面量保持一致。
func (f *Formatter) FormatCompleteSignal(in Input, v Verbosity, enc Encoding) (string, error) {
	switch enc {
	case EncodingTelegram:
		return f.telegram(in, v), nil
	case EncodingConsole:
		return f.console(in, v), nil
	case EncodingMarkdown:
		return f.markdown(in, v), nil
	case EncodingJSON:
		payload, err := json.Marshal(in)
		if err != nil {
			return Apology(in.Symbol, in.Plan.Direction), fmt.Errorf("marshal signal failed: %w", err)
		}
		return string(payload), nil
	default:
		return "", fmt.Errorf("unknown encoding %q", enc)
	}
}

func (f *Formatter) telegram(in Input, v Verbosity) string {
	var b strings.Builder
	icon := "🟢"
	if !in.Plan.Direction.Bullish() {
		icon = "🔴"
	}
	fmt.Fprintf(&b, "%s <b>%s %s</b> (%s)\n", icon, html.EscapeString(in.Symbol), in.Plan.Direction, in.Timeframe)
	fmt.Fprintf(&b, "Rekomendasi: <b>%s</b>\n\n", in.Recommendation)
	fmt.Fprintf(&b, "🎯 Entry: <code>%s</code>\n", Price(in.Plan.Entry))
	fmt.Fprintf(&b, "🛑 Stop Loss: <code>%s</code>\n", Price(in.Plan.StopLoss))
	fmt.Fprintf(&b, "💰 TP1: <code>%s</code> | TP2: <code>%s</code> | TP3: <code>%s</code>\n",
		Price(in.Plan.TakeProfits[0]), Price(in.Plan.TakeProfits[1]), Price(in.Plan.TakeProfits[2]))
	fmt.Fprintf(&b, "⚖️ RR: %.2f | Posisi: %.2f%%\n\n", in.Plan.RiskReward, in.Plan.PositionSizePct)
	b.WriteString(html.EscapeString(f.composer.Compose(in, v)))
	if !in.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "\n\n<i>%s UTC</i>", in.GeneratedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

func (f *Formatter) console(in Input, v Verbosity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s %s (%s) ===\n", in.Symbol, in.Plan.Direction, in.Timeframe)
	fmt.Fprintf(&b, "Rekomendasi : %s\n", in.Recommendation)
	fmt.Fprintf(&b, "Entry       : %s\n", Price(in.Plan.Entry))
	fmt.Fprintf(&b, "Stop Loss   : %s\n", Price(in.Plan.StopLoss))
	fmt.Fprintf(&b, "Take Profit : %s / %s / %s\n",
		Price(in.Plan.TakeProfits[0]), Price(in.Plan.TakeProfits[1]), Price(in.Plan.TakeProfits[2]))
	fmt.Fprintf(&b, "RR          : %.2f | Posisi: %.2f%%\n", in.Plan.RiskReward, in.Plan.PositionSizePct)
	b.WriteString(f.composer.Compose(in, v))
	b.WriteString("\n")
	return b.String()
}

func (f *Formatter) markdown(in Input, v Verbosity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s %s (%s)\n\n", in.Symbol, in.Plan.Direction, in.Timeframe)
	fmt.Fprintf(&b, "**Rekomendasi:** %s\n\n", in.Recommendation)
	b.WriteString("| Level | Harga |\n|---|---|\n")
	fmt.Fprintf(&b, "| Entry | %s |\n", Price(in.Plan.Entry))
	fmt.Fprintf(&b, "| Stop Loss | %s |\n", Price(in.Plan.StopLoss))
	fmt.Fprintf(&b, "| TP1 | %s |\n", Price(in.Plan.TakeProfits[0]))
	fmt.Fprintf(&b, "| TP2 | %s |\n", Price(in.Plan.TakeProfits[1]))
	fmt.Fprintf(&b, "| TP3 | %s |\n", Price(in.Plan.TakeProfits[2]))
	fmt.Fprintf(&b, "\n%s\n", f.composer.Compose(in, v))
	return b.String()
}
