// Package narrative 将数值化的信号结果渲染为面向用户的印尼语文案，
// 支持四档详略与四种输出编码。纯展示层，不做任何判定。
package narrative

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cryptozz/internal/smc"
)

type Verbosity string

const (
	VerbosityConcise     Verbosity = "ringkas"
	VerbosityDetailed    Verbosity = "detail"
	VerbosityTechnical   Verbosity = "teknikal"
	VerbosityEducational Verbosity = "edukatif"
)

// ParseVerbosity 接受印尼语与英语别名。
func ParseVerbosity(s string) Verbosity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ringkas", "concise", "short":
		return VerbosityConcise
	case "teknikal", "technical":
		return VerbosityTechnical
	case "edukatif", "educational":
		return VerbosityEducational
	default:
		return VerbosityDetailed
	}
}

// Input 聚合一次完整分析的全部输出。
type Input struct {
	Symbol         string              `json:"symbol"`
	Timeframe      string              `json:"timeframe"`
	CurrentPrice   float64             `json:"current_price"`
	Bias           smc.BiasSignal      `json:"bias"`
	Execution      smc.ExecutionSignal `json:"execution"`
	Plan           smc.TradePlan       `json:"trade_plan"`
	Recommendation string              `json:"recommendation"`
	GeneratedAt    time.Time           `json:"generated_at"`
}

// Composer 生成印尼语叙述。
type Composer struct{}

func NewComposer() *Composer { return &Composer{} }

// Compose 按详略级别拼装叙述文本。任何 panic 都退化为固定道歉语。
func (c *Composer) Compose(in Input, v Verbosity) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = Apology(in.Symbol, in.Plan.Direction)
		}
	}()

	var b strings.Builder
	arah := arahLabel(in.Plan.Direction)
	fmt.Fprintf(&b, "Sinyal %s untuk %s (%s): %s.", arah, in.Symbol, in.Timeframe, rekomendasiLabel(in.Recommendation))

	switch v {
	case VerbosityConcise:
		fmt.Fprintf(&b, " Entry %s, stop loss %s, target %s.",
			Price(in.Plan.Entry), Price(in.Plan.StopLoss), Price(in.Plan.TakeProfits[0]))
	case VerbosityTechnical:
		fmt.Fprintf(&b, " Bias pasar %s (kekuatan %.2f, keyakinan %.2f) dari faktor %s.",
			string(in.Bias.Bias), in.Bias.Strength, in.Bias.Confidence, strings.Join(in.Bias.Factors, ", "))
		fmt.Fprintf(&b, " Skor validasi %.2f (%s)", in.Execution.Score, string(in.Execution.Result))
		if len(in.Execution.RejectionReasons) > 0 {
			fmt.Fprintf(&b, ", cek gagal: %s", strings.Join(in.Execution.RejectionReasons, ", "))
		}
		b.WriteString(".")
		fmt.Fprintf(&b, " Rencana: entry %s / SL %s / TP %s, %s, %s, RR %.2f, ukuran posisi %.2f%%.",
			Price(in.Plan.Entry), Price(in.Plan.StopLoss),
			Price(in.Plan.TakeProfits[0]), Price(in.Plan.TakeProfits[1]), Price(in.Plan.TakeProfits[2]),
			in.Plan.RiskReward, in.Plan.PositionSizePct)
	case VerbosityEducational:
		fmt.Fprintf(&b, " Bias %s berarti struktur pasar condong %s;", string(in.Bias.Bias), arah)
		b.WriteString(" CHoCH adalah patahan struktur pertama yang melawan tren, sedangkan BOS menegaskan kelanjutan tren.")
		fmt.Fprintf(&b, " Entry disarankan di %s karena %s.", Price(in.Plan.Entry), basisLabel(in.Plan.EntryBasis))
		fmt.Fprintf(&b, " Stop loss %s membatasi risiko, dan tiga target (%s, %s, %s) dipetakan dari level likuiditas.",
			Price(in.Plan.StopLoss),
			Price(in.Plan.TakeProfits[0]), Price(in.Plan.TakeProfits[1]), Price(in.Plan.TakeProfits[2]))
	default: // detail
		fmt.Fprintf(&b, " Bias pasar %s dengan keyakinan %.0f%%.", string(in.Bias.Bias), in.Bias.Confidence*100)
		fmt.Fprintf(&b, " Entry %s (%s), stop loss %s, target %s / %s / %s.",
			Price(in.Plan.Entry), basisLabel(in.Plan.EntryBasis), Price(in.Plan.StopLoss),
			Price(in.Plan.TakeProfits[0]), Price(in.Plan.TakeProfits[1]), Price(in.Plan.TakeProfits[2]))
		fmt.Fprintf(&b, " Kualitas rencana: %s, risk/reward %.2f.", kualitasLabel(in.Plan.Quality), in.Plan.RiskReward)
	}
	return b.String()
}

// Apology 是渲染失败时的固定回退文案。
func Apology(symbol string, direction smc.Direction) string {
	return fmt.Sprintf("Maaf, narasi sinyal %s (%s) belum dapat dibuat. Silakan coba beberapa saat lagi.",
		symbol, direction)
}

// Price 以最短无损十进制呈现价格，保证各编码嵌入同一字面量。
func Price(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func arahLabel(d smc.Direction) string {
	if d == smc.Short {
		return "short"
	}
	return "long"
}

func basisLabel(basis string) string {
	switch basis {
	case "order_block":
		return "harga berada di tepi order block"
	case "fvg":
		return "harga menguji fair value gap"
	default:
		return "mengikuti harga pasar terkini"
	}
}

func kualitasLabel(q smc.PlanQuality) string {
	switch q {
	case smc.QualityExcellent:
		return "sangat baik"
	case smc.QualityGood:
		return "baik"
	case smc.QualityAverage:
		return "cukup"
	default:
		return "kurang"
	}
}

func rekomendasiLabel(rec string) string {
	switch rec {
	case "STRONG_BUY":
		return "beli kuat"
	case "BUY":
		return "beli"
	case "WEAK_BUY":
		return "beli lemah"
	case "WEAK_SELL":
		return "jual lemah"
	case "SELL":
		return "jual"
	case "STRONG_SELL":
		return "jual kuat"
	default:
		return "tahan dulu"
	}
}
