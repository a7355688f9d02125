package backtest

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	talib "github.com/markcheno/go-talib"

	"cryptozz/internal/market"
)

// ErrUnknownStrategy 由 HTTP 层映射为 INVALID_STRATEGY。
var ErrUnknownStrategy = errors.New("unknown strategy")

const (
	SignalShort = -1
	SignalHold  = 0
	SignalLong  = 1
)

// Strategy 对整段 K 线序列给出逐根信号。信号只使用截至当根的
// 数据（talib 输出天然满足），避免前视偏差。
type Strategy interface {
	Name() string
	Signals(candles market.Candles) []int
}

// NewStrategy 按名称构造策略。
func NewStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "rsi_macd":
		return rsiMACD{}, nil
	case "sma_cross":
		return smaCross{}, nil
	case "bollinger_breakout":
		return bollingerBreakout{}, nil
	case "ml_ensemble":
		return ensemble{members: []Strategy{rsiMACD{}, smaCross{}, bollingerBreakout{}}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// StrategyNames 返回全部可用策略名（字典序）。
func StrategyNames() []string {
	names := []string{"rsi_macd", "sma_cross", "bollinger_breakout", "ml_ensemble"}
	sort.Strings(names)
	return names
}

// rsiMACD：RSI 超卖且 MACD 柱转正做多，超买且柱转负做空。
type rsiMACD struct{}

func (rsiMACD) Name() string { return "rsi_macd" }

func (rsiMACD) Signals(candles market.Candles) []int {
	closes := candles.Closes()
	out := make([]int, len(closes))
	if len(closes) < 35 {
		return out
	}
	rsi := talib.Rsi(closes, 14)
	_, _, hist := talib.Macd(closes, 12, 26, 9)
	for i := 35; i < len(closes); i++ {
		switch {
		case rsi[i] < 35 && hist[i] > 0 && hist[i-1] <= 0:
			out[i] = SignalLong
		case rsi[i] > 65 && hist[i] < 0 && hist[i-1] >= 0:
			out[i] = SignalShort
		}
	}
	return out
}

// smaCross：快线 10 上穿慢线 30 做多，下穿做空。
type smaCross struct{}

func (smaCross) Name() string { return "sma_cross" }

func (smaCross) Signals(candles market.Candles) []int {
	closes := candles.Closes()
	out := make([]int, len(closes))
	if len(closes) < 31 {
		return out
	}
	fast := talib.Sma(closes, 10)
	slow := talib.Sma(closes, 30)
	for i := 31; i < len(closes); i++ {
		crossedUp := fast[i] > slow[i] && fast[i-1] <= slow[i-1]
		crossedDown := fast[i] < slow[i] && fast[i-1] >= slow[i-1]
		if crossedUp {
			out[i] = SignalLong
		} else if crossedDown {
			out[i] = SignalShort
		}
	}
	return out
}

// bollingerBreakout：收盘突破上轨做多，跌破下轨做空。
type bollingerBreakout struct{}

func (bollingerBreakout) Name() string { return "bollinger_breakout" }

func (bollingerBreakout) Signals(candles market.Candles) []int {
	closes := candles.Closes()
	out := make([]int, len(closes))
	if len(closes) < 21 {
		return out
	}
	upper, _, lower := talib.BBands(closes, 20, 2, 2, talib.SMA)
	for i := 21; i < len(closes); i++ {
		if closes[i] > upper[i] && closes[i-1] <= upper[i-1] {
			out[i] = SignalLong
		} else if closes[i] < lower[i] && closes[i-1] >= lower[i-1] {
			out[i] = SignalShort
		}
	}
	return out
}

// ensemble：成员多数表决，至少两票同向才出信号。
type ensemble struct {
	members []Strategy
}

func (ensemble) Name() string { return "ml_ensemble" }

func (e ensemble) Signals(candles market.Candles) []int {
	out := make([]int, len(candles))
	votes := make([][]int, len(e.members))
	for i, m := range e.members {
		votes[i] = m.Signals(candles)
	}
	for i := range out {
		long, short := 0, 0
		for _, v := range votes {
			switch v[i] {
			case SignalLong:
				long++
			case SignalShort:
				short++
			}
		}
		if long >= 2 {
			out[i] = SignalLong
		} else if short >= 2 {
			out[i] = SignalShort
		}
	}
	return out
}
