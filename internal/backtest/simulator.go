package backtest

import (
	"math"
	"time"

	"github.com/google/uuid"
	talib "github.com/markcheno/go-talib"

	"cryptozz/internal/market"
)

const atrPeriod = 14

type openPosition struct {
	side       string
	entryPrice float64
	qty        float64
	entryTime  int64
	notional   float64
}

// Simulate 单遍扫描 K 线：同向信号忽略，反向信号先平后开，
// 结束时强制平掉残留仓位。手续费按名义金额、滑点按 bps 计。
func Simulate(req Request, strategy Strategy, candles market.Candles) Result {
	started := time.Now()
	out := Result{
		ID:        uuid.NewString(),
		Symbol:    req.Symbol,
		Timeframe: req.Timeframe,
		Strategy:  strategy.Name(),
		Candles:   len(candles),
		StartedAt: started,
	}

	balance := req.InitialBalance
	if balance <= 0 {
		balance = 10000
	}
	feeRate := req.FeeRate
	if feeRate <= 0 {
		feeRate = 0.0004
	}
	slippageBps := req.SlippageBps
	if slippageBps <= 0 {
		slippageBps = 2
	}

	initial := balance
	peak, maxDD := balance, 0.0
	grossWin, grossLoss := 0.0, 0.0
	var pos *openPosition

	signals := strategy.Signals(candles)

	closeAt := func(c market.Candle) {
		price := applySlippage(c.Close, slippageBps, pos.side, false)
		var pnl float64
		if pos.side == "long" {
			pnl = (price - pos.entryPrice) * pos.qty
		} else {
			pnl = (pos.entryPrice - price) * pos.qty
		}
		fee := pos.qty * price * feeRate
		net := pnl - fee
		balance += net

		trade := Trade{
			Side:       pos.side,
			EntryPrice: pos.entryPrice,
			ExitPrice:  price,
			EntryTime:  pos.entryTime,
			ExitTime:   c.CloseTime,
			PnL:        net,
		}
		if pos.notional > 0 {
			trade.PnLPct = net / pos.notional
		}
		out.TradeList = append(out.TradeList, trade)
		if net >= 0 {
			out.Metrics.Wins++
			grossWin += net
		} else {
			out.Metrics.Losses++
			grossLoss += -net
		}
		pos = nil
	}

	openAt := func(c market.Candle, side string) {
		price := applySlippage(c.Close, slippageBps, side, true)
		if price <= 0 || balance <= 0 {
			return
		}
		notional := balance * 0.2
		fee := notional * feeRate
		if fee >= balance {
			return
		}
		balance -= fee
		pos = &openPosition{
			side:       side,
			entryPrice: price,
			qty:        notional / price,
			entryTime:  c.CloseTime,
			notional:   notional,
		}
	}

	for i, c := range candles {
		switch signals[i] {
		case SignalLong:
			if pos != nil && pos.side == "short" {
				closeAt(c)
			}
			if pos == nil {
				openAt(c, "long")
			}
		case SignalShort:
			if pos != nil && pos.side == "long" {
				closeAt(c)
			}
			if pos == nil {
				openAt(c, "short")
			}
		}

		equity := balance + unrealized(pos, c.Close)
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
		out.Equity = append(out.Equity, EquityPoint{TS: c.CloseTime, Equity: round2(equity)})
	}

	if pos != nil && len(candles) > 0 {
		closeAt(candles[len(candles)-1])
	}

	m := &out.Metrics
	m.Trades = len(out.TradeList)
	if m.Trades > 0 {
		m.WinRate = float64(m.Wins) / float64(m.Trades)
	}
	m.Profit = round2(balance - initial)
	if initial > 0 {
		m.ReturnPct = (balance - initial) / initial
	}
	if grossLoss > 0 {
		m.ProfitFactor = round2(grossWin / grossLoss)
	} else if grossWin > 0 {
		// 无亏损时 +Inf 无法编码为 JSON，按总盈利记
		m.ProfitFactor = round2(grossWin)
	}
	m.MaxDrawdownPct = maxDD
	m.FinalBalance = round2(balance)
	m.EquityPeak = round2(peak)
	fillMarketProfile(m, candles)

	out.FinishedAt = time.Now()
	return out
}

// fillMarketProfile 补上测试窗口的行情画像：价格区间、ATR 波动率
// 与平均成交量。
func fillMarketProfile(m *Metrics, candles market.Candles) {
	if len(candles) == 0 {
		return
	}
	m.PriceLow, m.PriceHigh = candles.Range()

	volumes := candles.Volumes()
	sum := 0.0
	for _, v := range volumes {
		sum += v
	}
	m.AvgVolume = round2(sum / float64(len(volumes)))

	if len(candles) <= atrPeriod {
		return
	}
	atr := talib.Atr(candles.Highs(), candles.Lows(), candles.Closes(), atrPeriod)
	lastClose := candles[len(candles)-1].Close
	if last := atr[len(atr)-1]; last > 0 && lastClose > 0 {
		m.VolatilityPct = math.Round(last/lastClose*10000) / 100
	}
}

func unrealized(pos *openPosition, price float64) float64 {
	if pos == nil {
		return 0
	}
	if pos.side == "long" {
		return (price - pos.entryPrice) * pos.qty
	}
	return (pos.entryPrice - price) * pos.qty
}

// applySlippage：开仓吃亏、平仓吃亏，方向各自相反。
func applySlippage(price, bps float64, side string, opening bool) float64 {
	adj := price * bps / 10000
	worse := (side == "long") == opening
	if worse {
		return price + adj
	}
	return price - adj
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
