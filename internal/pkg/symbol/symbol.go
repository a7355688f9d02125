// Package symbol 统一各交易所的交易对写法：对外 API 与 OKX 用
// BTC-USDT，Binance 用 BTCUSDT，输入还可能出现 BTC/USDT。
package symbol

import "strings"

type Symbol struct {
	Base  string
	Quote string
}

var quoteCurrencies = []string{"USDT", "USDC", "BUSD", "TUSD", "BTC", "ETH", "BNB"}

// Parse 接受 BTC-USDT / BTC/USDT / BTCUSDT 三种写法。
func Parse(s string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	for _, sep := range []string{"-", "/"} {
		if parts := strings.SplitN(s, sep, 2); len(parts) == 2 {
			return Symbol{Base: strings.TrimSpace(parts[0]), Quote: strings.TrimSpace(parts[1])}
		}
	}
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Symbol{Base: s[:len(s)-len(quote)], Quote: quote}
		}
	}
	return Symbol{}
}

func (s Symbol) Valid() bool { return s.Base != "" && s.Quote != "" }

// OKX 返回 OKX 现货写法，同时也是对外 API 的规范写法。
func (s Symbol) OKX() string {
	if !s.Valid() {
		return ""
	}
	return s.Base + "-" + s.Quote
}

func (s Symbol) Binance() string {
	if !s.Valid() {
		return ""
	}
	return s.Base + s.Quote
}

// Normalize 把任意写法归一到 BTC-USDT 形式；无法解析时返回空串。
func Normalize(s string) string {
	return Parse(s).OKX()
}

// NormalizeList 归一并去重，保持首次出现的顺序。
func NormalizeList(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		norm := Normalize(s)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

func IsValid(s string) bool { return Parse(s).Valid() }
