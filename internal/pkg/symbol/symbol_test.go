package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAcceptsAllSpellings(t *testing.T) {
	for _, in := range []string{"BTC-USDT", "btc/usdt", "BTCUSDT", " btc-usdt "} {
		sym := Parse(in)
		assert.Equal(t, "BTC", sym.Base, in)
		assert.Equal(t, "USDT", sym.Quote, in)
		assert.Equal(t, "BTC-USDT", sym.OKX(), in)
		assert.Equal(t, "BTCUSDT", sym.Binance(), in)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("USDT"))
	assert.Empty(t, Normalize("???"))
}

func TestNormalizeListDedupes(t *testing.T) {
	out := NormalizeList([]string{"btcusdt", "BTC-USDT", "eth/usdt", "bogus"})
	assert.Equal(t, []string{"BTC-USDT", "ETH-USDT"}, out)
}
