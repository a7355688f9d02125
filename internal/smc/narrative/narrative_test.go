package narrative

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptozz/internal/smc"
)

func sampleInput() Input {
	return Input{
		Symbol:       "BTC-USDT",
		Timeframe:    "1H",
		CurrentPrice: 100,
		Bias: smc.BiasSignal{
			Bias: smc.BiasBullish, Strength: 0.4, Confidence: 2.0 / 3.0,
			Factors: []string{"choch:bullish(3)", "trend:structure_default"},
		},
		Execution: smc.ExecutionSignal{
			Symbol: "BTC-USDT", Direction: smc.Long,
			Result: smc.ResultValid, Score: 0.75,
		},
		Plan: smc.TradePlan{
			Symbol: "BTC-USDT", Timeframe: "1H", Direction: smc.Long,
			Entry: 99.9, StopLoss: 98, TakeProfits: [3]float64{102.75, 104.65, 106.55},
			RiskReward: 2.5, PositionSizePct: 50, Quality: smc.QualityGood,
			EntryBasis: "market",
		},
		Recommendation: "BUY",
		GeneratedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAllVerbositiesProduceIndonesianProse(t *testing.T) {
	c := NewComposer()
	for _, v := range []Verbosity{VerbosityConcise, VerbosityDetailed, VerbosityTechnical, VerbosityEducational} {
		out := c.Compose(sampleInput(), v)
		assert.NotEmpty(t, out, string(v))
		assert.Contains(t, out, "BTC-USDT", string(v))
		assert.Contains(t, out, "Sinyal", string(v))
	}
}

func TestJSONRoundTripPreservesPlanLiterals(t *testing.T) {
	f := NewFormatter(nil)
	in := sampleInput()

	raw, err := f.FormatCompleteSignal(in, VerbosityDetailed, EncodingJSON)
	require.NoError(t, err)

	var back Input
	require.NoError(t, json.Unmarshal([]byte(raw), &back))

	msg, err := f.FormatCompleteSignal(back, VerbosityDetailed, EncodingTelegram)
	require.NoError(t, err)

	assert.Contains(t, msg, Price(in.Plan.Entry))
	assert.Contains(t, msg, Price(in.Plan.StopLoss))
	for _, tp := range in.Plan.TakeProfits {
		assert.Contains(t, msg, Price(tp))
	}
}

func TestTelegramEncodingIsHTML(t *testing.T) {
	f := NewFormatter(nil)
	msg, err := f.FormatCompleteSignal(sampleInput(), VerbosityConcise, EncodingTelegram)
	require.NoError(t, err)
	assert.Contains(t, msg, "<b>")
	assert.Contains(t, msg, "<code>99.9</code>")
}

func TestMarkdownAndConsoleEncodings(t *testing.T) {
	f := NewFormatter(nil)

	md, err := f.FormatCompleteSignal(sampleInput(), VerbosityDetailed, EncodingMarkdown)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(md, "## BTC-USDT"))
	assert.Contains(t, md, "| Entry | 99.9 |")

	txt, err := f.FormatCompleteSignal(sampleInput(), VerbosityDetailed, EncodingConsole)
	require.NoError(t, err)
	assert.Contains(t, txt, "Stop Loss   : 98")
}

func TestUnknownEncodingErrors(t *testing.T) {
	f := NewFormatter(nil)
	_, err := f.FormatCompleteSignal(sampleInput(), VerbosityDetailed, Encoding("xml"))
	require.Error(t, err)
}

func TestApologyEmbedsSymbolAndDirection(t *testing.T) {
	out := Apology("ETH-USDT", smc.Short)
	assert.Contains(t, out, "ETH-USDT")
	assert.Contains(t, out, "SHORT")
	assert.Contains(t, out, "Maaf")
}

func TestParseVerbosityAliases(t *testing.T) {
	assert.Equal(t, VerbosityConcise, ParseVerbosity("concise"))
	assert.Equal(t, VerbosityTechnical, ParseVerbosity("TEKNIKAL"))
	assert.Equal(t, VerbosityDetailed, ParseVerbosity(""))
	assert.Equal(t, VerbosityEducational, ParseVerbosity("educational"))
}
