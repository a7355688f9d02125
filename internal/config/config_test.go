package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  log_level: debug
market:
  default_symbols: [BTC-USDT]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, ":5000", cfg.App.HTTPAddr)
	assert.Equal(t, []string{"BTC-USDT"}, cfg.Market.DefaultSymbols)
	assert.InDelta(t, 0.4, cfg.SMC.Bias.CHoCH, 1e-9)
	assert.InDelta(t, 0.7, cfg.SMC.Execution.ValidThreshold, 1e-9)
	assert.InDelta(t, 0.02, cfg.SMC.Plan.FallbackStopPct, 1e-9)
}

// 显式写 0 不应被默认值覆盖掉，但没写的键要补上。
func TestExplicitZeroSurvivesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  rate_limit_rps: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Server.RateLimitRPS)
	assert.NotZero(t, cfg.Server.RateLimitBurst)
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"bias weights": `
smc:
  bias: {choch: 0.9, bos: 0.9, trend: 0.9}
`,
		"threshold order": `
smc:
  execution: {valid_threshold: 0.4, pending_threshold: 0.5}
`,
		"telegram incomplete": `
notify:
  telegram: {enabled: true}
`,
		"bad base url": `
market:
  okx_base_url: ftp://nope
`,
	}
	for name, body := range cases {
		_, err := Load(writeConfig(t, body))
		assert.Error(t, err, name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
	_, err = Load("  ")
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.NoError(t, validate(cfg))
}
