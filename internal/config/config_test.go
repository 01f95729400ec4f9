package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  log_level: debug
backtest:
  data_dir: /tmp/candles
  results_dir: /tmp/results
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 14, cfg.Strategy.RSIPeriod)
	assert.Equal(t, 26, cfg.Strategy.MACDLong)
	assert.Equal(t, 0.1, cfg.Strategy.RiskPerTrade)
	assert.Equal(t, 10000.0, cfg.Strategy.InitialCash)
	assert.Equal(t, 0.001, cfg.Strategy.CommissionRate)
	assert.Equal(t, 2, cfg.Backtest.MaxConcurrent)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
strategy:
  rsi_period: 7
  risk_per_trade: 0.25
  initial_cash: 5000
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Strategy.RSIPeriod)
	assert.Equal(t, 0.25, cfg.Strategy.RiskPerTrade)
	assert.Equal(t, 5000.0, cfg.Strategy.InitialCash)
}

func TestLoadRejectsInvalidStrategy(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"negative rsi period", "strategy:\n  rsi_period: -1\n"},
		{"risk above one", "strategy:\n  risk_per_trade: 1.5\n"},
		{"short not below long", "strategy:\n  macd_short: 30\n  macd_long: 26\n"},
		{"oversold above overbought", "strategy:\n  rsi_oversold: 80\n  rsi_overbought: 70\n"},
		{"max_loss above one", "strategy:\n  max_loss: 1.5\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestStrategyBounds(t *testing.T) {
	p := DefaultStrategy()
	assert.InDelta(t, 9000.0, p.MinBalance(), 1e-9)
	assert.InDelta(t, 60000.0, p.MaxBalance(), 1e-9)
	assert.NoError(t, p.Validate())
}
