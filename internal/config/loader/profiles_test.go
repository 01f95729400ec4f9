package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martlet/internal/config"
)

func TestProfileStoreMergesOverBase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  aggressive:
    risk_per_trade: 0.3
    rsi_oversold: 35
  broken:
    rsi_period: -5
`), 0o644))

	store, err := NewProfileStore(path, config.DefaultStrategy())
	require.NoError(t, err)

	p, ok := store.Get("aggressive")
	require.True(t, ok)
	assert.Equal(t, 0.3, p.RiskPerTrade)
	assert.Equal(t, 35.0, p.RSIOversold)
	// 未覆盖的键保持基础值
	assert.Equal(t, 14, p.RSIPeriod)
	assert.Equal(t, 10000.0, p.InitialCash)

	// 非法档案被跳过
	_, ok = store.Get("broken")
	assert.False(t, ok)
	assert.Equal(t, []string{"aggressive"}, store.Names())
}

func TestProfileStoreEmptyPath(t *testing.T) {
	store, err := NewProfileStore("", config.DefaultStrategy())
	require.NoError(t, err)

	p, ok := store.Get("")
	require.True(t, ok)
	assert.Equal(t, config.DefaultStrategy(), p)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}
