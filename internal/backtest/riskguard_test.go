package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskGuardBounds(t *testing.T) {
	g, err := NewRiskGuard(10000, 0.1, 5.0)
	require.NoError(t, err)
	min, max := g.Bounds()
	assert.InDelta(t, 9000.0, min, 1e-9)
	assert.InDelta(t, 60000.0, max, 1e-9)

	assert.Equal(t, ActionContinue, g.Check(9000.01))
	assert.Equal(t, ActionContinue, g.Check(59999.99))
	assert.False(t, g.Tripped())
}

func TestRiskGuardFiresOnExactBoundary(t *testing.T) {
	t.Run("loss limit", func(t *testing.T) {
		g, err := NewRiskGuard(10000, 0.1, 5.0)
		require.NoError(t, err)
		assert.Equal(t, ActionForceClose, g.Check(9000))
		assert.True(t, g.Tripped())
	})
	t.Run("profit limit", func(t *testing.T) {
		g, err := NewRiskGuard(10000, 0.1, 5.0)
		require.NoError(t, err)
		assert.Equal(t, ActionForceClose, g.Check(60000))
		assert.True(t, g.Tripped())
	})
}

// 一旦触发即终态：之后任何权益值都维持 ForceClose。
func TestRiskGuardTripIsTerminal(t *testing.T) {
	g, err := NewRiskGuard(10000, 0.1, 5.0)
	require.NoError(t, err)
	require.Equal(t, ActionForceClose, g.Check(8000))
	assert.Equal(t, ActionForceClose, g.Check(10000))
	assert.Equal(t, ActionForceClose, g.Check(30000))
}

func TestRiskGuardRejectsCollapsedBounds(t *testing.T) {
	_, err := NewRiskGuard(0, 0.1, 5.0)
	assert.Error(t, err)
}
