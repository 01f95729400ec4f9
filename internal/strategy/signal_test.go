package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martlet/internal/indicator"
)

func TestNewEvaluatorValidation(t *testing.T) {
	_, err := NewEvaluator(70, 30)
	assert.Error(t, err, "oversold above overbought")
	_, err = NewEvaluator(0, 70)
	assert.Error(t, err)
	_, err = NewEvaluator(30, 100)
	assert.Error(t, err)
	_, err = NewEvaluator(30, 70)
	assert.NoError(t, err)
}

func TestEvaluateTransitions(t *testing.T) {
	eval, err := NewEvaluator(30, 70)
	require.NoError(t, err)

	snap := func(rsi, hist float64) *indicator.Snapshot {
		return &indicator.Snapshot{RSI: rsi, Histogram: hist}
	}

	cases := []struct {
		name  string
		snap  *indicator.Snapshot
		state PositionState
		want  Signal
	}{
		{"warmup always holds", nil, StateFlat, SignalHold},
		{"warmup holds while long", nil, StateLong, SignalHold},
		{"enter on oversold with positive hist", snap(25, 0.5), StateFlat, SignalEnter},
		{"no enter on hist sign alone", snap(50, 0.5), StateFlat, SignalHold},
		{"no enter on rsi alone", snap(25, -0.1), StateFlat, SignalHold},
		{"re-entry suppressed while long", snap(25, 0.5), StateLong, SignalHold},
		{"exit on overbought with negative hist", snap(75, -0.5), StateLong, SignalExit},
		{"no exit on hist sign alone", snap(50, -0.5), StateLong, SignalHold},
		{"no exit on rsi alone", snap(75, 0.1), StateLong, SignalHold},
		{"exit suppressed while flat", snap(75, -0.5), StateFlat, SignalHold},
		{"thresholds are strict", snap(30, 0.5), StateFlat, SignalHold},
		{"overbought threshold strict", snap(70, -0.5), StateLong, SignalHold},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, eval.Evaluate(tc.snap, tc.state))
		})
	}
}
