package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeframe(t *testing.T) {
	tf, err := ParseTimeframe("1h")
	require.NoError(t, err)
	assert.Equal(t, "1h", tf.Key)
	assert.Equal(t, time.Hour, tf.Duration)

	tf, err = ParseTimeframe("4H")
	require.NoError(t, err)
	assert.Equal(t, "4h", tf.Key)

	_, err = ParseTimeframe("7x")
	assert.Error(t, err)
	_, err = ParseTimeframe("")
	assert.Error(t, err)
}

func TestAlignRange(t *testing.T) {
	tf, _ := ParseTimeframe("1h")
	step := tf.durationMillis()

	start, end := tf.AlignRange(step+5, 3*step+17)
	assert.Equal(t, step, start)
	assert.Equal(t, 3*step, end)

	// 反序输入自动交换
	start, end = tf.AlignRange(3*step, step)
	assert.Equal(t, step, start)
	assert.Equal(t, 3*step, end)
}

func TestExpectedCandles(t *testing.T) {
	tf, _ := ParseTimeframe("1h")
	step := tf.durationMillis()

	assert.Equal(t, int64(1), tf.ExpectedCandles(0, 0))
	assert.Equal(t, int64(4), tf.ExpectedCandles(0, 3*step))
	assert.Equal(t, int64(0), tf.ExpectedCandles(step, 0))
}

func TestSupportedTimeframes(t *testing.T) {
	names := SupportedTimeframes()
	assert.Contains(t, names, "1m")
	assert.Contains(t, names, "1h")
	assert.Contains(t, names, "1d")
}
