package backtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"martlet/internal/config"
	"martlet/internal/config/loader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSimulator(t *testing.T, src *stubSource) *Simulator {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	results, err := NewResultStore(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = results.Close() })

	profiles, err := loader.NewProfileStore("", config.DefaultStrategy())
	require.NoError(t, err)

	return NewSimulator(profiles, NewDataService(store, src), results, 2)
}

func TestSimulatorRunSync(t *testing.T) {
	tf, _ := ParseTimeframe("1h")
	start := alignDown(int64(1_700_000_000_000), tf.durationMillis())
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}
	src := &stubSource{candles: makeCandles(tf, start, closes)}
	sim := newTestSimulator(t, src)

	run, err := sim.RunSync(context.Background(), RunRequest{
		Symbol:    "btcusdt",
		Timeframe: "1h",
		StartTS:   start,
		EndTS:     start + 59*tf.durationMillis(),
	})
	require.NoError(t, err)
	assert.Equal(t, RunStatusDone, run.Status)
	assert.Equal(t, "BTCUSDT", run.Symbol)
	assert.Equal(t, 60, run.Stats.Bars)
	assert.Equal(t, int64(60), run.Progress)
	require.NotNil(t, run.DoneAt)
	assert.NotEmpty(t, run.ID)
}

func TestSimulatorStartRunAsync(t *testing.T) {
	tf, _ := ParseTimeframe("1h")
	start := alignDown(int64(1_700_000_000_000), tf.durationMillis())
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i%5)
	}
	src := &stubSource{candles: makeCandles(tf, start, closes)}
	sim := newTestSimulator(t, src)

	run, err := sim.StartRun(context.Background(), RunRequest{
		Symbol:    "ETHUSDT",
		Timeframe: "1h",
		StartTS:   start,
		EndTS:     start + 39*tf.durationMillis(),
	})
	require.NoError(t, err)
	assert.Equal(t, RunStatusPending, run.Status)

	sim.Wait()

	final, found, err := sim.results.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, RunStatusDone, final.Status)
	assert.Equal(t, 40, final.Stats.Bars)
}

func TestSimulatorRejectsBadRequest(t *testing.T) {
	sim := newTestSimulator(t, &stubSource{})

	_, err := sim.RunSync(context.Background(), RunRequest{
		Symbol: "BTCUSDT", Timeframe: "42x", StartTS: 1, EndTS: 2,
	})
	assert.Error(t, err)

	_, err = sim.RunSync(context.Background(), RunRequest{
		Symbol: "BTCUSDT", Timeframe: "1h", StartTS: 100, EndTS: 50,
	})
	assert.Error(t, err)

	_, err = sim.RunSync(context.Background(), RunRequest{
		Symbol: "BTCUSDT", Timeframe: "1h", StartTS: 1, EndTS: 2, Profile: "nope",
	})
	assert.Error(t, err)
}

func TestSimulatorFailsWithoutData(t *testing.T) {
	tf, _ := ParseTimeframe("1h")
	start := alignDown(time.Now().Add(-48*time.Hour).UnixMilli(), tf.durationMillis())
	sim := newTestSimulator(t, &stubSource{})

	run, err := sim.RunSync(context.Background(), RunRequest{
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		StartTS:   start,
		EndTS:     start + 10*tf.durationMillis(),
	})
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.Contains(t, run.Message, "无数据")
}

func TestSimulatorLookbackWarmup(t *testing.T) {
	tf, _ := ParseTimeframe("1h")
	step := tf.durationMillis()
	base := alignDown(int64(1_700_000_000_000), step)
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 100 + float64(i%11)
	}
	src := &stubSource{candles: makeCandles(tf, base, closes)}
	sim := newTestSimulator(t, src)
	sim.Lookback = 30

	// 请求区间从第 40 根开始：前面 30 根作为预热取回但不计统计
	start := base + 40*step
	run, err := sim.RunSync(context.Background(), RunRequest{
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		StartTS:   start,
		EndTS:     base + 99*step,
	})
	require.NoError(t, err)
	assert.Equal(t, RunStatusDone, run.Status)
	assert.Equal(t, 60, run.Stats.Bars, "warm-up bars stay out of the stats")
}
