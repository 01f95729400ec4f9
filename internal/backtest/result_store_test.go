package backtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"martlet/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResultStore(t *testing.T) *ResultStore {
	t.Helper()
	store, err := NewResultStore(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestResultStoreRunLifecycle(t *testing.T) {
	store := newTestResultStore(t)
	ctx := context.Background()

	run := Run{
		ID:        "run-1",
		Symbol:    "btcusdt",
		Timeframe: "1H",
		Profile:   "base",
		Status:    RunStatusPending,
		StartTS:   1_700_000_000_000,
		EndTS:     1_700_100_000_000,
		Params:    config.DefaultStrategy(),
	}
	require.NoError(t, store.InsertRun(ctx, run))

	// 重复插入同一 run_id 不报错也不重复
	require.NoError(t, store.InsertRun(ctx, run))
	runs, err := store.ListRuns(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "BTCUSDT", runs[0].Symbol)
	assert.Equal(t, "1h", runs[0].Timeframe)
	assert.Equal(t, RunStatusPending, runs[0].Status)
	assert.Equal(t, config.DefaultStrategy().RSIPeriod, runs[0].Params.RSIPeriod)

	require.NoError(t, store.UpdateRunStatus(ctx, "run-1", RunStatusRunning, ""))
	require.NoError(t, store.UpdateRunProgress(ctx, "run-1", 42))

	got, found, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, RunStatusRunning, got.Status)
	assert.Equal(t, int64(42), got.Progress)
	assert.Nil(t, got.DoneAt)
}

func TestResultStoreSaveResult(t *testing.T) {
	store := newTestResultStore(t)
	ctx := context.Background()

	run := Run{
		ID:     "run-2",
		Symbol: "ETHUSDT",
		Status: RunStatusRunning,
		Params: config.DefaultStrategy(),
	}
	require.NoError(t, store.InsertRun(ctx, run))

	now := time.UnixMilli(1_700_000_000_000).UTC()
	result := Result{
		Stats: RunStats{
			FinalEquity: 10500,
			Profit:      500,
			ReturnPct:   0.05,
			Bars:        100,
			Trades:      2,
			Wins:        1,
		},
		Trades: []TradeRecord{
			{Time: now, Side: SideBuy, Price: 100, Size: 10},
			{Time: now.Add(time.Hour), Side: SideSell, Price: 105, Size: 10},
		},
		Curve: []EquityPoint{
			{TS: now.UnixMilli(), Equity: 10000},
			{TS: now.Add(time.Hour).UnixMilli(), Equity: 10500},
		},
	}
	require.NoError(t, store.SaveResult(ctx, "run-2", result))

	got, found, err := store.GetRun(ctx, "run-2")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, RunStatusDone, got.Status)
	assert.Equal(t, 10500.0, got.Stats.FinalEquity)
	require.NotNil(t, got.DoneAt)

	trades, err := store.ListTrades(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, SideBuy, trades[0].Side)
	assert.Equal(t, now, trades[0].Time)
	assert.Equal(t, SideSell, trades[1].Side)

	curve, err := store.ListEquityCurve(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, curve, 2)
	assert.Equal(t, 10000.0, curve[0].Equity)
	assert.Equal(t, 10500.0, curve[1].Equity)
}

func TestResultStoreMissingRun(t *testing.T) {
	store := newTestResultStore(t)
	ctx := context.Background()

	_, found, err := store.GetRun(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, found)

	err = store.UpdateRunStatus(ctx, "nope", RunStatusDone, "")
	assert.Error(t, err)
}
