package backtest

import (
	"context"
	"testing"

	"martlet/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSource 按请求区间返回预置 K 线，并记录调用次数。
type stubSource struct {
	candles []market.Candle
	calls   int
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(_ context.Context, req market.FetchRequest) ([]market.Candle, error) {
	s.calls++
	var out []market.Candle
	for _, c := range s.candles {
		if c.OpenTime < req.Start {
			continue
		}
		if req.End > 0 && c.OpenTime > req.End {
			continue
		}
		out = append(out, c)
		if req.Limit > 0 && len(out) >= req.Limit {
			break
		}
	}
	return out, nil
}

func TestDataServiceFillsGapsFromSource(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	tf, _ := ParseTimeframe("1h")
	start := alignDown(int64(1_700_000_000_000), tf.durationMillis())
	all := makeCandles(tf, start, []float64{100, 101, 102, 103, 104, 105})
	src := &stubSource{candles: all}

	// 先缓存两端，留中间缺口
	_, err = store.InsertCandles(context.Background(), "BTCUSDT", "1h", []market.Candle{all[0], all[5]})
	require.NoError(t, err)

	svc := NewDataService(store, src)
	got, err := svc.Ensure(context.Background(), "BTCUSDT", tf, start, all[5].OpenTime)
	require.NoError(t, err)
	require.Len(t, got, 6)
	assert.Greater(t, src.calls, 0)

	// 第二次命中缓存，不再访问远端
	calls := src.calls
	got, err = svc.Ensure(context.Background(), "BTCUSDT", tf, start, all[5].OpenTime)
	require.NoError(t, err)
	require.Len(t, got, 6)
	assert.Equal(t, calls, src.calls)
}

func TestDataServiceNoData(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	tf, _ := ParseTimeframe("1h")
	start := alignDown(int64(1_700_000_000_000), tf.durationMillis())
	svc := NewDataService(store, &stubSource{})

	_, err = svc.Ensure(context.Background(), "BTCUSDT", tf, start, start+3*tf.durationMillis())
	require.Error(t, err)
	var dataErr *DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "BTCUSDT", dataErr.Symbol)
	assert.ErrorIs(t, err, market.ErrNoData)
}

func TestDataServicePagedFetch(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	tf, _ := ParseTimeframe("1h")
	start := alignDown(int64(1_700_000_000_000), tf.durationMillis())
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	src := &stubSource{candles: makeCandles(tf, start, closes)}

	svc := NewDataService(store, src)
	svc.pageLimit = 4 // 强制分页

	got, err := svc.Ensure(context.Background(), "BTCUSDT", tf, start, start+9*tf.durationMillis())
	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.GreaterOrEqual(t, src.calls, 3)
}
