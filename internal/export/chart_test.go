package export

import (
	"bytes"
	"testing"
	"time"

	"martlet/internal/backtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEquityChart(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	curve := []backtest.EquityPoint{
		{TS: base.UnixMilli(), Equity: 10000},
		{TS: base.Add(time.Hour).UnixMilli(), Equity: 10100},
		{TS: base.Add(2 * time.Hour).UnixMilli(), Equity: 10050},
	}
	trades := []backtest.TradeRecord{
		{Time: base, Side: backtest.SideBuy, Price: 100, Size: 10},
		{Time: base.Add(2 * time.Hour), Side: backtest.SideSell, Price: 100.5, Size: 10},
	}

	var buf bytes.Buffer
	err := RenderEquityChart(&buf, ChartInput{
		Title:  "BTCUSDT 1h",
		Stats:  backtest.RunStats{ReturnPct: 0.005, WinRate: 1, Trades: 2},
		Curve:  curve,
		Trades: trades,
	})
	require.NoError(t, err)
	html := buf.String()
	assert.Contains(t, html, "BTCUSDT 1h")
	assert.Contains(t, html, "Equity")
	assert.Contains(t, html, "Buy")
	assert.Contains(t, html, "Sell")
}

func TestRenderEquityChartEmptyCurve(t *testing.T) {
	var buf bytes.Buffer
	err := RenderEquityChart(&buf, ChartInput{Title: "empty"})
	assert.Error(t, err)
}

func TestMarkerSeriesAlignment(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	curve := []backtest.EquityPoint{
		{TS: base.UnixMilli(), Equity: 10000},
		{TS: base.Add(time.Hour).UnixMilli(), Equity: 10100},
	}
	index := map[int64]int{curve[0].TS: 0, curve[1].TS: 1}
	trades := []backtest.TradeRecord{
		{Time: base, Side: backtest.SideBuy},
		{Time: base.Add(time.Hour), Side: backtest.SideSell},
		{Time: base.Add(5 * time.Hour), Side: backtest.SideBuy}, // 对不上采样点，丢弃
	}

	buys, sells := markerSeries(trades, index, curve)
	require.Len(t, buys, 1)
	require.Len(t, sells, 1)
	assert.Equal(t, []interface{}{0, 10000.0}, buys[0].Value)
	assert.Equal(t, []interface{}{1, 10100.0}, sells[0].Value)
}
