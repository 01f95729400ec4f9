package export

import (
	"fmt"
	"io"
	"time"

	"martlet/internal/backtest"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	colorBackground = "#060c1b"
	colorText       = "#eceff4"
	colorTextDim    = "#9ca3af"
	colorEquity     = "#3b82f6"
	colorBuy        = "#34d399"
	colorSell       = "#f87171"

	chartWidthPx  = 1200
	chartHeightPx = 560
)

const chartTimeLayout = "01-02 15:04"

// ChartInput 汇总单次回测的可视化素材。
type ChartInput struct {
	Title  string
	Stats  backtest.RunStats
	Curve  []backtest.EquityPoint
	Trades []backtest.TradeRecord
}

// RenderEquityChart 输出独立 HTML：权益曲线加买卖标记点。
func RenderEquityChart(w io.Writer, input ChartInput) error {
	if len(input.Curve) == 0 {
		return fmt.Errorf("权益曲线为空，无法绘图")
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title: input.Title,
			Subtitle: fmt.Sprintf("return %.2f%% | win rate %.1f%% | max drawdown %.2f%% | trades %d",
				input.Stats.ReturnPct*100, input.Stats.WinRate*100, input.Stats.MaxDrawdownPct*100, input.Stats.Trades),
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorText, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextDim},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextDim},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextDim},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextDim, Opacity: opts.Float(0.2)}},
		}),
	)

	xAxis := make([]string, len(input.Curve))
	points := make([]opts.LineData, len(input.Curve))
	index := make(map[int64]int, len(input.Curve))
	for i, p := range input.Curve {
		xAxis[i] = time.UnixMilli(p.TS).UTC().Format(chartTimeLayout)
		points[i] = opts.LineData{Value: p.Equity}
		index[p.TS] = i
	}
	line.SetXAxis(xAxis)
	line.AddSeries("Equity", points,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)

	buys, sells := markerSeries(input.Trades, index, input.Curve)
	scatter := charts.NewScatter()
	scatter.SetXAxis(xAxis)
	scatter.AddSeries("Buy", buys, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorBuy}))
	scatter.AddSeries("Sell", sells, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorSell}))
	line.Overlap(scatter)

	return line.Render(w)
}

// markerSeries 把成交时间对齐到权益曲线的采样点上；
// 对不齐的成交（理论上不存在）直接丢弃。
func markerSeries(trades []backtest.TradeRecord, index map[int64]int, curve []backtest.EquityPoint) (buys, sells []opts.ScatterData) {
	for _, t := range trades {
		i, ok := index[t.Time.UnixMilli()]
		if !ok {
			continue
		}
		data := opts.ScatterData{
			Value:      []interface{}{i, curve[i].Equity},
			Symbol:     "triangle",
			SymbolSize: 12,
		}
		if t.Side == backtest.SideBuy {
			buys = append(buys, data)
		} else {
			data.SymbolRotate = 180
			sells = append(sells, data)
		}
	}
	return buys, sells
}
