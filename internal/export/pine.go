package export

import (
	"fmt"
	"io"
	"strings"

	"martlet/internal/backtest"
)

// TradingView Pine Script v5 模板：先把成交塞进数组，再逐个打标签。
const (
	pineHeader = `//@version=5
indicator("Backtest Results", overlay=true)

var float[] dates = array.new_float()
var float[] signals = array.new_float()
var float[] prices = array.new_float()

`
	pineFooter = `
for i = 0 to array.size(dates) - 1
    date = array.get(dates, i)
    signal = array.get(signals, i)
    price = array.get(prices, i)

    if signal == 1
        label.new(bar_index, price, "Buy", style=label.style_label_up, color=color.green, textcolor=color.white, size=size.small)
    if signal == -1
        label.new(bar_index, price, "Sell", style=label.style_label_down, color=color.red, textcolor=color.white, size=size.small)
`
)

// WritePineScript 把成交记录转成 TradingView 图表标注脚本。
// buy 编码为 +1、sell 编码为 -1，时间用 timestamp() 字面量。
func WritePineScript(w io.Writer, trades []backtest.TradeRecord) error {
	var b strings.Builder
	b.WriteString(pineHeader)
	for _, t := range trades {
		signal := 1
		if t.Side == backtest.SideSell {
			signal = -1
		}
		fmt.Fprintf(&b, "array.push(dates, timestamp(%q))\n", t.Time.UTC().Format(csvTimeLayout))
		fmt.Fprintf(&b, "array.push(signals, %d)\n", signal)
		fmt.Fprintf(&b, "array.push(prices, %s)\n", formatAmount(t.Price))
	}
	b.WriteString(pineFooter)
	_, err := io.WriteString(w, b.String())
	return err
}

// GeneratePineFromCSV 读取 AppendTradesCSV 产出的文件并生成脚本，
// 与历史工具链的「CSV → Pine」流程保持一致。
func GeneratePineFromCSV(r io.Reader, w io.Writer) error {
	trades, err := ReadTradesCSV(r)
	if err != nil {
		return err
	}
	return WritePineScript(w, trades)
}
