package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"martlet/internal/backtest"

	"github.com/shopspring/decimal"
)

// CSV 列顺序固定，生成 Pine Script 时按同样的列读取。
var csvHeader = []string{"Date", "Signal", "Price", "Size"}

const csvTimeLayout = "2006-01-02 15:04:05"

// AppendTradesCSV 以追加模式写入成交记录；仅当文件为空时写表头，
// 同一文件可以累积多次回测的结果。
func AppendTradesCSV(path string, trades []backtest.TradeRecord) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := writer.Write(csvHeader); err != nil {
			return err
		}
	}
	if err := writeTradeRows(writer, trades); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteTradesCSV 把成交记录（含表头）写到任意 Writer，供 HTTP 下载使用。
func WriteTradesCSV(w io.Writer, trades []backtest.TradeRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	if err := writeTradeRows(writer, trades); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func writeTradeRows(writer *csv.Writer, trades []backtest.TradeRecord) error {
	for _, t := range trades {
		row := []string{
			t.Time.UTC().Format(csvTimeLayout),
			string(t.Side),
			formatAmount(t.Price),
			formatAmount(t.Size),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// formatAmount 用 decimal 去掉二进制浮点的尾数噪声，最多保留 8 位小数。
func formatAmount(v float64) string {
	return decimal.NewFromFloat(v).Round(8).String()
}

// ReadTradesCSV 解析 AppendTradesCSV 写出的文件。
func ReadTradesCSV(r io.Reader) ([]backtest.TradeRecord, error) {
	reader := csv.NewReader(r)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	start := 0
	if strings.EqualFold(rows[0][0], csvHeader[0]) {
		start = 1
	}
	trades := make([]backtest.TradeRecord, 0, len(rows)-start)
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if len(row) < 4 {
			return nil, fmt.Errorf("csv 第 %d 行列数不足", i+1)
		}
		ts, err := time.ParseInLocation(csvTimeLayout, row[0], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("csv 第 %d 行时间非法: %w", i+1, err)
		}
		price, err := decimal.NewFromString(row[2])
		if err != nil {
			return nil, fmt.Errorf("csv 第 %d 行价格非法: %w", i+1, err)
		}
		size, err := decimal.NewFromString(row[3])
		if err != nil {
			return nil, fmt.Errorf("csv 第 %d 行数量非法: %w", i+1, err)
		}
		trades = append(trades, backtest.TradeRecord{
			Time:  ts,
			Side:  backtest.TradeSide(strings.ToLower(row[1])),
			Price: price.InexactFloat64(),
			Size:  size.InexactFloat64(),
		})
	}
	return trades, nil
}
