package backtest

import "time"

// TradeSide 与导出 CSV 的 Signal 列取值一致。
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// TradeRecord 为一次成交的不可变记录，只由执行模拟器创建。
type TradeRecord struct {
	Time  time.Time `json:"time"`
	Side  TradeSide `json:"side"`
	Price float64   `json:"price"`
	Size  float64   `json:"size"`
}

// TradeLog 按产生顺序追加成交记录；记录一经写入不再修改或删除。
type TradeLog struct {
	records []TradeRecord
}

func NewTradeLog() *TradeLog {
	return &TradeLog{}
}

// Record 追加一条记录。
func (l *TradeLog) Record(r TradeRecord) {
	l.records = append(l.records, r)
}

// Len 返回已记录条数。
func (l *TradeLog) Len() int { return len(l.records) }

// Export 返回记录顺序的稳定快照；之后的追加不影响已导出的切片。
func (l *TradeLog) Export() []TradeRecord {
	out := make([]TradeRecord, len(l.records))
	copy(out, l.records)
	return out
}
