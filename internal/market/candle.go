package market

import (
	"errors"
	"fmt"
)

// Candle 表示一根已收盘的 K 线，时间为 Unix 毫秒。
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// ErrNoData 表示数据源返回了空序列。
var ErrNoData = errors.New("market: no candle data")

// ValidateSeries 校验一段 K 线可以用于回测：非空且按 open_time 严格递增。
// 单根 K 线内部的坏价格（close<=0）不在这里拦截，由回测循环按坏 tick 跳过。
func ValidateSeries(candles []Candle) error {
	if len(candles) == 0 {
		return ErrNoData
	}
	for i := 1; i < len(candles); i++ {
		if candles[i].OpenTime <= candles[i-1].OpenTime {
			return fmt.Errorf("market: candle series not strictly ordered at index %d (%d <= %d)",
				i, candles[i].OpenTime, candles[i-1].OpenTime)
		}
	}
	return nil
}
