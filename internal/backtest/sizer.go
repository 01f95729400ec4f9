package backtest

import "errors"

// ErrInvalidPrice 表示坏价格（close <= 0）到达了仓位计算，
// 调用方应将该根 K 线按 Hold 跳过而不是终止回测。
var ErrInvalidPrice = errors.New("backtest: invalid price")

// Sizer 按风险比例把现金换算为仓位大小；不取整到最小交易单位，
// 建模的是连续仓位而非交易所手数规则。
type Sizer struct {
	riskPerTrade float64
}

func NewSizer(riskPerTrade float64) *Sizer {
	return &Sizer{riskPerTrade: riskPerTrade}
}

// Size 返回 cash×risk/price；现金耗尽时返回 0（不开仓，不是错误）。
func (s *Sizer) Size(cash, price float64) (float64, error) {
	if price <= 0 {
		return 0, ErrInvalidPrice
	}
	if cash <= 0 {
		return 0, nil
	}
	return cash * s.riskPerTrade / price, nil
}
