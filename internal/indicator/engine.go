// Package indicator 实现回测核心使用的流式技术指标。
// Engine 按根吞入 K 线，预热完成前不产出快照；一次回测对应一个新实例，
// 不提供 Reset，避免平滑状态被带入下一次运行。
package indicator

import (
	"fmt"

	"martlet/internal/market"
)

// Snapshot 为某根 K 线收盘后的指标值，预热期间不存在。
type Snapshot struct {
	RSI        float64 `json:"rsi"`
	MACDLine   float64 `json:"macd_line"`
	SignalLine float64 `json:"signal_line"`
	Histogram  float64 `json:"histogram"`
}

// Config 描述指标周期参数。
type Config struct {
	RSIPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
}

// Engine 维护单一标的的 RSI + MACD 状态。
type Engine struct {
	rsi  *wilderRSI
	macd *macdState
}

// NewEngine 校验周期并构造引擎。
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.RSIPeriod <= 0 {
		return nil, fmt.Errorf("indicator: rsi period 必须 > 0，当前 %d", cfg.RSIPeriod)
	}
	if cfg.MACDFast <= 0 || cfg.MACDSlow <= 0 || cfg.MACDSignal <= 0 {
		return nil, fmt.Errorf("indicator: macd 周期必须 > 0，当前 %d/%d/%d",
			cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	}
	if cfg.MACDFast >= cfg.MACDSlow {
		return nil, fmt.Errorf("indicator: macd 短周期需小于长周期（%d >= %d）",
			cfg.MACDFast, cfg.MACDSlow)
	}
	return &Engine{
		rsi:  newWilderRSI(cfg.RSIPeriod),
		macd: newMACD(cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal),
	}, nil
}

// Update 吞入一根 K 线；所有指标都就绪后返回快照，否则返回 nil。
func (e *Engine) Update(c market.Candle) *Snapshot {
	rsiVal, rsiOK := e.rsi.update(c.Close)
	macdLine, signalLine, hist, macdOK := e.macd.update(c.Close)
	if !rsiOK || !macdOK {
		return nil
	}
	return &Snapshot{
		RSI:        rsiVal,
		MACDLine:   macdLine,
		SignalLine: signalLine,
		Histogram:  hist,
	}
}
