// Package strategy 实现 RSI+MACD 的进出场信号判定。
// Evaluator 是纯函数式组件：同样的指标快照和持仓状态永远得到同样的信号。
package strategy

import (
	"fmt"

	"martlet/internal/indicator"
)

// Signal 为单根 K 线上的决策结果。
type Signal int

const (
	SignalHold Signal = iota
	SignalEnter
	SignalExit
)

func (s Signal) String() string {
	switch s {
	case SignalEnter:
		return "enter"
	case SignalExit:
		return "exit"
	default:
		return "hold"
	}
}

// PositionState 描述当前是否持仓；只做多，不建模空头。
type PositionState int

const (
	StateFlat PositionState = iota
	StateLong
)

// Evaluator 根据 RSI 阈值与 MACD 柱状图符号产生信号。
type Evaluator struct {
	oversold   float64
	overbought float64
}

// NewEvaluator 校验阈值后构造判定器。
func NewEvaluator(oversold, overbought float64) (*Evaluator, error) {
	if oversold <= 0 || overbought >= 100 || oversold >= overbought {
		return nil, fmt.Errorf("strategy: rsi 阈值非法（oversold=%.2f overbought=%.2f）", oversold, overbought)
	}
	return &Evaluator{oversold: oversold, overbought: overbought}, nil
}

// Evaluate 产生 Hold/Enter/Exit。预热期（snap 为 nil）一律 Hold；
// 已持仓时的 Enter 条件与空仓时的 Exit 条件都按无操作处理，不是错误。
func (e *Evaluator) Evaluate(snap *indicator.Snapshot, state PositionState) Signal {
	if snap == nil {
		return SignalHold
	}
	switch state {
	case StateFlat:
		if snap.RSI < e.oversold && snap.Histogram > 0 {
			return SignalEnter
		}
	case StateLong:
		if snap.RSI > e.overbought && snap.Histogram < 0 {
			return SignalExit
		}
	}
	return SignalHold
}
