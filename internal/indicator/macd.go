package indicator

// macdState 维护 MACD 三条线的流式状态：
// macd = EMA(close, fast) − EMA(close, slow)，signal = EMA(macd, signalPeriod)。
type macdState struct {
	fast   *ema
	slow   *ema
	signal *ema
}

func newMACD(fast, slow, signal int) *macdState {
	return &macdState{
		fast:   newEMA(fast),
		slow:   newEMA(slow),
		signal: newEMA(signal),
	}
}

// update 吞入一个收盘价，signal 线就绪前返回 ok=false。
func (m *macdState) update(close float64) (macdLine, signalLine, hist float64, ok bool) {
	fastVal, fastOK := m.fast.update(close)
	slowVal, slowOK := m.slow.update(close)
	if !fastOK || !slowOK {
		return 0, 0, 0, false
	}
	macdLine = fastVal - slowVal
	signalLine, sigOK := m.signal.update(macdLine)
	if !sigOK {
		return 0, 0, 0, false
	}
	return macdLine, signalLine, macdLine - signalLine, true
}
