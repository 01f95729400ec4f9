package indicator

// ema 为流式指数移动平均：前 period 个值用简单平均做种子，
// 之后按 α=2/(N+1) 平滑。
type ema struct {
	period int
	alpha  float64

	seedSum   float64
	seedCount int
	value     float64
	ready     bool
}

func newEMA(period int) *ema {
	return &ema{
		period: period,
		alpha:  2.0 / (float64(period) + 1),
	}
}

// update 吞入一个值，返回当前 EMA 与是否已完成预热。
func (e *ema) update(v float64) (float64, bool) {
	if !e.ready {
		e.seedSum += v
		e.seedCount++
		if e.seedCount < e.period {
			return 0, false
		}
		e.value = e.seedSum / float64(e.period)
		e.ready = true
		return e.value, true
	}
	e.value = e.alpha*v + (1-e.alpha)*e.value
	return e.value, true
}
