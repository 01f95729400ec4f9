package indicator

// wilderRSI 为流式 Wilder RSI：前 period 个涨跌幅取简单平均做种子，
// 之后按 avg=(avg*(N-1)+当前值)/N 平滑。
type wilderRSI struct {
	period int

	prevClose float64
	hasPrev   bool

	deltas   int
	gainSum  float64
	lossSum  float64
	avgGain  float64
	avgLoss  float64
	seeded   bool
}

func newWilderRSI(period int) *wilderRSI {
	return &wilderRSI{period: period}
}

// update 吞入一个收盘价，返回当前 RSI 与是否已完成预热。
// 不足 period 个历史涨跌幅时 RSI 无定义。
func (r *wilderRSI) update(close float64) (float64, bool) {
	if !r.hasPrev {
		r.prevClose = close
		r.hasPrev = true
		return 0, false
	}
	delta := close - r.prevClose
	r.prevClose = close
	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}
	if !r.seeded {
		r.gainSum += gain
		r.lossSum += loss
		r.deltas++
		if r.deltas < r.period {
			return 0, false
		}
		r.avgGain = r.gainSum / float64(r.period)
		r.avgLoss = r.lossSum / float64(r.period)
		r.seeded = true
		return r.value(), true
	}
	n := float64(r.period)
	r.avgGain = (r.avgGain*(n-1) + gain) / n
	r.avgLoss = (r.avgLoss*(n-1) + loss) / n
	return r.value(), true
}

func (r *wilderRSI) value() float64 {
	// 全程无下跌时约定 RSI=100，避免除零。
	if r.avgLoss == 0 {
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}
