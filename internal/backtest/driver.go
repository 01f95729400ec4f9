// Package backtest 实现单标的、按根 K 线推进的策略回测核心：
// 指标状态、信号判定、按风险比例定仓、账户级熔断、带手续费的成交模拟，
// 以及全部成交的确定性记录。
package backtest

import (
	"context"

	"martlet/internal/config"
	"martlet/internal/indicator"
	"martlet/internal/logger"
	"martlet/internal/market"
	"martlet/internal/strategy"
)

// DriverState 为回测循环的状态机：Running → Halted，不可逆。
type DriverState int

const (
	StateRunning DriverState = iota
	StateHalted
)

// SnapshotSource 抽象指标引擎，便于在测试里注入脚本化的快照序列。
type SnapshotSource interface {
	Update(c market.Candle) *indicator.Snapshot
}

// Driver 拥有整条回测循环和全部共享状态；组件之间不直接通信。
type Driver struct {
	params config.StrategyParams
	engine SnapshotSource
	eval   *strategy.Evaluator
	guard  *RiskGuard
	exec   *Executor
	acct   *Account
	log    *TradeLog

	state      DriverState
	posState   strategy.PositionState
	entryPrice float64

	// Progress 可选；每处理一根 K 线回调一次。
	Progress func(processed, total int)

	// Warmup 为序列头部仅用于指标预热的根数：喂给指标，不交易、不计入统计。
	Warmup int

	warmSeen int
}

// Result 为一次运行的全部产出。
type Result struct {
	Stats  RunStats      `json:"stats"`
	Trades []TradeRecord `json:"trades"`
	Curve  []EquityPoint `json:"curve"`
}

// NewDriver 校验参数并组装全部组件；每次运行都要新建 Driver，
// 避免指标平滑状态带入下一次运行。
func NewDriver(params config.StrategyParams) (*Driver, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	engine, err := indicator.NewEngine(indicator.Config{
		RSIPeriod:  params.RSIPeriod,
		MACDFast:   params.MACDShort,
		MACDSlow:   params.MACDLong,
		MACDSignal: params.MACDSignal,
	})
	if err != nil {
		return nil, err
	}
	return newDriver(params, engine)
}

// NewDriverWithEngine 与 NewDriver 相同，但使用外部指标源（测试用）。
func NewDriverWithEngine(params config.StrategyParams, engine SnapshotSource) (*Driver, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return newDriver(params, engine)
}

func newDriver(params config.StrategyParams, engine SnapshotSource) (*Driver, error) {
	eval, err := strategy.NewEvaluator(params.RSIOversold, params.RSIOverbought)
	if err != nil {
		return nil, err
	}
	guard, err := NewRiskGuard(params.InitialCash, params.MaxLoss, params.MaxProfit)
	if err != nil {
		return nil, err
	}
	return &Driver{
		params: params,
		engine: engine,
		eval:   eval,
		guard:  guard,
		exec:   NewExecutor(NewSizer(params.RiskPerTrade), params.CommissionRate),
		acct:   NewAccount(params.InitialCash),
		log:    NewTradeLog(),
	}, nil
}

// State 返回当前状态机状态。
func (d *Driver) State() DriverState { return d.state }

// Run 顺序消费一段 K 线。空序列是合法的零成交运行。
// ctx 取消在两根 K 线之间生效，不会留下处理到一半的状态。
func (d *Driver) Run(ctx context.Context, candles []market.Candle) Result {
	stats := RunStats{
		EquityPeak:   d.params.InitialCash,
		EquityValley: d.params.InitialCash,
	}
	curve := make([]EquityPoint, 0, len(candles))
	lastClose := 0.0

	for idx, c := range candles {
		if d.state != StateRunning {
			break
		}
		select {
		case <-ctx.Done():
			d.state = StateHalted
			logger.Infof("回测在第 %d/%d 根 K 线前被取消", idx+1, len(candles))
		default:
		}
		if d.state != StateRunning {
			break
		}
		if c.Close <= 0 {
			// 历史数据中的坏 tick：该根不参与指标和交易，报告后继续。
			stats.SkippedBars++
			logger.Warnf("跳过坏 tick：close=%.4f ts=%d", c.Close, c.OpenTime)
			continue
		}
		if d.warmSeen < d.Warmup {
			d.warmSeen++
			d.engine.Update(c)
			continue
		}
		lastClose = c.Close
		stats.Bars++

		snap := d.engine.Update(c)
		equity := d.acct.Equity(c.Close)
		if d.guard.Check(equity) == ActionForceClose {
			if rec := d.exec.ForceClose(c, d.acct); rec != nil {
				d.recordTrade(*rec, &stats)
			}
			d.posState = strategy.StateFlat
			d.state = StateHalted
			stats.HaltedByRisk = true
			d.trackEquity(&stats, &curve, c, d.acct.Equity(c.Close))
			logger.Infof("风控触发熔断：equity=%.2f，回测终止", equity)
			break
		}

		sig := d.eval.Evaluate(snap, d.posState)
		rec, err := d.exec.Apply(sig, c, d.acct)
		if err != nil {
			// Close>0 已在上面保证，这里只可能是防御性分支。
			stats.SkippedBars++
			logger.Warnf("成交模拟拒绝该根 K 线: %v", err)
		}
		if rec != nil {
			d.recordTrade(*rec, &stats)
		}

		d.trackEquity(&stats, &curve, c, d.acct.Equity(c.Close))
		if d.Progress != nil {
			d.Progress(idx+1, len(candles))
		}
	}

	if d.state == StateRunning {
		// 正常耗尽：不强平，持仓按最后收盘价计入最终权益。
		d.state = StateHalted
	}
	stats.FinalEquity = d.acct.Equity(lastClose)
	if len(candles) == 0 {
		stats.FinalEquity = d.params.InitialCash
	}
	stats.Profit = stats.FinalEquity - d.params.InitialCash
	if d.params.InitialCash > 0 {
		stats.ReturnPct = stats.Profit / d.params.InitialCash
	}
	closed := stats.Wins + stats.Losses
	if closed > 0 {
		stats.WinRate = float64(stats.Wins) / float64(closed)
	}
	return Result{Stats: stats, Trades: d.log.Export(), Curve: curve}
}

func (d *Driver) recordTrade(rec TradeRecord, stats *RunStats) {
	d.log.Record(rec)
	stats.Trades++
	switch rec.Side {
	case SideBuy:
		d.posState = strategy.StateLong
		d.entryPrice = rec.Price
	case SideSell:
		d.posState = strategy.StateFlat
		if rec.Price >= d.entryPrice {
			stats.Wins++
		} else {
			stats.Losses++
		}
		d.entryPrice = 0
	}
}

func (d *Driver) trackEquity(stats *RunStats, curve *[]EquityPoint, c market.Candle, equity float64) {
	if equity > stats.EquityPeak {
		stats.EquityPeak = equity
	}
	if equity < stats.EquityValley {
		stats.EquityValley = equity
	}
	if stats.EquityPeak > 0 {
		drawdown := (stats.EquityPeak - equity) / stats.EquityPeak
		if drawdown > stats.MaxDrawdownPct {
			stats.MaxDrawdownPct = drawdown
		}
	}
	*curve = append(*curve, EquityPoint{TS: c.CloseTime, Equity: equity})
}
