package backtest

import (
	"time"

	"martlet/internal/market"
	"martlet/internal/strategy"
)

// Executor 把信号落到账户上：按当根收盘价成交，收取固定比例手续费。
// 账户状态只在这里被修改。
type Executor struct {
	sizer          *Sizer
	commissionRate float64
}

func NewExecutor(sizer *Sizer, commissionRate float64) *Executor {
	return &Executor{sizer: sizer, commissionRate: commissionRate}
}

// Apply 执行 Enter/Exit；Hold 或零仓位直接返回 nil。
// 现金不足以开出正仓位时按无操作处理，账户现金永不为负。
func (x *Executor) Apply(sig strategy.Signal, c market.Candle, acct *Account) (*TradeRecord, error) {
	switch sig {
	case strategy.SignalEnter:
		return x.open(c, acct)
	case strategy.SignalExit:
		return x.close(c, acct), nil
	default:
		return nil, nil
	}
}

func (x *Executor) open(c market.Candle, acct *Account) (*TradeRecord, error) {
	size, err := x.sizer.Size(acct.Cash, c.Close)
	if err != nil {
		return nil, err
	}
	cost := size * c.Close * (1 + x.commissionRate)
	if size <= 0 || cost > acct.Cash {
		return nil, nil
	}
	acct.Cash -= cost
	acct.Position = Position{Size: size, EntryPrice: c.Close}
	return &TradeRecord{
		Time:  time.UnixMilli(c.CloseTime).UTC(),
		Side:  SideBuy,
		Price: c.Close,
		Size:  size,
	}, nil
}

// close 全量平仓；不建模部分退出。空仓时返回 nil。
func (x *Executor) close(c market.Candle, acct *Account) *TradeRecord {
	if acct.Flat() {
		return nil
	}
	size := acct.Position.Size
	acct.Cash += size * c.Close * (1 - x.commissionRate)
	acct.Position = Position{}
	return &TradeRecord{
		Time:  time.UnixMilli(c.CloseTime).UTC(),
		Side:  SideSell,
		Price: c.Close,
		Size:  size,
	}
}

// ForceClose 由风控触发，无视当前信号全量平仓。
func (x *Executor) ForceClose(c market.Candle, acct *Account) *TradeRecord {
	return x.close(c, acct)
}
