package backtest

import "fmt"

// RiskAction 为权益风控的判定结果。
type RiskAction int

const (
	ActionContinue RiskAction = iota
	ActionForceClose
)

// RiskGuard 在回测开始时根据初始资金一次性固定盈亏边界，之后不再重算。
// 一旦触发即终态：后续任何权益值都维持 ForceClose。
type RiskGuard struct {
	minBalance float64
	maxBalance float64
	tripped    bool
}

// NewRiskGuard 计算 min=cash×(1−maxLoss)、max=cash×(1+maxProfit)。
func NewRiskGuard(initialCash, maxLoss, maxProfit float64) (*RiskGuard, error) {
	minBalance := initialCash * (1 - maxLoss)
	maxBalance := initialCash * (1 + maxProfit)
	if minBalance >= maxBalance {
		return nil, fmt.Errorf("backtest: risk bounds collapse (min %.2f >= max %.2f)", minBalance, maxBalance)
	}
	return &RiskGuard{minBalance: minBalance, maxBalance: maxBalance}, nil
}

// Check 对当前权益判定是否熔断；触及任一边界（含相等）即触发。
func (g *RiskGuard) Check(equity float64) RiskAction {
	if g.tripped {
		return ActionForceClose
	}
	if equity <= g.minBalance || equity >= g.maxBalance {
		g.tripped = true
		return ActionForceClose
	}
	return ActionContinue
}

// Tripped 返回是否已熔断。
func (g *RiskGuard) Tripped() bool { return g.tripped }

// Bounds 返回固定的盈亏边界。
func (g *RiskGuard) Bounds() (min, max float64) {
	return g.minBalance, g.maxBalance
}
