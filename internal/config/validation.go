package config

import "fmt"

// validate 在任何回测开始前做一次性校验，失败即拒绝启动。
func validate(c *Config) error {
	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty when server.enabled")
	}
	if c.Backtest.DataDir == "" {
		return fmt.Errorf("backtest.data_dir cannot be empty")
	}
	if c.Backtest.ResultsDir == "" {
		return fmt.Errorf("backtest.results_dir cannot be empty")
	}
	return c.Strategy.Validate()
}

// Validate 检查策略参数的合法性（InvalidConfig 一类错误都在这里拦截）。
func (p StrategyParams) Validate() error {
	if p.RSIPeriod <= 0 {
		return fmt.Errorf("strategy.rsi_period must be > 0 (got %d)", p.RSIPeriod)
	}
	if p.MACDShort <= 0 || p.MACDLong <= 0 || p.MACDSignal <= 0 {
		return fmt.Errorf("strategy.macd periods must be > 0 (got %d/%d/%d)",
			p.MACDShort, p.MACDLong, p.MACDSignal)
	}
	if p.MACDShort >= p.MACDLong {
		return fmt.Errorf("strategy.macd_short must be below macd_long (got %d >= %d)",
			p.MACDShort, p.MACDLong)
	}
	if p.RSIOversold <= 0 || p.RSIOverbought >= 100 || p.RSIOversold >= p.RSIOverbought {
		return fmt.Errorf("strategy rsi thresholds invalid (oversold=%.2f overbought=%.2f)",
			p.RSIOversold, p.RSIOverbought)
	}
	if p.RiskPerTrade <= 0 || p.RiskPerTrade > 1 {
		return fmt.Errorf("strategy.risk_per_trade must be in (0,1] (got %.4f)", p.RiskPerTrade)
	}
	if p.MaxLoss <= 0 || p.MaxLoss > 1 {
		return fmt.Errorf("strategy.max_loss must be in (0,1] (got %.4f)", p.MaxLoss)
	}
	if p.MaxProfit <= 0 {
		return fmt.Errorf("strategy.max_profit must be > 0 (got %.4f)", p.MaxProfit)
	}
	if p.InitialCash <= 0 {
		return fmt.Errorf("strategy.initial_cash must be > 0 (got %.2f)", p.InitialCash)
	}
	if p.CommissionRate < 0 || p.CommissionRate >= 1 {
		return fmt.Errorf("strategy.commission_rate must be in [0,1) (got %.4f)", p.CommissionRate)
	}
	if p.MinBalance() >= p.MaxBalance() {
		return fmt.Errorf("strategy risk bounds collapse: min_balance %.2f >= max_balance %.2f",
			p.MinBalance(), p.MaxBalance())
	}
	return nil
}
