package backtest

// Position 表示当前持仓；Size 为 0 即空仓。只做多，Size 恒 >= 0。
type Position struct {
	Size       float64 `json:"size"`
	EntryPrice float64 `json:"entry_price"`
}

// Account 为一次回测独占的资金账户，仅由执行模拟器修改。
type Account struct {
	Cash     float64  `json:"cash"`
	Position Position `json:"position"`
}

// NewAccount 以初始资金建立空仓账户。
func NewAccount(initialCash float64) *Account {
	return &Account{Cash: initialCash}
}

// Flat 判断是否空仓。
func (a *Account) Flat() bool {
	return a.Position.Size == 0
}

// Equity 返回现金加持仓按给定价格的市值。
func (a *Account) Equity(price float64) float64 {
	return a.Cash + a.Position.Size*price
}
