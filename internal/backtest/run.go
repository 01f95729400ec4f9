package backtest

import (
	"time"

	"martlet/internal/config"
)

const (
	RunStatusPending = "pending"
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
)

// RunRequest 为一次回测提交。Profile 为空时使用基础策略参数。
type RunRequest struct {
	Symbol    string `json:"symbol" binding:"required"`
	Timeframe string `json:"timeframe" binding:"required"`
	StartTS   int64  `json:"start_ts" binding:"required"`
	EndTS     int64  `json:"end_ts" binding:"required"`
	Profile   string `json:"profile"`
}

// RunStats 汇总一次回测的收益与风控指标。
type RunStats struct {
	FinalEquity    float64 `json:"final_equity"`
	Profit         float64 `json:"profit"`
	ReturnPct      float64 `json:"return_pct"`
	WinRate        float64 `json:"win_rate"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	EquityPeak     float64 `json:"equity_peak"`
	EquityValley   float64 `json:"equity_valley"`
	Bars           int     `json:"bars"`
	SkippedBars    int     `json:"skipped_bars"`
	Trades         int     `json:"trades"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	HaltedByRisk   bool    `json:"halted_by_risk"`
}

// Run 表示一次已提交的回测任务及其当前状态。
type Run struct {
	ID        string                `json:"id"`
	Symbol    string                `json:"symbol"`
	Timeframe string                `json:"timeframe"`
	Profile   string                `json:"profile"`
	Status    string                `json:"status"`
	Message   string                `json:"message"`
	StartTS   int64                 `json:"start_ts"`
	EndTS     int64                 `json:"end_ts"`
	Params    config.StrategyParams `json:"params"`
	Stats     RunStats              `json:"stats"`
	Progress  int64                 `json:"progress"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
	DoneAt    *time.Time            `json:"done_at,omitempty"`
}

// EquityPoint 为资金曲线上的一个采样点（每根 K 线一个）。
type EquityPoint struct {
	TS     int64   `json:"ts"`
	Equity float64 `json:"equity"`
}
