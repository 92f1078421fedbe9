package domain

import (
	"github.com/shopspring/decimal"
)

// PerformanceMetrics is the engine's aggregate performance payload, including
// the open positions known to the engine at snapshot time.
type PerformanceMetrics struct {
	TotalTrades     int             `json:"total_trades"`
	WinningTrades   int             `json:"winning_trades"`
	LosingTrades    int             `json:"losing_trades"`
	TotalPnL        decimal.Decimal `json:"total_pnl"`
	LargestWin      decimal.Decimal `json:"largest_win"`
	LargestLoss     decimal.Decimal `json:"largest_loss"`
	AverageWin      decimal.Decimal `json:"average_win"`
	AverageLoss     decimal.Decimal `json:"average_loss"`
	WinRate         decimal.Decimal `json:"win_rate"`
	RiskRewardRatio decimal.Decimal `json:"risk_reward_ratio"`

	Positions map[string]Position `json:"positions"`
}

// Snapshot is the atomic triple fetched from the engine's snapshot endpoints.
// Partial snapshots are never constructed: any failed fetch discards the rest.
type Snapshot struct {
	Status      BotStatus
	Trades      []Trade
	Performance PerformanceMetrics
}
