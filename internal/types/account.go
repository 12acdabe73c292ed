package types

import "time"

// AccountSummary is a point-in-time view of the account keyed by fixed
// fields. Produced by the account engine; consumed by the reporter and
// the driver.
type AccountSummary struct {
	// Balance is the total cash capital, reserved margin included.
	Balance        float64 `json:"balance" yaml:"balance"`
	InitialBalance float64 `json:"initial_balance" yaml:"initial_balance"`
	// AvailableBalance is balance minus the margin reserved by open
	// positions; the only quantity checked against new margin requirements.
	AvailableBalance float64 `json:"available_balance" yaml:"available_balance"`
	MarginUsed       float64 `json:"margin_used" yaml:"margin_used"`
	// TotalValue is balance plus the market value of open positions in
	// excess of their entry notional (i.e. balance + unrealized P&L).
	TotalValue    float64 `json:"total_value" yaml:"total_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl" yaml:"unrealized_pnl"`
	RealizedPnL   float64 `json:"realized_pnl" yaml:"realized_pnl"`
	// TotalReturn is the total return over the initial balance in percent.
	TotalReturn         float64 `json:"total_return" yaml:"total_return"`
	TotalTrades         int     `json:"total_trades" yaml:"total_trades"`
	WinningTrades       int     `json:"winning_trades" yaml:"winning_trades"`
	LosingTrades        int     `json:"losing_trades" yaml:"losing_trades"`
	TotalLiquidations   int     `json:"total_liquidations" yaml:"total_liquidations"`
	WinRate             float64 `json:"win_rate" yaml:"win_rate"`
	TotalCommissionPaid float64 `json:"total_commission_paid" yaml:"total_commission_paid"`
	OpenPositions       int     `json:"open_positions" yaml:"open_positions"`
}

// TradeFilter is used to filter trades when querying trade history.
type TradeFilter struct {
	// Symbol filters trades by symbol (empty string means no filter)
	Symbol string `json:"symbol" yaml:"symbol"`
	// StartTime filters trades executed after this time (zero time means no filter)
	StartTime time.Time `json:"start_time" yaml:"start_time"`
	// Limit keeps only the most recent N trades (0 means no limit)
	Limit int `json:"limit" yaml:"limit"`
}
