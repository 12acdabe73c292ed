package types

import "time"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is an immutable, append-only record of one executed operation.
// It is created only by the account engine on a successful buy, sell, or
// liquidation and never mutated afterwards.
type Trade struct {
	ID     string  `json:"id" yaml:"id" csv:"id"`
	Side   Side    `json:"trade_type" yaml:"trade_type" csv:"trade_type"`
	Symbol string  `json:"symbol" yaml:"symbol" csv:"symbol"`
	Amount float64 `json:"amount" yaml:"amount" csv:"amount"`
	Price  float64 `json:"price" yaml:"price" csv:"price"`
	// Commission is the fee charged for this trade in cash units.
	Commission float64 `json:"commission" yaml:"commission" csv:"commission"`
	Leverage   int     `json:"leverage" yaml:"leverage" csv:"leverage"`
	// MarginUsed is the capital reserved for the traded notional,
	// commission included for leveraged entries.
	MarginUsed float64 `json:"margin_used" yaml:"margin_used" csv:"margin_used"`
	// Total is the signed cash effect of the trade: amount*price with the
	// commission added for buys and subtracted for sells.
	Total         float64   `json:"total" yaml:"total" csv:"total"`
	IsLiquidation bool      `json:"is_liquidation" yaml:"is_liquidation" csv:"is_liquidation"`
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp" csv:"timestamp"`
}

// Position represents the current holdings of a symbol. One position per
// symbol; a position with zero amount is removed from the account rather
// than kept around.
type Position struct {
	Symbol string  `json:"symbol" yaml:"symbol" csv:"symbol"`
	Amount float64 `json:"amount" yaml:"amount" csv:"amount"`
	// EntryPrice is the notional-weighted average entry price across all
	// buys that built up this position.
	EntryPrice float64 `json:"entry_price" yaml:"entry_price" csv:"entry_price"`
	// Leverage is fixed for the life of the position.
	Leverage int `json:"leverage" yaml:"leverage" csv:"leverage"`
	// MarginUsed is the capital reserved against this position. Forfeited
	// in full on liquidation.
	MarginUsed float64   `json:"margin_used" yaml:"margin_used" csv:"margin_used"`
	EntryTime  time.Time `json:"entry_time" yaml:"entry_time" csv:"entry_time"`
}

// Value returns the current notional value of the position.
func (p *Position) Value(currentPrice float64) float64 {
	return p.Amount * currentPrice
}

// ProfitLoss returns the unrealized profit or loss at the given price.
// Leverage amplifies P&L implicitly because the amount is leverage-scaled.
func (p *Position) ProfitLoss(currentPrice float64) float64 {
	return (currentPrice - p.EntryPrice) * p.Amount
}

// ProfitLossPercent returns the unrealized P&L as a percentage of the
// entry price.
func (p *Position) ProfitLossPercent(currentPrice float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}

	return ((currentPrice - p.EntryPrice) / p.EntryPrice) * 100
}

// LiquidationPrice returns the price at which the position is forcibly
// closed, defined as the price where losses consume 90% of the reserved
// margin. Returns 0 for unleveraged positions, which are never liquidated.
func (p *Position) LiquidationPrice() float64 {
	if p.Leverage <= 1 || p.Amount == 0 {
		return 0
	}

	price := p.EntryPrice - (0.90*p.MarginUsed)/p.Amount
	if price < 0 {
		return 0
	}

	return price
}
