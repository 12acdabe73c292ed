// Package sizing converts a signal into a concrete order size. Buy sizing
// scales a base risk fraction by signal confidence, recent volatility and
// account leverage; sell sizing decides what fraction of an open position
// to unwind.
package sizing

import (
	"github.com/rxtech-lab/margin-emulator/internal/types"
)

// Risk fraction bounds. The final fraction of available balance committed
// to a single buy always lands inside this range.
const (
	MinPositionFraction = 0.05
	MaxPositionFraction = 0.30
)

// Volatility adjustment thresholds for the 20-period log-return stdev.
const (
	HighVolatility = 0.5
	LowVolatility  = 0.2

	highVolatilityScale = 0.7
	lowVolatilityScale  = 1.2
)

// Leverage dampening. High leverage multiplies both gains and losses, so
// the committed fraction shrinks as leverage grows.
const (
	extremeLeverage      = 50.0
	highLeverage         = 20.0
	extremeLeverageScale = 0.5
	highLeverageScale    = 0.7
)

// Sell sizing thresholds.
const (
	partialExitConfidence = 80
	hardStopLossPercent   = -5.0
)

// BuyOrder is the sized outcome of a buy decision.
type BuyOrder struct {
	// Margin is the cash reserved from available balance.
	Margin float64
	// Amount is the asset quantity, Margin x leverage / price.
	Amount float64
	// Fraction is the final fraction of available balance committed.
	Fraction float64
}

// CalculateBuy sizes a buy against the available balance.
//
// The base fraction is riskTolerance scaled by confidence, then adjusted
// for volatility and leverage, and finally clamped to
// [MinPositionFraction, MaxPositionFraction]. Returns a zero order when
// the inputs cannot produce a positive size.
func CalculateBuy(availableBalance, price float64, confidence int, riskTolerance, volatility, leverage float64) BuyOrder {
	if availableBalance <= 0 || price <= 0 || confidence <= 0 {
		return BuyOrder{}
	}

	if leverage < 1 {
		leverage = 1
	}

	fraction := riskTolerance * float64(confidence) / 100.0

	switch {
	case volatility > HighVolatility:
		fraction *= highVolatilityScale
	case volatility < LowVolatility:
		fraction *= lowVolatilityScale
	}

	switch {
	case leverage >= extremeLeverage:
		fraction *= extremeLeverageScale
	case leverage >= highLeverage:
		fraction *= highLeverageScale
	}

	if fraction < MinPositionFraction {
		fraction = MinPositionFraction
	}
	if fraction > MaxPositionFraction {
		fraction = MaxPositionFraction
	}

	margin := availableBalance * fraction
	amount := margin * leverage / price

	return BuyOrder{
		Margin:   margin,
		Amount:   amount,
		Fraction: fraction,
	}
}

// CalculateSell returns the quantity of an open position to sell.
//
// The default is a full exit. A profitable position paired with a weak
// sell signal exits half to let the rest run. A drawdown past the hard
// stop always exits in full regardless of confidence.
func CalculateSell(position *types.Position, price float64, confidence int) float64 {
	if position == nil || position.Amount <= 0 {
		return 0
	}

	profitPercent := position.ProfitLossPercent(price)

	if profitPercent < hardStopLossPercent {
		return position.Amount
	}

	if profitPercent > 0 && confidence < partialExitConfidence {
		return position.Amount * 0.5
	}

	return position.Amount
}
