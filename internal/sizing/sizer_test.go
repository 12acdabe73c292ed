package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxtech-lab/margin-emulator/internal/types"
)

func TestCalculateBuyBaseFraction(t *testing.T) {
	// risk 0.5 x confidence 50% = 0.25, no adjustments.
	order := CalculateBuy(10000, 100, 50, 0.5, 0.3, 1)

	assert.InDelta(t, 0.25, order.Fraction, 1e-9)
	assert.InDelta(t, 2500, order.Margin, 1e-9)
	assert.InDelta(t, 25, order.Amount, 1e-9)
}

func TestCalculateBuyLeverageScalesAmount(t *testing.T) {
	unleveraged := CalculateBuy(10000, 100, 50, 0.5, 0.3, 1)
	leveraged := CalculateBuy(10000, 100, 50, 0.5, 0.3, 10)

	// Same margin commitment controls ten times the quantity.
	assert.InDelta(t, unleveraged.Margin, leveraged.Margin, 1e-9)
	assert.InDelta(t, unleveraged.Amount*10, leveraged.Amount, 1e-9)
}

func TestCalculateBuyVolatilityAdjustments(t *testing.T) {
	base := CalculateBuy(10000, 100, 50, 0.5, 0.3, 1)

	damped := CalculateBuy(10000, 100, 50, 0.5, 0.6, 1)
	assert.InDelta(t, base.Fraction*0.7, damped.Fraction, 1e-9)

	boosted := CalculateBuy(10000, 100, 50, 0.5, 0.1, 1)
	assert.InDelta(t, 0.30, boosted.Fraction, 1e-9) // 0.25*1.2 clamped to the cap

	// Volatility 0 (series too short for the window) still counts as calm.
	unknown := CalculateBuy(10000, 100, 50, 0.5, 0, 1)
	assert.InDelta(t, 0.30, unknown.Fraction, 1e-9)
}

func TestCalculateBuyLeverageDampening(t *testing.T) {
	high := CalculateBuy(10000, 100, 50, 0.5, 0.3, 20)
	assert.InDelta(t, 0.25*0.7, high.Fraction, 1e-9)

	extreme := CalculateBuy(10000, 100, 50, 0.5, 0.3, 50)
	assert.InDelta(t, 0.25*0.5, extreme.Fraction, 1e-9)
}

func TestCalculateBuyFractionClamped(t *testing.T) {
	// Tiny base fraction rises to the floor.
	small := CalculateBuy(10000, 100, 5, 0.1, 0.3, 1)
	assert.InDelta(t, MinPositionFraction, small.Fraction, 1e-9)

	// Full risk and confidence hit the cap.
	large := CalculateBuy(10000, 100, 100, 1.0, 0.3, 1)
	assert.InDelta(t, MaxPositionFraction, large.Fraction, 1e-9)
}

func TestCalculateBuyInvalidInputs(t *testing.T) {
	assert.Zero(t, CalculateBuy(0, 100, 50, 0.5, 0.3, 1).Amount)
	assert.Zero(t, CalculateBuy(-100, 100, 50, 0.5, 0.3, 1).Amount)
	assert.Zero(t, CalculateBuy(10000, 0, 50, 0.5, 0.3, 1).Amount)
	assert.Zero(t, CalculateBuy(10000, 100, 0, 0.5, 0.3, 1).Amount)
}

func position(amount, entryPrice float64) *types.Position {
	return &types.Position{
		Symbol:     "BTCUSDT",
		Amount:     amount,
		EntryPrice: entryPrice,
		Leverage:   1,
		MarginUsed: amount * entryPrice,
	}
}

func TestCalculateSellDefaultFullExit(t *testing.T) {
	p := position(10, 100)

	// Losing position inside the hard stop: full exit.
	assert.InDelta(t, 10, CalculateSell(p, 98, 90), 1e-9)

	// Profitable with strong confidence: full exit.
	assert.InDelta(t, 10, CalculateSell(p, 105, 85), 1e-9)
}

func TestCalculateSellPartialProfit(t *testing.T) {
	p := position(10, 100)

	// Profitable but the signal is weak: take half.
	require.InDelta(t, 5, CalculateSell(p, 105, 70), 1e-9)
}

func TestCalculateSellHardStop(t *testing.T) {
	p := position(10, 100)

	// Past the hard stop the partial-profit rule never applies.
	assert.InDelta(t, 10, CalculateSell(p, 94, 10), 1e-9)
}

func TestCalculateSellNoPosition(t *testing.T) {
	assert.Zero(t, CalculateSell(nil, 100, 80))
	assert.Zero(t, CalculateSell(position(0, 100), 100, 80))
}
