// Package account implements the margin ledger: cash balance, open
// positions, margin reservations, trade history and liquidation checks.
// It is the only component allowed to mutate balance or position state,
// and every mutating operation is all-or-nothing: a validation failure
// leaves the ledger untouched.
package account

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rxtech-lab/margin-emulator/internal/logger"
	"github.com/rxtech-lab/margin-emulator/internal/types"
	"github.com/rxtech-lab/margin-emulator/pkg/errors"
)

const (
	// MinLeverage and MaxLeverage bound the account-wide leverage cap.
	// Individual buys may still use any leverage in [1, cap].
	MinLeverage = 3
	MaxLeverage = 100

	// liquidationThreshold is the fraction of reserved margin a position
	// may lose before it is forcibly closed.
	liquidationThreshold = 0.90

	// amountEpsilon absorbs float drift when deciding whether a sell
	// empties a position.
	amountEpsilon = 1e-9
)

var validate = validator.New()

func clampLeverageCap(maxLeverage int) int {
	if maxLeverage < MinLeverage {
		return MinLeverage
	}

	if maxLeverage > MaxLeverage {
		return MaxLeverage
	}

	return maxLeverage
}

// Order is a validated buy or sell request.
type Order struct {
	Symbol   string  `validate:"required"`
	Amount   float64 `validate:"gt=0"`
	Price    float64 `validate:"gt=0"`
	Leverage int     `validate:"gte=1,lte=100"`
}

// Account is the process-wide ledger. Balance holds total cash capital,
// free and reserved alike; margin reservations are tracked on the
// positions and subtracted only when deriving the available balance.
//
// Account is not safe for concurrent use. The driver serializes all
// operations by construction: one decision/settlement cycle completes
// before the next begins.
type Account struct {
	initialBalance float64
	balance        float64
	commissionRate float64
	maxLeverage    int

	positions    map[string]*types.Position
	tradeHistory []types.Trade

	totalTrades         int
	winningTrades       int
	losingTrades        int
	totalLiquidations   int
	totalCommissionPaid float64

	log *logger.Logger
	now func() time.Time
}

// NewAccount creates a ledger with the given starting capital. The
// leverage cap is clamped to [MinLeverage, MaxLeverage].
func NewAccount(initialBalance, commissionRate float64, maxLeverage int, log *logger.Logger) *Account {
	maxLeverage = clampLeverageCap(maxLeverage)

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Account{
		initialBalance: initialBalance,
		balance:        initialBalance,
		commissionRate: commissionRate,
		maxLeverage:    maxLeverage,
		positions:      make(map[string]*types.Position),
		tradeHistory:   make([]types.Trade, 0),
		log:            log,
		now:            time.Now,
	}
}

// SetClock replaces the wall clock used to timestamp trades. Tests use
// this to make timestamps deterministic.
func (a *Account) SetClock(now func() time.Time) {
	a.now = now
}

// Balance returns the total cash capital, reserved margin included.
func (a *Account) Balance() float64 {
	return a.balance
}

// InitialBalance returns the starting capital.
func (a *Account) InitialBalance() float64 {
	return a.initialBalance
}

// CommissionRate returns the per-trade commission rate.
func (a *Account) CommissionRate() float64 {
	return a.commissionRate
}

// MaxLeverage returns the clamped account-wide leverage cap.
func (a *Account) MaxLeverage() int {
	return a.maxLeverage
}

// TotalMarginUsed sums the margin reserved by all open positions.
func (a *Account) TotalMarginUsed() float64 {
	total := decimal.Zero
	for _, p := range a.positions {
		total = total.Add(decimal.NewFromFloat(p.MarginUsed))
	}

	return total.InexactFloat64()
}

// AvailableBalance is balance minus reserved margin. It is the only
// quantity checked against new margin requirements and is always
// derived, never stored.
func (a *Account) AvailableBalance() float64 {
	return settle(a.balance, -a.TotalMarginUsed())
}

// Position returns the open position for a symbol, or nil if none.
func (a *Account) Position(symbol string) *types.Position {
	return a.positions[symbol]
}

// Positions returns a copy of all open positions keyed by symbol.
func (a *Account) Positions() map[string]types.Position {
	out := make(map[string]types.Position, len(a.positions))
	for symbol, p := range a.positions {
		out[symbol] = *p
	}

	return out
}

// Buy opens or increases a position. Leverage is clamped to
// [1, maxLeverage] and must match an existing position's leverage. The
// margin requirement plus commission must fit inside the available
// balance; otherwise the call fails with no state change.
func (a *Account) Buy(symbol string, amount, price float64, leverage int) (*types.Trade, error) {
	if leverage < 1 {
		leverage = 1
	}
	if leverage > a.maxLeverage {
		leverage = a.maxLeverage
	}

	order := Order{Symbol: symbol, Amount: amount, Price: price, Leverage: leverage}
	if err := validate.Struct(order); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidOrder, err, "invalid buy order for %s", symbol)
	}

	notional := amount * price
	marginRequired := notional / float64(leverage)
	commission := notional * a.commissionRate

	existing := a.positions[symbol]
	if existing != nil && existing.Leverage != leverage {
		return nil, errors.Newf(errors.ErrCodeLeverageConflict,
			"position %s is open at %dx, cannot add at %dx", symbol, existing.Leverage, leverage)
	}

	if required := settle(marginRequired, commission); required > a.AvailableBalance() {
		return nil, errors.Newf(errors.ErrCodeInsufficientFunds,
			"buy %s needs %.2f (margin %.2f + commission %.2f), available %.2f",
			symbol, required, marginRequired, commission, a.AvailableBalance())
	}

	// Commission is the only cash cost at open time. Margin is a
	// reservation against the balance, not a debit.
	a.balance = settle(a.balance, -commission)
	a.totalCommissionPaid = settle(a.totalCommissionPaid, commission)

	if existing != nil {
		oldNotional := existing.EntryPrice * existing.Amount
		newAmount := existing.Amount + amount
		existing.EntryPrice = (oldNotional + notional) / newAmount
		existing.Amount = newAmount
		existing.MarginUsed = settle(existing.MarginUsed, marginRequired)
	} else {
		a.positions[symbol] = &types.Position{
			Symbol:     symbol,
			Amount:     amount,
			EntryPrice: price,
			Leverage:   leverage,
			MarginUsed: marginRequired,
			EntryTime:  a.now(),
		}
	}

	tradeMargin := marginRequired
	if leverage > 1 {
		tradeMargin = settle(marginRequired, commission)
	}

	trade := types.Trade{
		ID:         uuid.NewString(),
		Side:       types.SideBuy,
		Symbol:     symbol,
		Amount:     amount,
		Price:      price,
		Commission: commission,
		Leverage:   leverage,
		MarginUsed: tradeMargin,
		Total:      settle(notional, commission),
		Timestamp:  a.now(),
	}

	a.tradeHistory = append(a.tradeHistory, trade)
	a.totalTrades++

	a.log.Info("buy executed",
		zap.String("symbol", symbol),
		zap.Float64("amount", amount),
		zap.Float64("price", price),
		zap.Int("leverage", leverage),
		zap.Float64("margin", marginRequired),
		zap.Float64("commission", commission),
		zap.Float64("available", a.AvailableBalance()))

	return &trade, nil
}

// Sell reduces or closes a position. Selling more than the position
// holds fails with InsufficientPosition; selling a symbol with no open
// position fails with NoPosition. Margin is released in proportion to
// the amount sold; the entry price of any remainder is unchanged.
func (a *Account) Sell(symbol string, amount, price float64) (*types.Trade, error) {
	position := a.positions[symbol]
	if position == nil {
		return nil, errors.Newf(errors.ErrCodeNoPosition, "no open position for %s", symbol)
	}

	order := Order{Symbol: symbol, Amount: amount, Price: price, Leverage: position.Leverage}
	if err := validate.Struct(order); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidOrder, err, "invalid sell order for %s", symbol)
	}

	if amount > position.Amount+amountEpsilon {
		return nil, errors.Newf(errors.ErrCodeInsufficientPosition,
			"sell %s wants %.8f, position holds %.8f", symbol, amount, position.Amount)
	}
	if amount > position.Amount {
		amount = position.Amount
	}

	saleValue := amount * price
	commission := saleValue * a.commissionRate
	profitLoss := (price - position.EntryPrice) * amount
	marginReleased := (amount / position.Amount) * position.MarginUsed

	// Released margin leaves the reservation and is free cash again; the
	// balance itself moves only by realized P&L and commission.
	a.balance = settle(a.balance, profitLoss, -commission)
	a.totalCommissionPaid = settle(a.totalCommissionPaid, commission)

	if amount >= position.Amount-amountEpsilon {
		delete(a.positions, symbol)
	} else {
		position.Amount -= amount
		position.MarginUsed = settle(position.MarginUsed, -marginReleased)
	}

	trade := types.Trade{
		ID:         uuid.NewString(),
		Side:       types.SideSell,
		Symbol:     symbol,
		Amount:     amount,
		Price:      price,
		Commission: commission,
		Leverage:   position.Leverage,
		MarginUsed: marginReleased,
		Total:      settle(saleValue, -commission),
		Timestamp:  a.now(),
	}

	a.tradeHistory = append(a.tradeHistory, trade)
	a.totalTrades++

	if profitLoss > 0 {
		a.winningTrades++
	} else {
		// Zero P&L counts as a loss. There is no neutral bucket.
		a.losingTrades++
	}

	a.log.Info("sell executed",
		zap.String("symbol", symbol),
		zap.Float64("amount", amount),
		zap.Float64("price", price),
		zap.Float64("profit_loss", profitLoss),
		zap.Float64("margin_released", marginReleased),
		zap.Float64("commission", commission),
		zap.Float64("available", a.AvailableBalance()))

	return &trade, nil
}

// CheckLiquidation forcibly closes the symbol's position if the current
// price has fallen to or below its liquidation price. The entire
// reserved margin is forfeited, regardless of how far price overshot
// the threshold. Unleveraged positions are never liquidated.
func (a *Account) CheckLiquidation(symbol string, currentPrice float64) (*types.Trade, bool) {
	position := a.positions[symbol]
	if position == nil || position.Leverage <= 1 {
		return nil, false
	}

	liquidationPrice := position.LiquidationPrice()
	if currentPrice > liquidationPrice {
		return nil, false
	}

	forfeited := position.MarginUsed

	a.balance = settle(a.balance, -forfeited)
	delete(a.positions, symbol)

	trade := types.Trade{
		ID:            uuid.NewString(),
		Side:          types.SideSell,
		Symbol:        symbol,
		Amount:        position.Amount,
		Price:         currentPrice,
		Commission:    0,
		Leverage:      position.Leverage,
		MarginUsed:    forfeited,
		Total:         position.Amount * currentPrice,
		IsLiquidation: true,
		Timestamp:     a.now(),
	}

	a.tradeHistory = append(a.tradeHistory, trade)
	a.totalLiquidations++
	a.losingTrades++

	a.log.Warn("position liquidated",
		zap.String("symbol", symbol),
		zap.Float64("price", currentPrice),
		zap.Float64("liquidation_price", liquidationPrice),
		zap.Float64("margin_forfeited", forfeited))

	return &trade, true
}

// CheckLiquidations runs the liquidation check for every symbol in the
// price map and returns the symbols that were liquidated. It must run
// before any new decision is applied on a tick.
func (a *Account) CheckLiquidations(currentPrices map[string]float64) []string {
	symbols := make([]string, 0, len(a.positions))
	for symbol := range a.positions {
		if _, ok := currentPrices[symbol]; ok {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)

	liquidated := make([]string, 0)
	for _, symbol := range symbols {
		if _, ok := a.CheckLiquidation(symbol, currentPrices[symbol]); ok {
			liquidated = append(liquidated, symbol)
		}
	}

	return liquidated
}

// TradeHistory returns trades matching the filter, oldest first. A zero
// filter returns the full history. Limit keeps only the most recent N
// of the filtered trades.
func (a *Account) TradeHistory(filter types.TradeFilter) []types.Trade {
	trades := make([]types.Trade, 0, len(a.tradeHistory))
	for _, t := range a.tradeHistory {
		if filter.Symbol != "" && t.Symbol != filter.Symbol {
			continue
		}
		if !filter.StartTime.IsZero() && t.Timestamp.Before(filter.StartTime) {
			continue
		}

		trades = append(trades, t)
	}

	if filter.Limit > 0 && len(trades) > filter.Limit {
		trades = trades[len(trades)-filter.Limit:]
	}

	return trades
}

// RealizedPnL is the cumulative realized profit and loss, liquidation
// forfeitures included. Derived from the balance so it never drifts
// from the settled cash.
func (a *Account) RealizedPnL() float64 {
	return settle(a.balance, -a.initialBalance, a.totalCommissionPaid)
}

// TotalValue is the balance plus unrealized P&L at the given prices:
// what the account would settle to if every position closed now, before
// closing commissions.
func (a *Account) TotalValue(currentPrices map[string]float64) float64 {
	return settle(a.balance, a.UnrealizedPnL(currentPrices))
}

// UnrealizedPnL sums the open positions' P&L at the given prices.
// Positions without a price contribute nothing.
func (a *Account) UnrealizedPnL(currentPrices map[string]float64) float64 {
	total := 0.0
	for symbol, p := range a.positions {
		if price, ok := currentPrices[symbol]; ok {
			total += p.ProfitLoss(price)
		}
	}

	return total
}

// Summary produces a point-in-time view of the ledger at the given
// prices.
func (a *Account) Summary(currentPrices map[string]float64) types.AccountSummary {
	unrealized := a.UnrealizedPnL(currentPrices)
	totalValue := a.TotalValue(currentPrices)

	totalReturn := 0.0
	if a.initialBalance > 0 {
		totalReturn = (totalValue - a.initialBalance) / a.initialBalance * 100
	}

	winRate := 0.0
	if closed := a.winningTrades + a.losingTrades; closed > 0 {
		winRate = float64(a.winningTrades) / float64(closed) * 100
	}

	return types.AccountSummary{
		Balance:             a.balance,
		InitialBalance:      a.initialBalance,
		AvailableBalance:    a.AvailableBalance(),
		MarginUsed:          a.TotalMarginUsed(),
		TotalValue:          totalValue,
		UnrealizedPnL:       unrealized,
		RealizedPnL:         a.RealizedPnL(),
		TotalReturn:         totalReturn,
		TotalTrades:         a.totalTrades,
		WinningTrades:       a.winningTrades,
		LosingTrades:        a.losingTrades,
		TotalLiquidations:   a.totalLiquidations,
		WinRate:             winRate,
		TotalCommissionPaid: a.totalCommissionPaid,
		OpenPositions:       len(a.positions),
	}
}

// Reset restores the ledger to its constructed state: initial balance,
// no positions, empty history, zeroed counters.
func (a *Account) Reset() {
	a.balance = a.initialBalance
	a.positions = make(map[string]*types.Position)
	a.tradeHistory = make([]types.Trade, 0)
	a.totalTrades = 0
	a.winningTrades = 0
	a.losingTrades = 0
	a.totalLiquidations = 0
	a.totalCommissionPaid = 0

	a.log.Info("account reset", zap.Float64("balance", a.balance))
}

// settle applies cash deltas to a base value using decimal arithmetic,
// returning a float. Keeps repeated small settlements from accumulating
// binary rounding drift in the balance.
func settle(base float64, deltas ...float64) float64 {
	d := decimal.NewFromFloat(base)
	for _, delta := range deltas {
		d = d.Add(decimal.NewFromFloat(delta))
	}

	return d.InexactFloat64()
}
