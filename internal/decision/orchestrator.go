// Package decision composes the indicator engine, signal aggregator and
// position sizer into a single advisory decision per tick, subject to a
// cooldown between decisions. The orchestrator never touches the
// ledger; it only recommends, and the driver applies.
package decision

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/margin-emulator/internal/indicator"
	"github.com/rxtech-lab/margin-emulator/internal/logger"
	"github.com/rxtech-lab/margin-emulator/internal/signal"
	"github.com/rxtech-lab/margin-emulator/internal/sizing"
	"github.com/rxtech-lab/margin-emulator/internal/types"
)

const (
	// DefaultCooldown is the minimum wall-clock gap between two full
	// decision passes.
	DefaultCooldown = 300 * time.Second

	// TakeProfitPercent and StopLossPercent drive position evaluation
	// recommendations.
	TakeProfitPercent = 10.0
	StopLossPercent   = 5.0
)

// Orchestrator drives the per-tick decision flow for one symbol. With
// leverage above 1 the strategy turns more conservative: the minimum
// confidence rises with leverage and the risk tolerance is capped.
type Orchestrator struct {
	symbol        string
	riskTolerance float64
	minConfidence int
	leverage      int
	cooldown      time.Duration

	lastDecision time.Time

	log *logger.Logger
	now func() time.Time
}

// NewOrchestrator creates a decision orchestrator. Leverage is clamped
// to [1, 100]; risk and confidence parameters are then adjusted for it.
func NewOrchestrator(symbol string, riskTolerance float64, minConfidence, leverage int, log *logger.Logger) *Orchestrator {
	if leverage < 1 {
		leverage = 1
	}
	if leverage > 100 {
		leverage = 100
	}

	if leverage > 1 {
		adjusted := 60 + leverage/10
		if adjusted > minConfidence {
			minConfidence = adjusted
		}

		switch {
		case leverage >= 50 && riskTolerance > 0.3:
			riskTolerance = 0.3
		case leverage >= 20 && riskTolerance > 0.5:
			riskTolerance = 0.5
		}
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Orchestrator{
		symbol:        symbol,
		riskTolerance: riskTolerance,
		minConfidence: minConfidence,
		leverage:      leverage,
		cooldown:      DefaultCooldown,
		log:           log,
		now:           time.Now,
	}
}

// SetClock replaces the wall clock used for the cooldown. Tests use
// this to step time deterministically.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// SetCooldown overrides the minimum gap between decisions.
func (o *Orchestrator) SetCooldown(d time.Duration) {
	o.cooldown = d
}

// Symbol returns the symbol this orchestrator decides for.
func (o *Orchestrator) Symbol() string {
	return o.symbol
}

// Leverage returns the clamped leverage the orchestrator sizes with.
func (o *Orchestrator) Leverage() int {
	return o.leverage
}

// MinConfidence returns the leverage-adjusted confidence floor.
func (o *Orchestrator) MinConfidence() int {
	return o.minConfidence
}

// RiskTolerance returns the leverage-capped risk tolerance.
func (o *Orchestrator) RiskTolerance() float64 {
	return o.riskTolerance
}

// Decide produces an advisory decision from the price history, the
// current open position (nil if none) and the available balance.
//
// Empty history and low confidence both resolve to HOLD without
// consuming the cooldown; only a decision that passes every gate
// records a decision time.
func (o *Orchestrator) Decide(data []types.MarketData, position *types.Position, availableBalance float64) types.Decision {
	now := o.now()

	if !o.lastDecision.IsZero() {
		if since := now.Sub(o.lastDecision); since < o.cooldown {
			remaining := int((o.cooldown - since).Seconds())

			return holdDecision(0, fmt.Sprintf("waiting for cooldown (%ds remaining)", remaining))
		}
	}

	if len(data) == 0 {
		return holdDecision(0, "no market data available")
	}

	series := indicator.Compute(data)
	result := signal.Aggregate(series)
	price := data[len(data)-1].Close

	if result.Confidence < o.minConfidence {
		reasons := append([]string{
			fmt.Sprintf("insufficient confidence (%d%% < %d%%)", result.Confidence, o.minConfidence),
		}, result.Reasons...)

		return types.Decision{
			Action:     types.ActionHold,
			Price:      price,
			Confidence: result.Confidence,
			Leverage:   o.leverage,
			Reasons:    reasons,
		}
	}

	decision := types.Decision{
		Action:     result.Action,
		Price:      price,
		Confidence: result.Confidence,
		Leverage:   o.leverage,
		Reasons:    result.Reasons,
	}

	switch result.Action {
	case types.ActionBuy:
		o.sizeBuy(&decision, series, availableBalance, price)
	case types.ActionSell:
		if position != nil && position.Amount > 0 {
			o.sizeSell(&decision, position, price)
		} else {
			decision.Action = types.ActionHold
			decision.Reasons = append(decision.Reasons, "no position to sell")
		}
	default:
	}

	o.lastDecision = now

	o.log.Debug("decision made",
		zap.String("symbol", o.symbol),
		zap.String("action", string(decision.Action)),
		zap.Int("confidence", decision.Confidence),
		zap.Float64("amount", decision.Amount))

	return decision
}

func (o *Orchestrator) sizeBuy(decision *types.Decision, series indicator.Series, availableBalance, price float64) {
	order := sizing.CalculateBuy(availableBalance, price, decision.Confidence,
		o.riskTolerance, series.LastVolatility(), float64(o.leverage))

	if order.Amount <= 0 {
		decision.Action = types.ActionHold
		decision.Reasons = append(decision.Reasons, "invalid balance or price")

		return
	}

	decision.Amount = order.Amount
	decision.InvestmentPercent = order.Fraction * 100
}

func (o *Orchestrator) sizeSell(decision *types.Decision, position *types.Position, price float64) {
	amount := sizing.CalculateSell(position, price, decision.Confidence)
	profitPercent := position.ProfitLossPercent(price)

	decision.Amount = amount

	if profitPercent > 0 {
		decision.Reasons = append(decision.Reasons, fmt.Sprintf("current profit: %.2f%%", profitPercent))
	} else if profitPercent < 0 {
		decision.Reasons = append(decision.Reasons, fmt.Sprintf("current loss: %.2f%%", profitPercent))
	}

	if amount < position.Amount {
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("partial exit: %.0f%% of the position", amount/position.Amount*100))
	}
}

// Recommendation classifies an open position evaluation.
type Recommendation string

const (
	RecommendationHold         Recommendation = "HOLD"
	RecommendationTakeProfit   Recommendation = "TAKE_PROFIT"
	RecommendationStopLoss     Recommendation = "STOP_LOSS"
	RecommendationConsiderSell Recommendation = "CONSIDER_SELL"
)

// PositionEvaluation summarizes an open position against the current
// price and signal state.
type PositionEvaluation struct {
	EntryPrice        float64
	CurrentPrice      float64
	Amount            float64
	ProfitLoss        float64
	ProfitLossPercent float64
	Recommendation    Recommendation
	Reason            string
}

// ShouldTakeProfit reports whether the unrealized gain has reached the
// take-profit target.
func (o *Orchestrator) ShouldTakeProfit(entryPrice, currentPrice float64) bool {
	if entryPrice == 0 {
		return false
	}

	return (currentPrice-entryPrice)/entryPrice*100 >= TakeProfitPercent
}

// ShouldStopLoss reports whether the unrealized loss has reached the
// stop-loss threshold.
func (o *Orchestrator) ShouldStopLoss(entryPrice, currentPrice float64) bool {
	if entryPrice == 0 {
		return false
	}

	return (entryPrice-currentPrice)/entryPrice*100 >= StopLossPercent
}

// EvaluatePosition rates an open position: take profit and stop loss
// checks first, then the current signal state.
func (o *Orchestrator) EvaluatePosition(position *types.Position, data []types.MarketData, currentPrice float64) PositionEvaluation {
	eval := PositionEvaluation{
		EntryPrice:        position.EntryPrice,
		CurrentPrice:      currentPrice,
		Amount:            position.Amount,
		ProfitLoss:        position.ProfitLoss(currentPrice),
		ProfitLossPercent: position.ProfitLossPercent(currentPrice),
		Recommendation:    RecommendationHold,
	}

	switch {
	case o.ShouldTakeProfit(position.EntryPrice, currentPrice):
		eval.Recommendation = RecommendationTakeProfit
		eval.Reason = fmt.Sprintf("profit target reached (%.2f%%)", eval.ProfitLossPercent)
	case o.ShouldStopLoss(position.EntryPrice, currentPrice):
		eval.Recommendation = RecommendationStopLoss
		eval.Reason = fmt.Sprintf("stop loss triggered (loss: %.2f%%)", eval.ProfitLossPercent)
	case signal.Aggregate(indicator.Compute(data)).Action == types.ActionSell:
		eval.Recommendation = RecommendationConsiderSell
		eval.Reason = "technical signals suggest selling"
	default:
		eval.Reason = "hold position under current conditions"
	}

	return eval
}

// StrategyDescription renders a human-readable summary of the strategy
// parameters for the CLI.
func (o *Orchestrator) StrategyDescription() string {
	leverageInfo := ""
	if o.leverage > 1 {
		leverageInfo = fmt.Sprintf(`
5. Leverage:
   - Leverage in use: %dx
   - Amplifies gains and losses %dx
   - Margin required: 1/%d of position value
   - Confidence floor raised for high leverage
   - Liquidation when losses exceed 90%% of margin
`, o.leverage, o.leverage, o.leverage)
	}

	return fmt.Sprintf(`
Trading strategy for %s:

1. Technical analysis:
   - Moving averages (SMA 10, 20, 50)
   - RSI (Relative Strength Index)
   - MACD (Moving Average Convergence Divergence)
   - Bollinger Bands
   - Fibonacci levels

2. Risk management:
   - Risk tolerance: %.0f%%
   - Minimum confidence: %d%%
   - Stop loss: %.0f%%
   - Take profit: %.0f%%
   - Maximum investment per trade: 30%% of balance

3. Decision criteria:
   - At least 2 agreeing signals to act
   - Automatic volatility adjustment
   - %.0fs cooldown between decisions
   - Support and resistance analysis

4. Fibonacci based:
   - Key level identification
   - Potential reversal zones
   - Dynamic price targets
%s`, o.symbol, o.riskTolerance*100, o.minConfidence,
		StopLossPercent, TakeProfitPercent, o.cooldown.Seconds(), leverageInfo)
}

func holdDecision(confidence int, reason string) types.Decision {
	return types.Decision{
		Action:     types.ActionHold,
		Confidence: confidence,
		Reasons:    []string{reason},
	}
}
