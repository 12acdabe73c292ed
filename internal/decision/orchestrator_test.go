package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxtech-lab/margin-emulator/internal/types"
)

// flatHistory returns enough constant-price bars for every indicator
// window; a flat market always aggregates to HOLD.
func flatHistory(n int) []types.MarketData {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	data := make([]types.MarketData, n)

	for i := range data {
		data[i] = types.MarketData{
			Symbol: "BTCUSDT",
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   100,
			High:   101,
			Low:    99,
			Close:  100,
			Volume: 10,
		}
	}

	return data
}

// risingHistory returns a gentle uptrend far from any band touch; it
// aggregates to HOLD with at most one vote.
func risingHistory(n int) []types.MarketData {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	data := make([]types.MarketData, n)

	for i := range data {
		c := 1000 + float64(i)
		data[i] = types.MarketData{
			Symbol: "BTCUSDT",
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 10,
		}
	}

	return data
}

func newTestOrchestrator(minConfidence, leverage int) (*Orchestrator, *time.Time) {
	o := NewOrchestrator("BTCUSDT", 0.5, minConfidence, leverage, nil)

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	o.SetClock(func() time.Time { return clock })

	return o, &clock
}

func TestLeverageAdjustsStrategy(t *testing.T) {
	plain := NewOrchestrator("BTCUSDT", 0.8, 60, 1, nil)
	assert.Equal(t, 60, plain.MinConfidence())
	assert.Equal(t, 0.8, plain.RiskTolerance())

	high := NewOrchestrator("BTCUSDT", 0.8, 60, 20, nil)
	assert.Equal(t, 62, high.MinConfidence())
	assert.Equal(t, 0.5, high.RiskTolerance())

	extreme := NewOrchestrator("BTCUSDT", 0.8, 60, 50, nil)
	assert.Equal(t, 65, extreme.MinConfidence())
	assert.Equal(t, 0.3, extreme.RiskTolerance())

	// An explicit floor above the adjustment wins.
	strict := NewOrchestrator("BTCUSDT", 0.8, 90, 20, nil)
	assert.Equal(t, 90, strict.MinConfidence())
}

func TestLeverageClamped(t *testing.T) {
	assert.Equal(t, 1, NewOrchestrator("BTCUSDT", 0.5, 60, 0, nil).Leverage())
	assert.Equal(t, 100, NewOrchestrator("BTCUSDT", 0.5, 60, 500, nil).Leverage())
}

func TestDecideNoData(t *testing.T) {
	o, _ := newTestOrchestrator(60, 1)

	decision := o.Decide(nil, nil, 10000)

	assert.Equal(t, types.ActionHold, decision.Action)
	assert.Equal(t, []string{"no market data available"}, decision.Reasons)
}

func TestDecideInsufficientConfidence(t *testing.T) {
	o, _ := newTestOrchestrator(60, 1)

	decision := o.Decide(flatHistory(60), nil, 10000)

	assert.Equal(t, types.ActionHold, decision.Action)
	require.NotEmpty(t, decision.Reasons)
	assert.Contains(t, decision.Reasons[0], "insufficient confidence")
}

func TestDecideCooldown(t *testing.T) {
	// A zero confidence floor lets the flat-market HOLD pass every gate
	// and start the cooldown.
	o, clock := newTestOrchestrator(0, 1)

	first := o.Decide(flatHistory(60), nil, 10000)
	assert.Equal(t, types.ActionHold, first.Action)

	*clock = clock.Add(30 * time.Second)

	second := o.Decide(flatHistory(60), nil, 10000)
	assert.Equal(t, types.ActionHold, second.Action)
	require.Len(t, second.Reasons, 1)
	assert.Contains(t, second.Reasons[0], "cooldown")
	assert.Contains(t, second.Reasons[0], "270s")

	// Past the cooldown a full pass runs again.
	*clock = clock.Add(DefaultCooldown)

	third := o.Decide(flatHistory(60), nil, 10000)
	assert.NotContains(t, third.Reasons[0], "cooldown")
}

func TestGatedDecisionsDoNotConsumeCooldown(t *testing.T) {
	o, clock := newTestOrchestrator(60, 1)

	// Confidence-gated HOLDs never start the cooldown, no matter how
	// often they run.
	for i := 0; i < 3; i++ {
		decision := o.Decide(flatHistory(60), nil, 10000)
		assert.Contains(t, decision.Reasons[0], "insufficient confidence")

		*clock = clock.Add(time.Second)
	}
}

func TestShouldTakeProfit(t *testing.T) {
	o, _ := newTestOrchestrator(60, 1)

	assert.True(t, o.ShouldTakeProfit(100, 110))
	assert.True(t, o.ShouldTakeProfit(100, 115))
	assert.False(t, o.ShouldTakeProfit(100, 109))
	assert.False(t, o.ShouldTakeProfit(0, 100))
}

func TestShouldStopLoss(t *testing.T) {
	o, _ := newTestOrchestrator(60, 1)

	assert.True(t, o.ShouldStopLoss(100, 95))
	assert.True(t, o.ShouldStopLoss(100, 90))
	assert.False(t, o.ShouldStopLoss(100, 96))
	assert.False(t, o.ShouldStopLoss(0, 100))
}

func TestEvaluatePosition(t *testing.T) {
	o, _ := newTestOrchestrator(60, 1)

	p := &types.Position{Symbol: "BTCUSDT", Amount: 2, EntryPrice: 100, Leverage: 1, MarginUsed: 200}
	history := flatHistory(60)

	won := o.EvaluatePosition(p, history, 112)
	assert.Equal(t, RecommendationTakeProfit, won.Recommendation)
	assert.InDelta(t, 24.0, won.ProfitLoss, 1e-9)
	assert.InDelta(t, 12.0, won.ProfitLossPercent, 1e-9)

	lost := o.EvaluatePosition(p, history, 94)
	assert.Equal(t, RecommendationStopLoss, lost.Recommendation)

	// A flat market pins RSI at 100 and touches the upper band, so the
	// signals suggest selling.
	sell := o.EvaluatePosition(p, history, 101)
	assert.Equal(t, RecommendationConsiderSell, sell.Recommendation)

	held := o.EvaluatePosition(p, risingHistory(60), 101)
	assert.Equal(t, RecommendationHold, held.Recommendation)
}

func TestStrategyDescription(t *testing.T) {
	plain, _ := newTestOrchestrator(60, 1)
	description := plain.StrategyDescription()

	assert.Contains(t, description, "BTCUSDT")
	assert.Contains(t, description, "Minimum confidence: 60%")
	assert.NotContains(t, description, "Leverage in use")

	leveraged, _ := newTestOrchestrator(60, 10)
	assert.Contains(t, leveraged.StrategyDescription(), "Leverage in use: 10x")
}
