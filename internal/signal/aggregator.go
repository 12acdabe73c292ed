// Package signal turns an indicator-augmented series into a discrete
// trading vote tally. Aggregation is a pure function of the latest two
// rows; it holds no state between ticks.
package signal

import (
	"fmt"

	"github.com/rxtech-lab/margin-emulator/internal/indicator"
	"github.com/rxtech-lab/margin-emulator/internal/types"
)

// Thresholds for the individual indicator votes.
const (
	RSIOversold   = 30.0
	RSIOverbought = 70.0

	TrendStrengthThreshold = 0.7

	// MinVotesForAction is the minimum number of agreeing votes required
	// before an action is emitted. Single-vote and tied outcomes resolve
	// to HOLD.
	MinVotesForAction = 2

	confidencePerVote = 25
)

// Result is the outcome of one aggregation pass.
type Result struct {
	Action types.Action
	// Confidence is min(100, 25 x winning votes); 50 on a HOLD where votes
	// were considered, 0 when the series was too short to vote at all.
	Confidence int
	Votes      []types.Vote
	Reasons    []string
}

// Aggregate scans the latest two rows of the series and tallies one vote
// per indicator family. Cross-detection votes (moving average, MACD) fire
// only on the tick where the relation flips, not on sustained conditions.
func Aggregate(s indicator.Series) Result {
	current, ok := s.Last()
	if !ok {
		return insufficientData()
	}

	previous, ok := s.Previous()
	if !ok {
		return insufficientData()
	}

	votes := make([]types.Vote, 0, 5)

	if v, ok := movingAverageVote(current, previous); ok {
		votes = append(votes, v)
	}

	if v, ok := rsiVote(current); ok {
		votes = append(votes, v)
	}

	if v, ok := macdVote(current, previous); ok {
		votes = append(votes, v)
	}

	if v, ok := bollingerVote(current); ok {
		votes = append(votes, v)
	}

	if v, ok := trendVote(s); ok {
		votes = append(votes, v)
	}

	return tally(votes)
}

func insufficientData() Result {
	return Result{
		Action:     types.ActionHold,
		Confidence: 0,
		Votes:      nil,
		Reasons:    []string{"insufficient data"},
	}
}

// movingAverageVote fires on the tick where SMA10 crosses SMA20.
func movingAverageVote(current, previous indicator.Row) (types.Vote, bool) {
	if current.SMA10.IsNone() || current.SMA20.IsNone() ||
		previous.SMA10.IsNone() || previous.SMA20.IsNone() {
		return types.Vote{}, false
	}

	curShort, curMedium := current.SMA10.Unwrap(), current.SMA20.Unwrap()
	prevShort, prevMedium := previous.SMA10.Unwrap(), previous.SMA20.Unwrap()

	if curShort > curMedium && prevShort <= prevMedium {
		return types.Vote{
			Type:      types.VoteTypeBuy,
			Indicator: types.IndicatorTypeMA,
			Reason:    "bullish moving average cross (golden cross)",
		}, true
	}

	if curShort < curMedium && prevShort >= prevMedium {
		return types.Vote{
			Type:      types.VoteTypeSell,
			Indicator: types.IndicatorTypeMA,
			Reason:    "bearish moving average cross (death cross)",
		}, true
	}

	return types.Vote{}, false
}

func rsiVote(current indicator.Row) (types.Vote, bool) {
	if current.RSI.IsNone() {
		return types.Vote{}, false
	}

	rsi := current.RSI.Unwrap()

	if rsi < RSIOversold {
		return types.Vote{
			Type:      types.VoteTypeBuy,
			Indicator: types.IndicatorTypeRSI,
			Reason:    fmt.Sprintf("RSI oversold (%.2f)", rsi),
		}, true
	}

	if rsi > RSIOverbought {
		return types.Vote{
			Type:      types.VoteTypeSell,
			Indicator: types.IndicatorTypeRSI,
			Reason:    fmt.Sprintf("RSI overbought (%.2f)", rsi),
		}, true
	}

	return types.Vote{}, false
}

// macdVote fires on the tick where the MACD line crosses its signal line.
func macdVote(current, previous indicator.Row) (types.Vote, bool) {
	if current.MACD.IsNone() || current.MACDSignal.IsNone() ||
		previous.MACD.IsNone() || previous.MACDSignal.IsNone() {
		return types.Vote{}, false
	}

	curMACD, curSignal := current.MACD.Unwrap(), current.MACDSignal.Unwrap()
	prevMACD, prevSignal := previous.MACD.Unwrap(), previous.MACDSignal.Unwrap()

	if curMACD > curSignal && prevMACD <= prevSignal {
		return types.Vote{
			Type:      types.VoteTypeBuy,
			Indicator: types.IndicatorTypeMACD,
			Reason:    "bullish MACD cross",
		}, true
	}

	if curMACD < curSignal && prevMACD >= prevSignal {
		return types.Vote{
			Type:      types.VoteTypeSell,
			Indicator: types.IndicatorTypeMACD,
			Reason:    "bearish MACD cross",
		}, true
	}

	return types.Vote{}, false
}

func bollingerVote(current indicator.Row) (types.Vote, bool) {
	if current.BollingerUpper.IsNone() || current.BollingerLower.IsNone() {
		return types.Vote{}, false
	}

	price := current.Data.Close

	if price <= current.BollingerLower.Unwrap() {
		return types.Vote{
			Type:      types.VoteTypeBuy,
			Indicator: types.IndicatorTypeBollinger,
			Reason:    "price touched lower Bollinger band",
		}, true
	}

	if price >= current.BollingerUpper.Unwrap() {
		return types.Vote{
			Type:      types.VoteTypeSell,
			Indicator: types.IndicatorTypeBollinger,
			Reason:    "price touched upper Bollinger band",
		}, true
	}

	return types.Vote{}, false
}

func trendVote(s indicator.Series) (types.Vote, bool) {
	strength := indicator.TrendStrength(s)

	if strength > TrendStrengthThreshold {
		return types.Vote{
			Type:      types.VoteTypeBuy,
			Indicator: types.IndicatorTypeTrendStrength,
			Reason:    fmt.Sprintf("strong bullish trend (%.2f)", strength),
		}, true
	}

	if strength < -TrendStrengthThreshold {
		return types.Vote{
			Type:      types.VoteTypeSell,
			Indicator: types.IndicatorTypeTrendStrength,
			Reason:    fmt.Sprintf("strong bearish trend (%.2f)", strength),
		}, true
	}

	return types.Vote{}, false
}

// tally resolves the votes into an action. BUY wins only with a strict
// majority of at least MinVotesForAction buy votes; the sell rule is
// symmetric. Everything else, ties included, is HOLD.
func tally(votes []types.Vote) Result {
	buys := 0
	sells := 0
	reasons := make([]string, 0, len(votes))

	for _, v := range votes {
		switch v.Type {
		case types.VoteTypeBuy:
			buys++
		case types.VoteTypeSell:
			sells++
		}

		reasons = append(reasons, v.Reason)
	}

	action := types.ActionHold
	confidence := 50

	switch {
	case buys > sells && buys >= MinVotesForAction:
		action = types.ActionBuy
		confidence = voteConfidence(buys)
	case sells > buys && sells >= MinVotesForAction:
		action = types.ActionSell
		confidence = voteConfidence(sells)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "no clear signals")
	}

	return Result{
		Action:     action,
		Confidence: confidence,
		Votes:      votes,
		Reasons:    reasons,
	}
}

func voteConfidence(winningVotes int) int {
	confidence := winningVotes * confidencePerVote
	if confidence > 100 {
		return 100
	}

	return confidence
}
