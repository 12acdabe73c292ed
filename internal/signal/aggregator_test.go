package signal

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxtech-lab/margin-emulator/internal/indicator"
	"github.com/rxtech-lab/margin-emulator/internal/types"
)

func some(v float64) optional.Option[float64] {
	return optional.Some(v)
}

// series builds a two-row series from a previous and a current row.
// Short series keep the trend-strength vote out of the tally.
func series(previous, current indicator.Row) indicator.Series {
	return indicator.Series{Rows: []indicator.Row{previous, current}}
}

func TestAggregateInsufficientData(t *testing.T) {
	result := Aggregate(indicator.Series{})

	assert.Equal(t, types.ActionHold, result.Action)
	assert.Equal(t, 0, result.Confidence)
	assert.Equal(t, []string{"insufficient data"}, result.Reasons)

	single := indicator.Series{Rows: []indicator.Row{{}}}
	result = Aggregate(single)
	assert.Equal(t, types.ActionHold, result.Action)
	assert.Equal(t, 0, result.Confidence)
}

func TestAggregateNoSignals(t *testing.T) {
	// Defined but unremarkable indicators produce no votes.
	row := indicator.Row{
		SMA10: some(100),
		SMA20: some(100),
		RSI:   some(50),
	}
	row.Data.Close = 100

	result := Aggregate(series(row, row))

	assert.Equal(t, types.ActionHold, result.Action)
	assert.Equal(t, 50, result.Confidence)
	assert.Empty(t, result.Votes)
	assert.Equal(t, []string{"no clear signals"}, result.Reasons)
}

func TestGoldenCrossFiresOnlyOnCrossingTick(t *testing.T) {
	below := indicator.Row{SMA10: some(99), SMA20: some(100)}
	above := indicator.Row{SMA10: some(101), SMA20: some(100)}

	vote, ok := movingAverageVote(above, below)
	require.True(t, ok)
	assert.Equal(t, types.VoteTypeBuy, vote.Type)
	assert.Equal(t, types.IndicatorTypeMA, vote.Indicator)

	// Sustained condition: still above, no new cross.
	_, ok = movingAverageVote(above, above)
	assert.False(t, ok)

	// Death cross.
	vote, ok = movingAverageVote(below, above)
	require.True(t, ok)
	assert.Equal(t, types.VoteTypeSell, vote.Type)
}

func TestMACDCrossFiresOnlyOnCrossingTick(t *testing.T) {
	below := indicator.Row{MACD: some(-1), MACDSignal: some(0)}
	above := indicator.Row{MACD: some(1), MACDSignal: some(0)}

	vote, ok := macdVote(above, below)
	require.True(t, ok)
	assert.Equal(t, types.VoteTypeBuy, vote.Type)

	_, ok = macdVote(above, above)
	assert.False(t, ok)

	vote, ok = macdVote(below, above)
	require.True(t, ok)
	assert.Equal(t, types.VoteTypeSell, vote.Type)
}

func TestRSIVoteThresholds(t *testing.T) {
	vote, ok := rsiVote(indicator.Row{RSI: some(25)})
	require.True(t, ok)
	assert.Equal(t, types.VoteTypeBuy, vote.Type)

	vote, ok = rsiVote(indicator.Row{RSI: some(75)})
	require.True(t, ok)
	assert.Equal(t, types.VoteTypeSell, vote.Type)

	// The thresholds themselves do not vote.
	_, ok = rsiVote(indicator.Row{RSI: some(30)})
	assert.False(t, ok)

	_, ok = rsiVote(indicator.Row{RSI: some(70)})
	assert.False(t, ok)

	_, ok = rsiVote(indicator.Row{})
	assert.False(t, ok)
}

func TestBollingerVoteBandTouches(t *testing.T) {
	row := indicator.Row{BollingerUpper: some(110), BollingerLower: some(90)}

	row.Data.Close = 90
	vote, ok := bollingerVote(row)
	require.True(t, ok)
	assert.Equal(t, types.VoteTypeBuy, vote.Type)

	row.Data.Close = 110
	vote, ok = bollingerVote(row)
	require.True(t, ok)
	assert.Equal(t, types.VoteTypeSell, vote.Type)

	row.Data.Close = 100
	_, ok = bollingerVote(row)
	assert.False(t, ok)
}

func TestAggregateTwoBuyVotes(t *testing.T) {
	previous := indicator.Row{SMA10: some(99), SMA20: some(100), RSI: some(40)}
	current := indicator.Row{SMA10: some(101), SMA20: some(100), RSI: some(25)}

	result := Aggregate(series(previous, current))

	assert.Equal(t, types.ActionBuy, result.Action)
	assert.Equal(t, 50, result.Confidence)
	assert.Len(t, result.Votes, 2)
	assert.Len(t, result.Reasons, 2)
}

func TestAggregateSingleVoteHolds(t *testing.T) {
	current := indicator.Row{RSI: some(25)}

	result := Aggregate(series(indicator.Row{}, current))

	assert.Equal(t, types.ActionHold, result.Action)
	assert.Equal(t, 50, result.Confidence)
	assert.Len(t, result.Votes, 1)
}

func TestAggregateTieHolds(t *testing.T) {
	// One buy vote (RSI oversold) against one sell vote (upper band
	// touch).
	current := indicator.Row{
		RSI:            some(25),
		BollingerUpper: some(110),
		BollingerLower: some(90),
	}
	current.Data.Close = 110

	result := Aggregate(series(indicator.Row{}, current))

	assert.Equal(t, types.ActionHold, result.Action)
	assert.Len(t, result.Votes, 2)
}

func TestAggregateSellMajority(t *testing.T) {
	previous := indicator.Row{MACD: some(1), MACDSignal: some(0)}
	current := indicator.Row{
		MACD:           some(-1),
		MACDSignal:     some(0),
		RSI:            some(75),
		BollingerUpper: some(110),
		BollingerLower: some(90),
	}
	current.Data.Close = 110

	result := Aggregate(series(previous, current))

	assert.Equal(t, types.ActionSell, result.Action)
	assert.Equal(t, 75, result.Confidence)
	assert.Len(t, result.Votes, 3)
}

func TestConfidenceCappedAtHundred(t *testing.T) {
	assert.Equal(t, 100, voteConfidence(5))
	assert.Equal(t, 75, voteConfidence(3))
	assert.Equal(t, 50, voteConfidence(2))
}
