package indicator

import "github.com/rxtech-lab/margin-emulator/internal/types"

// Fibonacci level keys as they appear in snapshots and reports.
const (
	FibLevelHigh = "high"
	FibLevelLow  = "low"
)

// FibonacciLevels computes the standard retracement and extension levels
// from the period high and low of the series. Retracements step down from
// the high by 23.6% through 78.6% of the range; the 1.272 and 1.618
// extensions project above the high. An empty series yields an empty map.
func FibonacciLevels(data []types.MarketData) map[string]float64 {
	if len(data) == 0 {
		return map[string]float64{}
	}

	high := data[0].High
	low := data[0].Low

	for _, d := range data[1:] {
		if d.High > high {
			high = d.High
		}

		if d.Low < low {
			low = d.Low
		}
	}

	diff := high - low

	return map[string]float64{
		FibLevelHigh:      high,
		"fibonacci_0.236": high - (diff * 0.236),
		"fibonacci_0.382": high - (diff * 0.382),
		"fibonacci_0.500": high - (diff * 0.500),
		"fibonacci_0.618": high - (diff * 0.618),
		"fibonacci_0.786": high - (diff * 0.786),
		FibLevelLow:       low,
		"fibonacci_1.272": high + (diff * 0.272),
		"fibonacci_1.618": high + (diff * 0.618),
	}
}
