package indicator

import "github.com/moznion/go-optional"

// rollingRSI computes the Relative Strength Index using rolling averages
// of gains and losses over the period. The first row has no delta and
// contributes zero gain and loss, so the first RSI lands at index
// period-1. A zero average loss yields RSI = 100 rather than a division
// error.
func rollingRSI(values []float64, period int) []optional.Option[float64] {
	out := make([]optional.Option[float64], len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	gains := make([]float64, len(values))
	losses := make([]float64, len(values))

	for i := 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	gainSum := 0.0
	lossSum := 0.0

	for i := 0; i < len(values); i++ {
		gainSum += gains[i]
		lossSum += losses[i]

		if i >= period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}

		if i < period-1 {
			continue
		}

		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)

		if avgLoss == 0 {
			out[i] = optional.Some(100.0)

			continue
		}

		rs := avgGain / avgLoss
		out[i] = optional.Some(100 - (100 / (1 + rs)))
	}

	return out
}
