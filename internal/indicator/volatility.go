package indicator

import (
	"math"

	"github.com/moznion/go-optional"
)

// rollingVolatility computes realized volatility: the rolling sample
// standard deviation of log returns over the period, scaled by the square
// root of the period. Undefined until period returns exist.
func rollingVolatility(values []float64, period int) []optional.Option[float64] {
	out := make([]optional.Option[float64], len(values))
	if period <= 0 || len(values) < period+1 {
		return out
	}

	returns := make([]float64, len(values))
	valid := make([]bool, len(values))

	for i := 1; i < len(values); i++ {
		if values[i] <= 0 || values[i-1] <= 0 {
			continue
		}

		returns[i] = math.Log(values[i] / values[i-1])
		valid[i] = true
	}

	scale := math.Sqrt(float64(period))

	for i := period; i < len(values); i++ {
		window := make([]float64, 0, period)

		for j := i - period + 1; j <= i; j++ {
			if !valid[j] {
				break
			}

			window = append(window, returns[j])
		}

		if len(window) < period {
			continue
		}

		out[i] = optional.Some(sampleStdDev(window) * scale)
	}

	return out
}
