package indicator

import "github.com/moznion/go-optional"

// rollingSMA computes a simple moving average over the given period.
// Rows before the window is full carry no value.
func rollingSMA(values []float64, period int) []optional.Option[float64] {
	out := make([]optional.Option[float64], len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	sum := 0.0

	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}

		if i >= period-1 {
			out[i] = optional.Some(sum / float64(period))
		}
	}

	return out
}

// rollingEMA computes an exponential moving average seeded with the SMA of
// the first period values, then applying the recursive form with
// alpha = 2/(period+1).
func rollingEMA(values []float64, period int) []optional.Option[float64] {
	out := make([]optional.Option[float64], len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}

	seed /= float64(period)

	alpha := 2.0 / float64(period+1)

	ema := seed
	out[period-1] = optional.Some(ema)

	for i := period; i < len(values); i++ {
		ema = (values[i] * alpha) + (ema * (1 - alpha))
		out[i] = optional.Some(ema)
	}

	return out
}
