package indicator

import "github.com/moznion/go-optional"

// rollingBollinger computes Bollinger Bands: the middle band is the SMA
// over the period, the upper and lower bands sit stdDev sample standard
// deviations above and below it.
func rollingBollinger(values []float64, period int, stdDev float64) (upper, middle, lower []optional.Option[float64]) {
	upper = make([]optional.Option[float64], len(values))
	lower = make([]optional.Option[float64], len(values))

	middle = rollingSMA(values, period)

	for i := range values {
		if middle[i].IsNone() {
			continue
		}

		sd := sampleStdDev(values[i-period+1 : i+1])
		mid := middle[i].Unwrap()
		upper[i] = optional.Some(mid + sd*stdDev)
		lower[i] = optional.Some(mid - sd*stdDev)
	}

	return upper, middle, lower
}
