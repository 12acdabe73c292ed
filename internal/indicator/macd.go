package indicator

import "github.com/moznion/go-optional"

// rollingMACD computes the MACD line (fast EMA minus slow EMA), its signal
// line (EMA of the MACD line), and the histogram (MACD minus signal).
// Each column is undefined until its underlying EMAs are defined.
func rollingMACD(values []float64, fast, slow, signalPeriod int) (macd, signal, hist []optional.Option[float64]) {
	macd = make([]optional.Option[float64], len(values))
	signal = make([]optional.Option[float64], len(values))
	hist = make([]optional.Option[float64], len(values))

	fastEMA := rollingEMA(values, fast)
	slowEMA := rollingEMA(values, slow)

	// Collect the defined MACD values so the signal EMA can be seeded the
	// same way as a price EMA.
	macdValues := make([]float64, 0, len(values))
	macdOffset := -1

	for i := range values {
		if fastEMA[i].IsNone() || slowEMA[i].IsNone() {
			continue
		}

		v := fastEMA[i].Unwrap() - slowEMA[i].Unwrap()
		macd[i] = optional.Some(v)

		if macdOffset < 0 {
			macdOffset = i
		}

		macdValues = append(macdValues, v)
	}

	if macdOffset < 0 {
		return macd, signal, hist
	}

	signalEMA := rollingEMA(macdValues, signalPeriod)

	for j, v := range signalEMA {
		i := macdOffset + j
		if v.IsNone() {
			continue
		}

		signal[i] = v
		hist[i] = optional.Some(macd[i].Unwrap() - v.Unwrap())
	}

	return macd, signal, hist
}
