package indicator

// TrendStrength measures the strength of the current trend from the slope
// of the SMA20 column over its trailing window, normalized by the last
// value and clamped to [-1, 1]. Returns 0 when the series is too short or
// the window contains undefined values.
func TrendStrength(s Series) float64 {
	n := TrendStrengthPeriod
	if len(s.Rows) < n {
		return 0
	}

	window := make([]float64, 0, n)

	for _, row := range s.Rows[len(s.Rows)-n:] {
		if row.SMA20.IsNone() {
			return 0
		}

		window = append(window, row.SMA20.Unwrap())
	}

	slope := leastSquaresSlope(window)

	last := window[len(window)-1]
	if last == 0 {
		last = 1
	}

	normalized := (slope / last) * 100

	if normalized > 1 {
		return 1
	}

	if normalized < -1 {
		return -1
	}

	return normalized
}

// leastSquaresSlope fits a straight line through (i, values[i]) and
// returns its slope.
func leastSquaresSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64

	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}

	return (n*sumXY - sumX*sumY) / denom
}
