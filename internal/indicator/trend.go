package indicator

type Trend string

const (
	TrendBullish Trend = "BULLISH"
	TrendBearish Trend = "BEARISH"
	TrendNeutral Trend = "NEUTRAL"
)

// CurrentTrend classifies the trend from the ordering of the close price
// and the short, medium, and long moving averages on the latest row.
// Requires the long window to be full; otherwise NEUTRAL.
func CurrentTrend(s Series) Trend {
	last, ok := s.Last()
	if !ok || last.SMA50.IsNone() {
		return TrendNeutral
	}

	closePrice := last.Data.Close
	sma10 := last.SMA10.Unwrap()
	sma20 := last.SMA20.Unwrap()
	sma50 := last.SMA50.Unwrap()

	if closePrice > sma10 && sma10 > sma20 && sma20 > sma50 {
		return TrendBullish
	}

	if closePrice < sma10 && sma10 < sma20 && sma20 < sma50 {
		return TrendBearish
	}

	return TrendNeutral
}

// SupportResistance returns the recent support and resistance levels,
// taken as the lowest low and highest high over the trailing 50 rows.
func SupportResistance(s Series) (support, resistance float64) {
	if len(s.Rows) == 0 {
		return 0, 0
	}

	rows := s.Rows
	if len(rows) > 50 {
		rows = rows[len(rows)-50:]
	}

	support = rows[0].Data.Low
	resistance = rows[0].Data.High

	for _, row := range rows[1:] {
		if row.Data.Low < support {
			support = row.Data.Low
		}

		if row.Data.High > resistance {
			resistance = row.Data.High
		}
	}

	return support, resistance
}
