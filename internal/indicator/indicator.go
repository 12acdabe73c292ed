// Package indicator computes technical indicator columns over an OHLCV
// series. All computations are pure functions of the input series; rows
// where a rolling window is not yet full carry no value rather than zero,
// so callers can tell "indicator absent" apart from a legitimate zero.
package indicator

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/margin-emulator/internal/types"
)

// Default periods. These match the classic textbook settings and are the
// ones the signal aggregator expects.
const (
	SMAShortPeriod  = 10
	SMAMediumPeriod = 20
	SMALongPeriod   = 50
	EMAShortPeriod  = 10
	EMAMediumPeriod = 20

	RSIPeriod = 14

	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26
	MACDSignalPeriod = 9

	BollingerPeriod = 20
	BollingerStdDev = 2.0

	VolatilityPeriod = 20

	TrendStrengthPeriod = 20
)

// Row holds one market data bar together with its derived indicator
// columns. A None value means the indicator is undefined at this row.
type Row struct {
	Data types.MarketData

	SMA10 optional.Option[float64]
	SMA20 optional.Option[float64]
	SMA50 optional.Option[float64]
	EMA10 optional.Option[float64]
	EMA20 optional.Option[float64]

	RSI optional.Option[float64]

	MACD       optional.Option[float64]
	MACDSignal optional.Option[float64]
	MACDHist   optional.Option[float64]

	BollingerUpper  optional.Option[float64]
	BollingerMiddle optional.Option[float64]
	BollingerLower  optional.Option[float64]

	Volatility optional.Option[float64]
}

// Series is a time-ordered OHLCV series augmented with indicator columns.
type Series struct {
	Rows []Row
}

// Compute derives all indicator columns for the given series. An empty
// input produces an empty series, not an error.
func Compute(data []types.MarketData) Series {
	rows := make([]Row, len(data))

	closes := make([]float64, len(data))
	for i, d := range data {
		rows[i].Data = d
		closes[i] = d.Close
	}

	sma10 := rollingSMA(closes, SMAShortPeriod)
	sma20 := rollingSMA(closes, SMAMediumPeriod)
	sma50 := rollingSMA(closes, SMALongPeriod)
	ema10 := rollingEMA(closes, EMAShortPeriod)
	ema20 := rollingEMA(closes, EMAMediumPeriod)
	rsi := rollingRSI(closes, RSIPeriod)
	macd, macdSignal, macdHist := rollingMACD(closes, MACDFastPeriod, MACDSlowPeriod, MACDSignalPeriod)
	bbUpper, bbMiddle, bbLower := rollingBollinger(closes, BollingerPeriod, BollingerStdDev)
	volatility := rollingVolatility(closes, VolatilityPeriod)

	for i := range rows {
		rows[i].SMA10 = sma10[i]
		rows[i].SMA20 = sma20[i]
		rows[i].SMA50 = sma50[i]
		rows[i].EMA10 = ema10[i]
		rows[i].EMA20 = ema20[i]
		rows[i].RSI = rsi[i]
		rows[i].MACD = macd[i]
		rows[i].MACDSignal = macdSignal[i]
		rows[i].MACDHist = macdHist[i]
		rows[i].BollingerUpper = bbUpper[i]
		rows[i].BollingerMiddle = bbMiddle[i]
		rows[i].BollingerLower = bbLower[i]
		rows[i].Volatility = volatility[i]
	}

	return Series{Rows: rows}
}

// Len returns the number of rows in the series.
func (s Series) Len() int {
	return len(s.Rows)
}

// Last returns the most recent row.
func (s Series) Last() (Row, bool) {
	if len(s.Rows) == 0 {
		return Row{}, false
	}

	return s.Rows[len(s.Rows)-1], true
}

// Previous returns the row before the most recent one.
func (s Series) Previous() (Row, bool) {
	if len(s.Rows) < 2 {
		return Row{}, false
	}

	return s.Rows[len(s.Rows)-2], true
}

// LastVolatility returns the most recent defined volatility value, or 0
// when the series is too short for the window.
func (s Series) LastVolatility() float64 {
	last, ok := s.Last()
	if !ok {
		return 0
	}

	return last.Volatility.TakeOr(0)
}

// sampleStdDev computes the sample standard deviation (n-1 denominator)
// of the given values, matching pandas' rolling std default.
func sampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}

	mean /= float64(n)

	sumSq := 0.0

	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}

	return math.Sqrt(sumSq / float64(n-1))
}
