package types

import "time"

// MarketData represents a single OHLCV bar for a symbol.
type MarketData struct {
	Symbol string    `json:"symbol" yaml:"symbol" csv:"symbol"`
	Time   time.Time `json:"time" yaml:"time" csv:"time"`
	Open   float64   `json:"open" yaml:"open" csv:"open"`
	High   float64   `json:"high" yaml:"high" csv:"high"`
	Low    float64   `json:"low" yaml:"low" csv:"low"`
	Close  float64   `json:"close" yaml:"close" csv:"close"`
	Volume float64   `json:"volume" yaml:"volume" csv:"volume"`
}
