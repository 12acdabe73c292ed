// Package market fetches prices and OHLCV history for a symbol. The
// decision layer treats any failure here as "no data", never as fatal.
package market

import (
	"context"
	"time"

	"github.com/rxtech-lab/margin-emulator/internal/types"
)

// Provider supplies the current price and historical candles for a
// symbol. Implementations may be slow or unreliable; callers pass a
// context and treat errors or empty results as a skipped tick.
type Provider interface {
	// CurrentPrice returns the latest traded price for the symbol.
	CurrentPrice(ctx context.Context, symbol string) (float64, error)

	// History returns candles covering the trailing period at the given
	// interval (e.g. "1m", "1h", "1d"), oldest first. An empty slice with
	// a nil error means the venue had no data for the range.
	History(ctx context.Context, symbol string, period time.Duration, interval string) ([]types.MarketData, error)
}
