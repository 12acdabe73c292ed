package market

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/rxtech-lab/margin-emulator/internal/types"
	"github.com/rxtech-lab/margin-emulator/pkg/errors"
)

// klinePageSize is the Binance API limit per klines request.
const klinePageSize = 500

// BinanceProvider fetches public market data from Binance. No API key
// is required for price and kline endpoints.
type BinanceProvider struct {
	client *binance.Client
}

func NewBinanceProvider() *BinanceProvider {
	return &BinanceProvider{
		client: binance.NewClient("", ""),
	}
}

func (p *BinanceProvider) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := p.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch price for %s", symbol)
	}

	if len(prices) == 0 {
		return 0, errors.Newf(errors.ErrCodeDataUnavailable, "no price returned for %s", symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "unparseable price %q for %s", prices[0].Price, symbol)
	}

	return price, nil
}

// History pages through the klines endpoint until the trailing period is
// covered. Binance returns at most klinePageSize candles per request, so
// each page advances the start time past the last candle's close.
func (p *BinanceProvider) History(ctx context.Context, symbol string, period time.Duration, interval string) ([]types.MarketData, error) {
	endTime := time.Now()
	startTime := endTime.Add(-period)

	startMillis := startTime.UnixMilli()
	endMillis := endTime.UnixMilli()

	data := make([]types.MarketData, 0)

	for {
		klines, err := p.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(startMillis).
			EndTime(endMillis).
			Limit(klinePageSize).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch klines for %s", symbol)
		}

		converted, err := convertKlines(symbol, klines)
		if err != nil {
			return nil, err
		}

		data = append(data, converted...)

		// Last page: the venue returned fewer candles than the page size.
		if len(klines) < klinePageSize {
			break
		}

		// Advance past the last candle's close to avoid duplicates.
		startMillis = klines[len(klines)-1].CloseTime + 1
		if startMillis >= endMillis {
			break
		}
	}

	return data, nil
}

// convertKlines parses the string-valued Binance kline fields into
// candles. The candle timestamp is the kline's open time.
func convertKlines(symbol string, klines []*binance.Kline) ([]types.MarketData, error) {
	data := make([]types.MarketData, 0, len(klines))

	for _, k := range klines {
		open, err := strconv.ParseFloat(k.Open, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "unparseable open %q for %s", k.Open, symbol)
		}

		high, err := strconv.ParseFloat(k.High, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "unparseable high %q for %s", k.High, symbol)
		}

		low, err := strconv.ParseFloat(k.Low, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "unparseable low %q for %s", k.Low, symbol)
		}

		closePrice, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "unparseable close %q for %s", k.Close, symbol)
		}

		volume, err := strconv.ParseFloat(k.Volume, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "unparseable volume %q for %s", k.Volume, symbol)
		}

		data = append(data, types.MarketData{
			Symbol: symbol,
			Time:   time.UnixMilli(k.OpenTime),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	return data, nil
}
