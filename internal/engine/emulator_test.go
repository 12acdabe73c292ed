package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/margin-emulator/internal/logger"
	"github.com/rxtech-lab/margin-emulator/internal/types"
	"github.com/rxtech-lab/margin-emulator/pkg/errors"
)

// fakeProvider serves canned market data.
type fakeProvider struct {
	price      float64
	priceErr   error
	history    []types.MarketData
	historyErr error
}

func (f *fakeProvider) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if f.priceErr != nil {
		return 0, f.priceErr
	}

	return f.price, nil
}

func (f *fakeProvider) History(ctx context.Context, symbol string, period time.Duration, interval string) ([]types.MarketData, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}

	return f.history, nil
}

// steadyHistory builds bars around a constant price.
func steadyHistory(n int, price float64) []types.MarketData {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	data := make([]types.MarketData, n)

	for i := range data {
		data[i] = types.MarketData{
			Symbol: "BTCUSDT",
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 10,
		}
	}

	return data
}

type EmulatorTestSuite struct {
	suite.Suite
	config   Config
	provider *fakeProvider
	emulator *Emulator
}

func (suite *EmulatorTestSuite) SetupTest() {
	dir := suite.T().TempDir()

	suite.config = DefaultConfig()
	suite.config.SnapshotPath = filepath.Join(dir, "snapshot.json")
	suite.config.OutputDir = dir

	suite.provider = &fakeProvider{
		price:   100,
		history: steadyHistory(60, 100),
	}

	emulator, err := NewEmulator(suite.config, suite.provider, logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.emulator = emulator
}

func TestEmulatorSuite(t *testing.T) {
	suite.Run(t, new(EmulatorTestSuite))
}

func (suite *EmulatorTestSuite) TestNewEmulatorRejectsInvalidConfig() {
	config := suite.config
	config.InitialBalance = -1

	_, err := NewEmulator(config, suite.provider, nil)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *EmulatorTestSuite) TestNewEmulatorRestoresSnapshot() {
	_, err := suite.emulator.Account().Buy("BTCUSDT", 1, 100, 1)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.emulator.Account().SaveSnapshot(suite.config.SnapshotPath))

	restarted, err := NewEmulator(suite.config, suite.provider, logger.NewNopLogger())
	suite.Require().NoError(err)

	position := restarted.Account().Position("BTCUSDT")
	suite.Require().NotNil(position)
	suite.Equal(1.0, position.Amount)
}

func (suite *EmulatorTestSuite) TestNewEmulatorCorruptSnapshot() {
	suite.Require().NoError(os.WriteFile(suite.config.SnapshotPath, []byte("{broken"), 0o644))

	_, err := NewEmulator(suite.config, suite.provider, logger.NewNopLogger())
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSnapshotCorrupt))
}

func (suite *EmulatorTestSuite) TestRunOnceHoldCycle() {
	result, err := suite.emulator.RunOnce(context.Background())
	suite.Require().NoError(err)

	suite.Equal(100.0, result.Price)
	// A steady market never clears the confidence floor.
	suite.Equal(types.ActionHold, result.Decision.Action)
	suite.Nil(result.Trade)
	suite.Equal(10000.0, result.Summary.Balance)

	// The cycle persists a snapshot.
	_, statErr := os.Stat(suite.config.SnapshotPath)
	suite.NoError(statErr)
}

func (suite *EmulatorTestSuite) TestRunOncePriceFetchFailure() {
	suite.provider.priceErr = errors.New(errors.ErrCodeMarketDataFetchFailed, "venue down")

	_, err := suite.emulator.RunOnce(context.Background())
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataUnavailable))

	// Aborted cycles mutate nothing and persist nothing.
	suite.Equal(10000.0, suite.emulator.Account().Balance())

	_, statErr := os.Stat(suite.config.SnapshotPath)
	suite.True(os.IsNotExist(statErr))
}

func (suite *EmulatorTestSuite) TestRunOnceHistoryFetchFailure() {
	suite.provider.historyErr = errors.New(errors.ErrCodeMarketDataFetchFailed, "venue down")

	_, err := suite.emulator.RunOnce(context.Background())
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataUnavailable))
}

func (suite *EmulatorTestSuite) TestRunOnceLiquidatesBeforeDeciding() {
	account := suite.emulator.Account()

	_, err := account.Buy("BTCUSDT", 1, 100, 10)
	suite.Require().NoError(err)

	balanceBefore := account.Balance()

	// Price crashes through the liquidation threshold.
	suite.provider.price = 50
	suite.provider.history = steadyHistory(60, 50)

	result, err := suite.emulator.RunOnce(context.Background())
	suite.Require().NoError(err)

	suite.Equal([]string{"BTCUSDT"}, result.Liquidated)
	suite.Nil(account.Position("BTCUSDT"))
	suite.InDelta(balanceBefore-10, account.Balance(), 1e-6)
}

func (suite *EmulatorTestSuite) TestReset() {
	_, err := suite.emulator.Account().Buy("BTCUSDT", 1, 100, 1)
	suite.Require().NoError(err)

	_, err = suite.emulator.RunOnce(context.Background())
	suite.Require().NoError(err)

	suite.Require().NoError(suite.emulator.Reset())

	suite.Equal(10000.0, suite.emulator.Account().Balance())
	suite.Nil(suite.emulator.Account().Position("BTCUSDT"))

	_, statErr := os.Stat(suite.config.SnapshotPath)
	suite.True(os.IsNotExist(statErr))
}

func (suite *EmulatorTestSuite) TestRunStopsOnContextCancel() {
	config := suite.config
	config.CheckInterval = 10 * time.Millisecond

	emulator, err := NewEmulator(config, suite.provider, logger.NewNopLogger())
	suite.Require().NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = emulator.Run(ctx)
	suite.ErrorIs(err, context.DeadlineExceeded)
}
