// Package engine wires the market provider, decision orchestrator and
// margin ledger into the polling emulator loop: fetch, check
// liquidations, decide, apply, snapshot.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/margin-emulator/internal/account"
	"github.com/rxtech-lab/margin-emulator/internal/decision"
	"github.com/rxtech-lab/margin-emulator/internal/logger"
	"github.com/rxtech-lab/margin-emulator/internal/market"
	"github.com/rxtech-lab/margin-emulator/internal/report"
	"github.com/rxtech-lab/margin-emulator/internal/types"
	"github.com/rxtech-lab/margin-emulator/pkg/errors"
)

// TickResult is the outcome of one decision/settlement cycle.
type TickResult struct {
	Price      float64
	Liquidated []string
	Decision   types.Decision
	// Trade is the ledger record applied this tick, nil when the
	// decision was HOLD or its execution failed.
	Trade *types.Trade
	// ExecutionError carries a failed buy/sell, e.g. InsufficientFunds.
	// The tick itself still completes.
	ExecutionError error
	Summary        types.AccountSummary
}

// Emulator drives the single-threaded emulation loop. One cycle runs
// to completion before the next begins; nothing here needs locking.
type Emulator struct {
	config       Config
	account      *account.Account
	orchestrator *decision.Orchestrator
	provider     market.Provider
	reporter     *report.Reporter

	log *logger.Logger
}

// NewEmulator builds the engine and restores any persisted snapshot.
// A missing snapshot starts fresh; a corrupt one is surfaced.
func NewEmulator(config Config, provider market.Provider, log *logger.Logger) (*Emulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	acc := account.NewAccount(config.InitialBalance, config.CommissionRate, account.MaxLeverage, log)

	loaded, err := acc.LoadSnapshot(config.SnapshotPath)
	if err != nil {
		return nil, err
	}

	if loaded {
		log.Info("restored account from snapshot", zap.String("path", config.SnapshotPath))
	}

	return &Emulator{
		config:       config,
		account:      acc,
		orchestrator: decision.NewOrchestrator(config.Symbol, config.RiskTolerance, config.MinConfidence, config.Leverage, log),
		provider:     provider,
		reporter:     report.NewReporter(acc, config.OutputDir, log),
		log:          log,
	}, nil
}

// Account exposes the ledger for the CLI and reports.
func (e *Emulator) Account() *account.Account {
	return e.account
}

// Reporter exposes the report renderer.
func (e *Emulator) Reporter() *report.Reporter {
	return e.reporter
}

// Orchestrator exposes the decision layer.
func (e *Emulator) Orchestrator() *decision.Orchestrator {
	return e.orchestrator
}

// Config returns the engine configuration.
func (e *Emulator) Config() Config {
	return e.config
}

// RunOnce executes a single cycle: fetch the price, run liquidation
// checks, make a decision, apply it to the ledger and persist a
// snapshot. A failed or empty market fetch aborts the cycle with no
// state mutation and a DataUnavailable error.
func (e *Emulator) RunOnce(ctx context.Context) (TickResult, error) {
	symbol := e.config.Symbol

	price, err := e.provider.CurrentPrice(ctx, symbol)
	if err != nil {
		return TickResult{}, errors.Wrapf(errors.ErrCodeDataUnavailable, err, "no current price for %s", symbol)
	}

	result := TickResult{Price: price}

	// Liquidation runs before any new decision, every tick.
	result.Liquidated = e.account.CheckLiquidations(map[string]float64{symbol: price})
	for _, liquidated := range result.Liquidated {
		e.log.Warn("position liquidated", zap.String("symbol", liquidated), zap.Float64("price", price))
	}

	history, err := e.provider.History(ctx, symbol, e.config.HistoryPeriod, e.config.HistoryInterval)
	if err != nil {
		// The liquidation check already mutated state; persist before
		// reporting the failed fetch.
		e.saveSnapshot()

		return result, errors.Wrapf(errors.ErrCodeDataUnavailable, err, "no history for %s", symbol)
	}

	result.Decision = e.orchestrator.Decide(history, e.account.Position(symbol), e.account.AvailableBalance())
	result.Trade, result.ExecutionError = e.apply(result.Decision, price)

	e.saveSnapshot()

	result.Summary = e.account.Summary(map[string]float64{symbol: price})

	return result, nil
}

// apply settles an actionable decision against the ledger at the
// current price.
func (e *Emulator) apply(d types.Decision, price float64) (*types.Trade, error) {
	switch d.Action {
	case types.ActionBuy:
		trade, err := e.account.Buy(e.config.Symbol, d.Amount, price, d.Leverage)
		if err != nil {
			e.log.Warn("buy rejected", zap.Error(err))

			return nil, err
		}

		return trade, nil

	case types.ActionSell:
		trade, err := e.account.Sell(e.config.Symbol, d.Amount, price)
		if err != nil {
			e.log.Warn("sell rejected", zap.Error(err))

			return nil, err
		}

		return trade, nil

	default:
		return nil, nil
	}
}

// Run executes cycles on the configured interval until the context is
// cancelled. Data-unavailable cycles are logged and skipped; they never
// stop the loop.
func (e *Emulator) Run(ctx context.Context) error {
	e.log.Info("emulator started",
		zap.String("symbol", e.config.Symbol),
		zap.Int("leverage", e.config.Leverage),
		zap.Duration("interval", e.config.CheckInterval))

	ticker := time.NewTicker(e.config.CheckInterval)
	defer ticker.Stop()

	for {
		result, err := e.RunOnce(ctx)
		if err != nil {
			e.log.Warn("cycle skipped", zap.Error(err))
		} else {
			e.log.Info("cycle complete",
				zap.Float64("price", result.Price),
				zap.String("action", string(result.Decision.Action)),
				zap.Int("confidence", result.Decision.Confidence),
				zap.Float64("balance", result.Summary.Balance),
				zap.Float64("available", result.Summary.AvailableBalance),
				zap.Float64("total_value", result.Summary.TotalValue))
		}

		select {
		case <-ctx.Done():
			e.log.Info("emulator stopped")

			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Reset restores the ledger to its initial state and discards the
// persisted snapshot.
func (e *Emulator) Reset() error {
	e.account.Reset()

	return account.RemoveSnapshot(e.config.SnapshotPath)
}

func (e *Emulator) saveSnapshot() {
	if err := e.account.SaveSnapshot(e.config.SnapshotPath); err != nil {
		e.log.Error("snapshot save failed", zap.Error(err))
	}
}
