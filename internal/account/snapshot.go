package account

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/margin-emulator/internal/types"
	"github.com/rxtech-lab/margin-emulator/pkg/errors"
)

// snapshot is the on-disk form of the ledger. Timestamps serialize as
// RFC 3339 strings. Pointer fields on the nested records exist for
// backward compatibility: snapshots written before margin support lack
// leverage, margin_used and is_liquidation, which default to 1, a
// value computed from the notional, and false respectively.
type snapshot struct {
	InitialBalance      float64                   `json:"initial_balance"`
	Balance             float64                   `json:"balance"`
	CommissionRate      float64                   `json:"commission_rate"`
	MaxLeverage         int                       `json:"max_leverage"`
	TotalTrades         int                       `json:"total_trades"`
	WinningTrades       int                       `json:"winning_trades"`
	LosingTrades        int                       `json:"losing_trades"`
	TotalLiquidations   int                       `json:"total_liquidations"`
	TotalCommissionPaid float64                   `json:"total_commission_paid"`
	Positions           map[string]positionRecord `json:"positions"`
	TradeHistory        []tradeRecord             `json:"trade_history"`
}

type positionRecord struct {
	Symbol     string    `json:"symbol"`
	Amount     float64   `json:"amount"`
	EntryPrice float64   `json:"entry_price"`
	Leverage   *int      `json:"leverage,omitempty"`
	MarginUsed *float64  `json:"margin_used,omitempty"`
	EntryTime  time.Time `json:"entry_time"`
}

type tradeRecord struct {
	ID            string    `json:"id,omitempty"`
	Side          string    `json:"trade_type"`
	Symbol        string    `json:"symbol"`
	Amount        float64   `json:"amount"`
	Price         float64   `json:"price"`
	Commission    float64   `json:"commission"`
	Leverage      *int      `json:"leverage,omitempty"`
	MarginUsed    *float64  `json:"margin_used,omitempty"`
	Total         float64   `json:"total"`
	IsLiquidation *bool     `json:"is_liquidation,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// SaveSnapshot writes the full ledger state to path. The write is
// atomic: the snapshot lands in a temporary file first and is renamed
// into place, so a crash mid-write never leaves a truncated snapshot.
func (a *Account) SaveSnapshot(path string) error {
	snap := snapshot{
		InitialBalance:      a.initialBalance,
		Balance:             a.balance,
		CommissionRate:      a.commissionRate,
		MaxLeverage:         a.maxLeverage,
		TotalTrades:         a.totalTrades,
		WinningTrades:       a.winningTrades,
		LosingTrades:        a.losingTrades,
		TotalLiquidations:   a.totalLiquidations,
		TotalCommissionPaid: a.totalCommissionPaid,
		Positions:           make(map[string]positionRecord, len(a.positions)),
		TradeHistory:        make([]tradeRecord, 0, len(a.tradeHistory)),
	}

	for symbol, p := range a.positions {
		leverage := p.Leverage
		marginUsed := p.MarginUsed
		snap.Positions[symbol] = positionRecord{
			Symbol:     p.Symbol,
			Amount:     p.Amount,
			EntryPrice: p.EntryPrice,
			Leverage:   &leverage,
			MarginUsed: &marginUsed,
			EntryTime:  p.EntryTime,
		}
	}

	for _, t := range a.tradeHistory {
		leverage := t.Leverage
		marginUsed := t.MarginUsed
		isLiquidation := t.IsLiquidation
		snap.TradeHistory = append(snap.TradeHistory, tradeRecord{
			ID:            t.ID,
			Side:          string(t.Side),
			Symbol:        t.Symbol,
			Amount:        t.Amount,
			Price:         t.Price,
			Commission:    t.Commission,
			Leverage:      &leverage,
			MarginUsed:    &marginUsed,
			Total:         t.Total,
			IsLiquidation: &isLiquidation,
			Timestamp:     t.Timestamp,
		})
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeSnapshotWrite, "failed to encode snapshot", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*.json")
	if err != nil {
		return errors.Wrap(errors.ErrCodeSnapshotWrite, "failed to create snapshot temp file", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return errors.Wrap(errors.ErrCodeSnapshotWrite, "failed to write snapshot", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return errors.Wrap(errors.ErrCodeSnapshotWrite, "failed to close snapshot temp file", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())

		return errors.Wrap(errors.ErrCodeSnapshotWrite, "failed to replace snapshot", err)
	}

	a.log.Debug("snapshot saved", zap.String("path", path))

	return nil
}

// LoadSnapshot restores the ledger from path. A missing snapshot is not
// an error: it returns (false, nil) and leaves the account at its
// constructed defaults. A snapshot that exists but fails to parse
// returns SnapshotCorrupt with the account unchanged.
func (a *Account) LoadSnapshot(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, errors.Wrapf(errors.ErrCodeSnapshotCorrupt, err, "failed to read snapshot %s", path)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return false, errors.Wrapf(errors.ErrCodeSnapshotCorrupt, err, "failed to parse snapshot %s", path)
	}

	a.initialBalance = snap.InitialBalance
	a.balance = snap.Balance
	a.commissionRate = snap.CommissionRate

	// Snapshots written before margin support carry no leverage cap; a
	// zero keeps the constructed one so restored accounts can still buy.
	if snap.MaxLeverage != 0 {
		a.maxLeverage = clampLeverageCap(snap.MaxLeverage)
	}
	a.totalTrades = snap.TotalTrades
	a.winningTrades = snap.WinningTrades
	a.losingTrades = snap.LosingTrades
	a.totalLiquidations = snap.TotalLiquidations
	a.totalCommissionPaid = snap.TotalCommissionPaid

	a.positions = make(map[string]*types.Position, len(snap.Positions))
	for symbol, r := range snap.Positions {
		leverage := 1
		if r.Leverage != nil {
			leverage = *r.Leverage
		}

		marginUsed := r.Amount * r.EntryPrice / float64(leverage)
		if r.MarginUsed != nil {
			marginUsed = *r.MarginUsed
		}

		a.positions[symbol] = &types.Position{
			Symbol:     symbol,
			Amount:     r.Amount,
			EntryPrice: r.EntryPrice,
			Leverage:   leverage,
			MarginUsed: marginUsed,
			EntryTime:  r.EntryTime,
		}
	}

	a.tradeHistory = make([]types.Trade, 0, len(snap.TradeHistory))
	for _, r := range snap.TradeHistory {
		leverage := 1
		if r.Leverage != nil {
			leverage = *r.Leverage
		}

		marginUsed := r.Amount * r.Price / float64(leverage)
		if r.MarginUsed != nil {
			marginUsed = *r.MarginUsed
		}

		isLiquidation := false
		if r.IsLiquidation != nil {
			isLiquidation = *r.IsLiquidation
		}

		a.tradeHistory = append(a.tradeHistory, types.Trade{
			ID:            r.ID,
			Side:          types.Side(r.Side),
			Symbol:        r.Symbol,
			Amount:        r.Amount,
			Price:         r.Price,
			Commission:    r.Commission,
			Leverage:      leverage,
			MarginUsed:    marginUsed,
			Total:         r.Total,
			IsLiquidation: isLiquidation,
			Timestamp:     r.Timestamp,
		})
	}

	a.log.Info("snapshot loaded",
		zap.String("path", path),
		zap.Float64("balance", a.balance),
		zap.Int("positions", len(a.positions)),
		zap.Int("trades", len(a.tradeHistory)))

	return true, nil
}

// RemoveSnapshot deletes a persisted snapshot. A missing file is not an
// error. Used by the reset flow, which discards persisted state along
// with the in-memory ledger.
func RemoveSnapshot(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(errors.ErrCodeSnapshotWrite, err, "failed to remove snapshot %s", path)
	}

	return nil
}
