// Package report produces period-bucketed performance metrics and
// exports from the ledger's trade history. It only reads account
// state, never mutates it.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rxtech-lab/margin-emulator/internal/account"
	"github.com/rxtech-lab/margin-emulator/internal/logger"
	"github.com/rxtech-lab/margin-emulator/internal/types"
	"github.com/rxtech-lab/margin-emulator/pkg/errors"
)

// Period selects the trailing window a report covers.
type Period string

const (
	PeriodHour  Period = "hour"
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

// Periods lists every reporting period, shortest first.
var Periods = []Period{PeriodHour, PeriodDay, PeriodWeek, PeriodMonth, PeriodAll}

func (p Period) label() string {
	switch p {
	case PeriodHour:
		return "Last hour"
	case PeriodDay:
		return "Last day"
	case PeriodWeek:
		return "Last week"
	case PeriodMonth:
		return "Last month"
	case PeriodAll:
		return "All time"
	default:
		return string(p)
	}
}

// window returns the trailing duration covered by the period. PeriodAll
// reports false: it has no cutoff.
func (p Period) window() (time.Duration, bool) {
	switch p {
	case PeriodHour:
		return time.Hour, true
	case PeriodDay:
		return 24 * time.Hour, true
	case PeriodWeek:
		return 7 * 24 * time.Hour, true
	case PeriodMonth:
		return 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// Performance holds the metrics for one reporting period. Realized P&L
// is reconstructed by matching sells against buy lots first-in
// first-out, so a period that contains both legs of a round trip shows
// its profit even though the ledger settles P&L only at sell time.
type Performance struct {
	Period         Period
	Trades         int
	BuyTrades      int
	SellTrades     int
	BuyVolume      float64
	SellVolume     float64
	ProfitLoss     float64
	CommissionPaid float64
	NetProfitLoss  float64
	WinningTrades  int
	LosingTrades   int
	WinRate        float64

	LeveragedTrades int
	AverageLeverage float64
	Liquidations    int
}

// Reporter renders performance reports from an account's history.
type Reporter struct {
	account   *account.Account
	outputDir string

	log *logger.Logger
	now func() time.Time
}

func NewReporter(acc *account.Account, outputDir string, log *logger.Logger) *Reporter {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Reporter{
		account:   acc,
		outputDir: outputDir,
		log:       log,
		now:       time.Now,
	}
}

// SetClock replaces the wall clock used for period cutoffs.
func (r *Reporter) SetClock(now func() time.Time) {
	r.now = now
}

// PeriodTrades returns the trades executed inside the period's trailing
// window, oldest first.
func (r *Reporter) PeriodTrades(period Period) []types.Trade {
	window, bounded := period.window()
	if !bounded {
		return r.account.TradeHistory(types.TradeFilter{})
	}

	return r.account.TradeHistory(types.TradeFilter{
		StartTime: r.now().Add(-window),
	})
}

// PeriodPerformance computes the metrics for one period.
func (r *Reporter) PeriodPerformance(period Period) Performance {
	trades := r.PeriodTrades(period)

	perf := Performance{Period: period, Trades: len(trades)}
	if len(trades) == 0 {
		return perf
	}

	type lot struct {
		amount float64
		price  float64
	}

	lots := make(map[string][]lot)

	leverageSum := 0

	for _, t := range trades {
		perf.CommissionPaid += t.Commission

		if t.Leverage > 1 {
			perf.LeveragedTrades++
			leverageSum += t.Leverage
		}

		if t.IsLiquidation {
			perf.Liquidations++
		}

		switch t.Side {
		case types.SideBuy:
			perf.BuyTrades++
			perf.BuyVolume += t.Total
			lots[t.Symbol] = append(lots[t.Symbol], lot{amount: t.Amount, price: t.Price})

		case types.SideSell:
			perf.SellTrades++
			perf.SellVolume += t.Total

			open := lots[t.Symbol]
			if len(open) == 0 {
				// Sell with no matching buy in this window: the entry leg
				// predates the period, so its P&L is not attributable here.
				continue
			}

			first := open[0]
			pnl := (t.Price - first.price) * t.Amount
			perf.ProfitLoss += pnl

			if pnl > 0 {
				perf.WinningTrades++
			} else {
				perf.LosingTrades++
			}

			if t.Amount >= first.amount {
				lots[t.Symbol] = open[1:]
			} else {
				open[0].amount -= t.Amount
			}
		}
	}

	perf.NetProfitLoss = perf.ProfitLoss - perf.CommissionPaid
	if perf.LeveragedTrades > 0 {
		perf.AverageLeverage = float64(leverageSum) / float64(perf.LeveragedTrades)
	}

	if closed := perf.WinningTrades + perf.LosingTrades; closed > 0 {
		perf.WinRate = float64(perf.WinningTrades) / float64(closed) * 100
	}

	return perf
}

// PeriodReport renders one period's metrics as a text block.
func (r *Reporter) PeriodReport(period Period) string {
	perf := r.PeriodPerformance(period)

	divider := fmt.Sprintf("%s\n", strings.Repeat("=", 70))

	out := "\n" + divider
	out += fmt.Sprintf("PERFORMANCE REPORT - %s\n", perf.Period.label())
	out += divider

	if perf.Trades == 0 {
		out += "No trades in this period\n"
		out += divider

		return out
	}

	out += fmt.Sprintf("Trades:            %d (%d buys, %d sells)\n", perf.Trades, perf.BuyTrades, perf.SellTrades)
	out += fmt.Sprintf("Buy volume:        $%.2f\n", perf.BuyVolume)
	out += fmt.Sprintf("Sell volume:       $%.2f\n", perf.SellVolume)
	out += fmt.Sprintf("Gross P&L:         $%.2f\n", perf.ProfitLoss)
	out += fmt.Sprintf("Commission paid:   $%.2f\n", perf.CommissionPaid)
	out += fmt.Sprintf("Net P&L:           $%.2f\n", perf.NetProfitLoss)
	out += fmt.Sprintf("Win rate:          %.1f%% (%d winning, %d losing)\n",
		perf.WinRate, perf.WinningTrades, perf.LosingTrades)

	if perf.LeveragedTrades > 0 {
		out += fmt.Sprintf("Leveraged trades:  %d (avg %.1fx)\n", perf.LeveragedTrades, perf.AverageLeverage)
	}

	if perf.Liquidations > 0 {
		out += fmt.Sprintf("Liquidations:      %d\n", perf.Liquidations)
	}

	out += divider

	return out
}

// ComparisonReport renders every period's metrics as one table.
func (r *Reporter) ComparisonReport() string {
	divider := fmt.Sprintf("%s\n", strings.Repeat("=", 90))

	out := "\n" + divider
	out += "PERIOD COMPARISON REPORT\n"
	out += divider
	out += fmt.Sprintf("%-15s %6s %12s %12s %12s %8s\n",
		"Period", "Ops", "Gross P&L", "Commission", "Net P&L", "WR")
	out += fmt.Sprintf("%s\n", strings.Repeat("-", 90))

	for _, period := range Periods {
		perf := r.PeriodPerformance(period)
		out += fmt.Sprintf("%-15s %6d %12s %12s %12s %7.1f%%\n",
			period.label(),
			perf.Trades,
			fmt.Sprintf("$%.2f", perf.ProfitLoss),
			fmt.Sprintf("$%.2f", perf.CommissionPaid),
			fmt.Sprintf("$%.2f", perf.NetProfitLoss),
			perf.WinRate)
	}

	out += divider

	return out
}

// ExportTradesCSV writes the full trade history to a CSV file under the
// reporter's output directory and returns the file path. An empty
// filename picks a timestamped default.
func (r *Reporter) ExportTradesCSV(filename string) (string, error) {
	trades := r.account.TradeHistory(types.TradeFilter{})
	if len(trades) == 0 {
		return "", errors.New(errors.ErrCodeReportExportFailed, "no trades to export")
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", errors.Wrapf(errors.ErrCodeReportExportFailed, err, "failed to create output dir %s", r.outputDir)
	}

	if filename == "" {
		filename = fmt.Sprintf("trades_%s.csv", r.now().Format("20060102_150405"))
	}

	path := filepath.Join(r.outputDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeReportExportFailed, err, "failed to create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{
		"id", "trade_type", "symbol", "amount", "price", "commission",
		"leverage", "margin_used", "total", "is_liquidation", "timestamp",
	}
	if err := w.Write(header); err != nil {
		return "", errors.Wrap(errors.ErrCodeReportExportFailed, "failed to write csv header", err)
	}

	for _, t := range trades {
		record := []string{
			t.ID,
			string(t.Side),
			t.Symbol,
			strconv.FormatFloat(t.Amount, 'f', -1, 64),
			strconv.FormatFloat(t.Price, 'f', -1, 64),
			strconv.FormatFloat(t.Commission, 'f', -1, 64),
			strconv.Itoa(t.Leverage),
			strconv.FormatFloat(t.MarginUsed, 'f', -1, 64),
			strconv.FormatFloat(t.Total, 'f', -1, 64),
			strconv.FormatBool(t.IsLiquidation),
			t.Timestamp.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return "", errors.Wrap(errors.ErrCodeReportExportFailed, "failed to write csv record", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", errors.Wrap(errors.ErrCodeReportExportFailed, "failed to flush csv", err)
	}

	r.log.Info("trades exported", zap.String("path", path), zap.Int("trades", len(trades)))

	return path, nil
}

// FullReport renders the account summary, the period comparison table,
// the most recent trades and the open positions as one text report.
func (r *Reporter) FullReport(currentPrices map[string]float64) string {
	summary := r.account.Summary(currentPrices)

	divider := fmt.Sprintf("%s\n", strings.Repeat("=", 70))

	out := "\n" + divider
	out += "FULL TRADING REPORT\n"
	out += divider
	out += fmt.Sprintf("Date:                  %s\n", r.now().Format("2006-01-02 15:04:05"))
	out += fmt.Sprintf("%s\n", strings.Repeat("-", 70))
	out += fmt.Sprintf("Balance:               $%.2f\n", summary.Balance)
	out += fmt.Sprintf("Available balance:     $%.2f\n", summary.AvailableBalance)
	out += fmt.Sprintf("Initial balance:       $%.2f\n", summary.InitialBalance)
	out += fmt.Sprintf("Margin used:           $%.2f\n", summary.MarginUsed)
	out += fmt.Sprintf("Total value:           $%.2f\n", summary.TotalValue)
	out += fmt.Sprintf("Unrealized P&L:        $%+.2f\n", summary.UnrealizedPnL)
	out += fmt.Sprintf("Total return:          %+.2f%%\n", summary.TotalReturn)
	out += fmt.Sprintf("%s\n", strings.Repeat("-", 70))
	out += fmt.Sprintf("Total trades:          %d\n", summary.TotalTrades)
	out += fmt.Sprintf("  Winning:             %d\n", summary.WinningTrades)
	out += fmt.Sprintf("  Losing:              %d\n", summary.LosingTrades)
	out += fmt.Sprintf("Liquidations:          %d\n", summary.TotalLiquidations)
	out += fmt.Sprintf("Win rate:              %.2f%%\n", summary.WinRate)
	out += fmt.Sprintf("Commission paid:       $%.2f\n", summary.TotalCommissionPaid)
	out += fmt.Sprintf("Open positions:        %d\n", summary.OpenPositions)
	out += divider

	out += r.ComparisonReport()

	recent := r.account.TradeHistory(types.TradeFilter{Limit: 10})
	if len(recent) > 0 {
		out += "\n" + divider
		out += "LAST 10 TRADES\n"
		out += divider

		for i := len(recent) - 1; i >= 0; i-- {
			t := recent[i]
			out += fmt.Sprintf("%s | %-4s | %-8s | Amount: %10.6f | Price: $%10.2f | Total: $%12.2f | Fee: $%6.2f\n",
				t.Timestamp.Format("2006-01-02 15:04:05"), t.Side, t.Symbol,
				t.Amount, t.Price, t.Total, t.Commission)
		}

		out += divider
	}

	positions := r.account.Positions()
	if len(positions) > 0 {
		out += "\n" + divider
		out += "OPEN POSITIONS\n"
		out += divider

		for symbol, p := range positions {
			out += fmt.Sprintf("%-8s | Amount: %10.6f | Entry price: $%10.2f | Since: %s\n",
				symbol, p.Amount, p.EntryPrice, p.EntryTime.Format("2006-01-02 15:04:05"))
		}

		out += divider
	}

	return out
}
