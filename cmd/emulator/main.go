// Command emulator runs the margin trading emulator: a fictitious cash
// account trading one symbol, driven by technical-indicator signals.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/margin-emulator/internal/engine"
	"github.com/rxtech-lab/margin-emulator/internal/logger"
	"github.com/rxtech-lab/margin-emulator/internal/market"
	"github.com/rxtech-lab/margin-emulator/internal/report"
)

func main() {
	cmd := &cli.Command{
		Name:  "emulator",
		Usage: "Margin trading emulator driven by technical-indicator signals",
		Flags: configFlags(),
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the emulator continuously on the configured interval",
				Flags:  configFlags(),
				Action: runAction,
			},
			{
				Name:   "single",
				Usage:  "Run a single decision cycle and exit",
				Flags:  configFlags(),
				Action: singleAction,
			},
			{
				Name:  "report",
				Usage: "Print performance reports from the persisted account",
				Flags: append(configFlags(),
					&cli.StringFlag{
						Name:    "period",
						Aliases: []string{"p"},
						Usage:   "Reporting period: hour, day, week, month, all",
						Value:   "all",
					},
					&cli.BoolFlag{
						Name:  "export-csv",
						Usage: "Export the trade history to CSV",
					},
				),
				Action: reportAction,
			},
			{
				Name:   "reset",
				Usage:  "Reset the account to its initial state and discard the snapshot",
				Flags:  configFlags(),
				Action: resetAction,
			},
			{
				Name:   "strategy",
				Usage:  "Print a description of the trading strategy",
				Flags:  configFlags(),
				Action: strategyAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func configFlags() []cli.Flag {
	defaults := engine.DefaultConfig()

	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML config file",
		},
		&cli.StringFlag{
			Name:    "symbol",
			Aliases: []string{"s"},
			Usage:   "Symbol to trade",
			Value:   defaults.Symbol,
		},
		&cli.FloatFlag{
			Name:    "balance",
			Aliases: []string{"b"},
			Usage:   "Initial balance",
			Value:   defaults.InitialBalance,
		},
		&cli.FloatFlag{
			Name:  "commission",
			Usage: "Commission rate per trade",
			Value: defaults.CommissionRate,
		},
		&cli.IntFlag{
			Name:    "leverage",
			Aliases: []string{"lev"},
			Usage:   "Leverage 1-100x (1 = no margin)",
			Value:   int64(defaults.Leverage),
		},
		&cli.FloatFlag{
			Name:    "risk",
			Aliases: []string{"r"},
			Usage:   "Risk tolerance 0.0-1.0",
			Value:   defaults.RiskTolerance,
		},
		&cli.IntFlag{
			Name:  "min-confidence",
			Usage: "Minimum confidence to trade (0-100)",
			Value: int64(defaults.MinConfidence),
		},
		&cli.DurationFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Usage:   "Pause between decision cycles",
			Value:   defaults.CheckInterval,
		},
		&cli.StringFlag{
			Name:  "snapshot",
			Usage: "Path to the account snapshot file",
			Value: defaults.SnapshotPath,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Directory for exported reports",
			Value:   defaults.OutputDir,
		},
	}
}

// buildConfig layers CLI flags over the config file (if given) over the
// defaults.
func buildConfig(cmd *cli.Command) (engine.Config, error) {
	config := engine.DefaultConfig()

	if path := cmd.String("config"); path != "" {
		loaded, err := engine.LoadConfig(path)
		if err != nil {
			return engine.Config{}, err
		}

		config = loaded
	}

	if cmd.IsSet("symbol") {
		config.Symbol = cmd.String("symbol")
	}
	if cmd.IsSet("balance") {
		config.InitialBalance = cmd.Float("balance")
	}
	if cmd.IsSet("commission") {
		config.CommissionRate = cmd.Float("commission")
	}
	if cmd.IsSet("leverage") {
		config.Leverage = int(cmd.Int("leverage"))
	}
	if cmd.IsSet("risk") {
		config.RiskTolerance = cmd.Float("risk")
	}
	if cmd.IsSet("min-confidence") {
		config.MinConfidence = int(cmd.Int("min-confidence"))
	}
	if cmd.IsSet("interval") {
		config.CheckInterval = cmd.Duration("interval")
	}
	if cmd.IsSet("snapshot") {
		config.SnapshotPath = cmd.String("snapshot")
	}
	if cmd.IsSet("output") {
		config.OutputDir = cmd.String("output")
	}

	return config, config.Validate()
}

func buildEmulator(cmd *cli.Command) (*engine.Emulator, *logger.Logger, error) {
	config, err := buildConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return nil, nil, err
	}

	emulator, err := engine.NewEmulator(config, market.NewBinanceProvider(), log)
	if err != nil {
		return nil, nil, err
	}

	return emulator, log, nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	emulator, logg, err := buildEmulator(cmd)
	if err != nil {
		return err
	}
	defer logg.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := emulator.Run(ctx); err != nil && err != context.Canceled {
		return err
	}

	return nil
}

func singleAction(ctx context.Context, cmd *cli.Command) error {
	emulator, logg, err := buildEmulator(cmd)
	if err != nil {
		return err
	}
	defer logg.Sync()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	result, err := emulator.RunOnce(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Price: $%.2f\n", result.Price)
	fmt.Printf("Action: %s (confidence %d%%)\n", result.Decision.Action, result.Decision.Confidence)

	for _, reason := range result.Decision.Reasons {
		fmt.Printf("  - %s\n", reason)
	}

	if result.Trade != nil {
		fmt.Printf("Executed: %s %.6f @ $%.2f (fee $%.2f)\n",
			result.Trade.Side, result.Trade.Amount, result.Trade.Price, result.Trade.Commission)
	}

	if result.ExecutionError != nil {
		fmt.Printf("Execution failed: %v\n", result.ExecutionError)
	}

	fmt.Printf("Balance: $%.2f (available $%.2f)\n",
		result.Summary.Balance, result.Summary.AvailableBalance)

	return nil
}

func reportAction(ctx context.Context, cmd *cli.Command) error {
	emulator, logg, err := buildEmulator(cmd)
	if err != nil {
		return err
	}
	defer logg.Sync()

	reporter := emulator.Reporter()

	period := report.Period(cmd.String("period"))
	if period == report.PeriodAll {
		fmt.Print(reporter.FullReport(nil))
	} else {
		fmt.Print(reporter.PeriodReport(period))
	}

	if cmd.Bool("export-csv") {
		path, err := reporter.ExportTradesCSV("")
		if err != nil {
			return err
		}

		fmt.Printf("Trades exported to %s\n", path)
	}

	return nil
}

func resetAction(ctx context.Context, cmd *cli.Command) error {
	emulator, logg, err := buildEmulator(cmd)
	if err != nil {
		return err
	}
	defer logg.Sync()

	if err := emulator.Reset(); err != nil {
		return err
	}

	fmt.Println("Account reset to initial state")

	return nil
}

func strategyAction(ctx context.Context, cmd *cli.Command) error {
	emulator, logg, err := buildEmulator(cmd)
	if err != nil {
		return err
	}
	defer logg.Sync()

	fmt.Print(emulator.Orchestrator().StrategyDescription())

	return nil
}
