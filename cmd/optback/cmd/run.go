package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/optback/backtest"
	"github.com/rustyeddy/optback/config"
	"github.com/rustyeddy/optback/data"
	"github.com/rustyeddy/optback/journal"
	"github.com/rustyeddy/optback/market"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest from a config file",
	Long: `Run a backtest using settings from a configuration file.

The config file specifies the underlying, strategy legs, entry and exit
rules, the run window and where results are journaled.

Example:
  optback run -f examples/configs/banknifty.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	strat, err := cfg.BuildStrategy()
	if err != nil {
		return fmt.Errorf("build strategy: %w", err)
	}

	fmt.Printf("Running backtest with config: %s\n", runConfigPath)
	fmt.Printf("  Underlying: %s (%d legs)\n", cfg.Underlying.Symbol, len(cfg.Legs))
	fmt.Printf("  Window: %s to %s\n", cfg.Backtest.StartDate, cfg.Backtest.EndDate)
	fmt.Printf("  Capital: %.2f\n\n", cfg.Backtest.Capital)

	store, err := data.OpenStore(cfg.Data.Store)
	if err != nil {
		return fmt.Errorf("open price store: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rows, err := store.FetchUnderlying(ctx, cfg.Underlying.Symbol)
	if err != nil {
		return fmt.Errorf("fetch underlying: %w", err)
	}
	series, err := market.NewSeries(cfg.Underlying.Symbol, rows)
	if err != nil {
		return fmt.Errorf("clean underlying: %w", err)
	}

	jnl, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	if jnl != nil {
		defer jnl.Close()
	}

	engine := backtest.NewEngine(series, strat, store, cfg.EngineConfig(), jnl, slog.Default())
	res, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("run backtest: %w", err)
	}

	printResult(cfg, res)
	return nil
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		return journal.NewCSV(jc.TradesFile, jc.LegsFile, jc.EquityFile)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	default:
		return nil, nil
	}
}

func printResult(cfg *config.Config, res *backtest.Result) {
	m := res.Summary()

	fmt.Printf("Results:\n")
	fmt.Printf("  Trades: %d\n", len(res.Trades))
	fmt.Printf("  Win Rate: %s\n", fmtPct(m.WinRate))
	fmt.Printf("  Sharpe: %s\n", fmtMetric(m.Sharpe))
	fmt.Printf("  Max Drawdown: %s\n", fmtPct(m.MaxDrawdown))
	fmt.Printf("  Final Capital: %.2f (PnL %+.2f)\n", res.FinalCapital, res.FinalCapital-res.InitialCapital)
	if res.OpenAtEnd {
		fmt.Println("  Note: a position was still open at the end of the run and is not counted above")
	}

	switch cfg.Journal.Type {
	case "csv":
		fmt.Printf("\nResults saved to:\n  - %s\n  - %s\n  - %s\n",
			cfg.Journal.TradesFile, cfg.Journal.LegsFile, cfg.Journal.EquityFile)
	case "sqlite":
		fmt.Printf("\nResults saved to: %s\n", cfg.Journal.DBPath)
	}
}

func fmtMetric(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}

func fmtPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}
