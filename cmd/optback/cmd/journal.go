package cmd

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/optback/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query recorded backtest runs",
	Long: `Query and display trade records from a SQLite journal database.

Subcommands:
  runs    - List recorded run IDs, newest first
  trades  - List the trades of a run
  trade   - Show one trade with per-leg detail

Examples:
  optback journal runs
  optback journal trades <run-id>
  optback journal trade <trade-id>`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded run IDs",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades <run-id>",
	Short: "List the trades of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrades,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Show one trade with per-leg detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalTradesCmd)
	journalCmd.AddCommand(journalTradeCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./optback.sqlite", "path to SQLite journal DB")
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	runs, err := j.ListRuns()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	for _, id := range runs {
		fmt.Println(id)
	}
	return nil
}

func runJournalTrades(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.ListTrades(args[0])
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	if len(recs) == 0 {
		fmt.Printf("No trades for run %s.\n", args[0])
		return nil
	}

	var total float64
	for _, rec := range recs {
		fmt.Println(formatTradeLine(rec))
		total += rec.Profit
	}
	fmt.Printf("\n%d trades, total PnL %+.2f\n", len(recs), total)
	return nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	fmt.Println(formatTradeLine(rec))
	for i, leg := range rec.Legs {
		fmt.Printf("  leg %d: %s %s strike %.2f entry %s exit %s pnl %s\n",
			i, leg.Action, leg.Type, leg.Strike,
			price(leg.EntryPrice), price(leg.ExitPrice), price(leg.PnL))
	}
	return nil
}

func formatTradeLine(rec journal.TradeRecord) string {
	line := fmt.Sprintf("%s  %s -> %s  underlying %.2f -> %.2f  pnl %+.2f",
		rec.TradeID,
		rec.EntryTime.Format(time.RFC3339),
		rec.ExitTime.Format(time.RFC3339),
		rec.EntryUnderlying, rec.ExitUnderlying, rec.Profit)
	if rec.Incomplete {
		line += "  [incomplete]"
	}
	return line
}

func price(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
