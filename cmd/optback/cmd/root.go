package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "optback",
	Short: "An options strategy backtester for index weeklies",
	Long: `Optback replays a rule-based option strategy over historical index data.

It provides tools for:
  - Backtesting multi-leg option strategies from a config file
  - Importing underlying and contract price data into a local store
  - Querying recorded trades and equity curves

Complete documentation is available at https://github.com/rustyeddy/optback`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var verbose bool

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
