package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/optback/data"
)

var importCmd = &cobra.Command{
	Use:   "import <archive>",
	Short: "Import price data into the local store",
	Long: `Import underlying and option contract prices into the SQLite store.

Accepts a bare CSV file, a .zip archive of CSVs, or an .xz compressed CSV.
File names select the destination table: SYMBOL.csv rows go to the
underlying, SYMBOL_TYPE_STRIKE_EXPIRY.csv rows to that contract.

Examples:
  optback import prices/BANKNIFTY.csv
  optback import drops/week22.zip
  optback import drops/BANKNIFTY_CE_22750_2022-06-02.csv.xz`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var importStorePath string

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importStorePath, "store", "s", "./prices.sqlite", "path to SQLite price store")
}

func runImport(cmd *cobra.Command, args []string) error {
	store, err := data.OpenStore(importStorePath)
	if err != nil {
		return fmt.Errorf("open price store: %w", err)
	}
	defer store.Close()

	n, err := data.ImportArchive(store, args[0])
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}

	fmt.Printf("Imported %d file(s) from %s into %s\n", n, args[0], importStorePath)
	return nil
}
