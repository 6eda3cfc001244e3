package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantlab/backsim/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load OHLCV bars from CSV into the SQLite store",
	Long: `Ingest reads a CSV of bars (time,open,high,low,close[,volume]) and
writes them into the local SQLite market data store.

Example:
  backsim ingest --csv nifty.csv --symbol NIFTY --db market.db`,
	RunE: runIngest,
}

var (
	inCSVPath string
	inSymbol  string
	inDBPath  string
	inFrom    string
	inTo      string
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&inCSVPath, "csv", "", "path to bar CSV (required)")
	ingestCmd.Flags().StringVarP(&inSymbol, "symbol", "i", "", "symbol to store bars under (required)")
	ingestCmd.Flags().StringVarP(&inDBPath, "db", "d", "./market.db", "path to SQLite market data store")
	ingestCmd.Flags().StringVar(&inFrom, "from", "", "only ingest bars on or after this date (YYYY-MM-DD)")
	ingestCmd.Flags().StringVar(&inTo, "to", "", "only ingest bars on or before this date (YYYY-MM-DD)")

	ingestCmd.MarkFlagRequired("csv")
	ingestCmd.MarkFlagRequired("symbol")
}

func runIngest(cmd *cobra.Command, args []string) error {
	var from, to time.Time
	var err error
	if inFrom != "" {
		from, err = time.Parse("2006-01-02", inFrom)
		if err != nil {
			return fmt.Errorf("bad --from %q: %w", inFrom, err)
		}
	}
	if inTo != "" {
		to, err = time.Parse("2006-01-02", inTo)
		if err != nil {
			return fmt.Errorf("bad --to %q: %w", inTo, err)
		}
		to = to.Add(24*time.Hour - time.Second)
	}

	bars, err := store.LoadBarsCSV(inCSVPath, from, to)
	if err != nil {
		return fmt.Errorf("load csv: %w", err)
	}
	if len(bars) == 0 {
		return fmt.Errorf("no bars found in %s", inCSVPath)
	}

	db, err := store.NewSQLite(inDBPath)
	if err != nil {
		return fmt.Errorf("open data store: %w", err)
	}
	defer db.Close()

	if err := db.WriteBars(cmd.Context(), inSymbol, bars); err != nil {
		return fmt.Errorf("write bars: %w", err)
	}

	slog.Info("bars ingested", "symbol", inSymbol, "count", len(bars), "db", inDBPath)
	fmt.Printf("Ingested %d bars for %s into %s\n", len(bars), inSymbol, inDBPath)
	return nil
}
