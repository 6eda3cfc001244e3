package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/quantlab/backsim/internal/logger"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "backsim",
	Short: "A historical trading simulator for equity and option strategies",
	Long: `Backsim replays historical bar data through trading strategies and
reports the resulting performance.

It provides tools for:
  - Backtesting bar-driven and batch-driven (options) strategies
  - Ingesting OHLCV data from CSV into a local SQLite store
  - Journaling trades and equity curves to CSV or SQLite
  - Performance metrics: drawdown, Sharpe ratio, profit factor`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env file is fine; env vars still apply.
		_ = godotenv.Load()
		logger.Init("backsim", logLevel)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
