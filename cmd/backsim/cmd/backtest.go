package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantlab/backsim/backtest"
	"github.com/quantlab/backsim/config"
	"github.com/quantlab/backsim/internal/id"
	"github.com/quantlab/backsim/journal"
	"github.com/quantlab/backsim/store"
	"github.com/quantlab/backsim/strategy"
	"github.com/quantlab/backsim/strategy/builtins"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a strategy against historical bar data",
	Long: `Backtest replays stored bar data through a strategy and prints the
resulting performance report.

Supported strategies:
  - sma-cross: simple moving average crossover on the underlying
  - short-strangle: weekly short strangle selling OTM calls and puts

Example:
  backsim backtest --config sim.yaml --from 2023-01-01 --to 2023-12-31`,
	RunE: runBacktest,
}

var (
	btConfigPath string
	btSymbol     string
	btStrategy   string
	btFrom       string
	btTo         string
	btCash       float64
	btQuiet      bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "c", "", "path to config file (YAML or JSON)")
	backtestCmd.Flags().StringVarP(&btSymbol, "symbol", "i", "", "symbol to simulate (overrides config)")
	backtestCmd.Flags().StringVarP(&btStrategy, "strategy", "s", "", "strategy name (overrides config)")
	backtestCmd.Flags().StringVar(&btFrom, "from", "", "start date YYYY-MM-DD (required)")
	backtestCmd.Flags().StringVar(&btTo, "to", "", "end date YYYY-MM-DD (required)")
	backtestCmd.Flags().Float64VarP(&btCash, "cash", "b", 0, "initial cash (overrides config)")
	backtestCmd.Flags().BoolVarP(&btQuiet, "quiet", "q", false, "suppress progress output")

	backtestCmd.MarkFlagRequired("from")
	backtestCmd.MarkFlagRequired("to")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if btConfigPath != "" {
		loaded, err := config.LoadFromFile(btConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if btSymbol != "" {
		cfg.Strategy.Symbol = btSymbol
	}
	if btStrategy != "" {
		cfg.Strategy.Name = btStrategy
	}
	if btCash > 0 {
		cfg.Account.InitialCash = btCash
	}

	start, err := time.Parse("2006-01-02", btFrom)
	if err != nil {
		return fmt.Errorf("bad --from %q: %w", btFrom, err)
	}
	end, err := time.Parse("2006-01-02", btTo)
	if err != nil {
		return fmt.Errorf("bad --to %q: %w", btTo, err)
	}
	// Include the whole final day.
	end = end.Add(24*time.Hour - time.Second)

	source, err := store.NewSQLite(cfg.Data.DBPath)
	if err != nil {
		return fmt.Errorf("open data store: %w", err)
	}
	defer source.Close()

	reg := strategy.NewRegistry()
	builtins.RegisterAll(reg, source)

	strat, ok := reg.Get(cfg.Strategy.Name)
	if !ok {
		return fmt.Errorf("unknown strategy %q (available: %v)", cfg.Strategy.Name, reg.List())
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if j != nil {
		defer j.Close()
	}

	runner := &backtest.Runner{
		Source: source,
		Config: backtest.Config{
			InitialCash:   cfg.Account.InitialCash,
			BrokerageRate: cfg.Account.BrokerageRate,
			CashFraction:  cfg.Account.CashFraction,
			Lookback:      cfg.Strategy.Lookback,
			AllowReverse:  cfg.Strategy.AllowReverse,
		},
	}
	if !btQuiet {
		runner.Progress = func(pct int, msg string) {
			fmt.Printf("[%3d%%] %s\n", pct, msg)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("starting backtest",
		"strategy", cfg.Strategy.Name, "symbol", cfg.Strategy.Symbol,
		"from", btFrom, "to", btTo)

	res, err := runner.Run(ctx, cfg.Strategy.Symbol, strat, start, end)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	if j != nil {
		runID := id.New()
		for _, t := range res.Trades {
			if err := j.RecordTrade(journal.FromTrade(runID, t)); err != nil {
				return fmt.Errorf("record trade: %w", err)
			}
		}
		for _, p := range res.EquityCurve {
			if err := j.RecordEquity(journal.FromEquity(runID, p)); err != nil {
				return fmt.Errorf("record equity: %w", err)
			}
		}
		slog.Info("run journaled", "run_id", runID, "trades", len(res.Trades))
	}

	fmt.Println()
	backtest.WriteResult(os.Stdout, res)
	return nil
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "csv":
		return journal.NewCSV(cfg.TradesFile, cfg.EquityFile)
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	default:
		return nil, nil
	}
}
