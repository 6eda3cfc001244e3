// Package backtest orchestrates a simulation run: it fetches the bar series,
// probes the strategy's calling convention, drives the matching engine over
// a fresh portfolio and assembles the final result.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quantlab/backsim/market"
	"github.com/quantlab/backsim/sim"
	"github.com/quantlab/backsim/store"
	"github.com/quantlab/backsim/strategy"
)

// ErrNoData is returned when the data source has no bars for the requested
// symbol and date range. It is fatal: the run aborts before the simulation
// loop starts.
var ErrNoData = errors.New("backtest: no bar data for symbol/date range")

// Config holds the run parameters common to both execution modes.
type Config struct {
	InitialCash   float64
	BrokerageRate float64
	CashFraction  float64 // default 0.95
	Lookback      int     // default 1000
	AllowReverse  bool
}

// Result is what the presentation layer consumes.
type Result struct {
	Trades      []sim.Trade
	EquityCurve []sim.EquityPoint
	Metrics     sim.Metrics
	PriceData   []market.Bar
}

// Runner is the simulation controller. One Runner may serve many runs;
// each run gets its own Portfolio, so runs over different symbols and
// strategies can proceed in parallel as long as the shared DataSource
// tolerates concurrent readers.
type Runner struct {
	Source   store.DataSource
	Config   Config
	Progress sim.ProgressFunc
}

// Run executes one simulation of strat over symbol in [start, end].
//
// strat must satisfy strategy.BatchDriven or strategy.BarDriven; the probe
// happens once, here, and selects the trade-log translator or the bar engine
// respectively. The caller receives either a completed Result or a single
// error naming the collaborator that failed.
func (r *Runner) Run(ctx context.Context, symbol string, strat any, start, end time.Time) (*Result, error) {
	if r.Source == nil {
		return nil, fmt.Errorf("backtest: data source is required")
	}
	if strat == nil {
		return nil, fmt.Errorf("backtest: strategy is required")
	}

	r.progress(5, "Fetching price data")

	bars, err := r.Source.Bars(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("market data: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s %s..%s", ErrNoData, symbol,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	r.progress(15, "Strategy ready")

	pf := sim.NewPortfolio(r.Config.InitialCash)

	var equity []float64
	switch s := strat.(type) {
	case strategy.BatchDriven:
		slog.Debug("running batch-driven strategy", "strategy", s.Name(), "bars", len(bars))
		equity, err = r.runBatch(ctx, s, bars, pf)

	case strategy.BarDriven:
		slog.Debug("running bar-driven strategy", "strategy", s.Name(), "bars", len(bars))
		equity, err = r.runBars(ctx, symbol, s, bars, pf)

	default:
		return nil, fmt.Errorf("backtest: strategy %T satisfies neither contract", strat)
	}
	if err != nil {
		return nil, err
	}

	r.progress(95, "Calculating metrics")
	metrics := sim.Calculate(pf.Trades, equity, pf.InitialCash)

	r.progress(100, "Backtest complete")

	return &Result{
		Trades:      pf.Trades,
		EquityCurve: pf.Equity,
		Metrics:     metrics,
		PriceData:   bars,
	}, nil
}

func (r *Runner) runBars(ctx context.Context, symbol string, s strategy.BarDriven, bars []market.Bar, pf *sim.Portfolio) ([]float64, error) {
	engine := sim.NewEngine(sim.EngineConfig{
		CashFraction:  r.Config.CashFraction,
		BrokerageRate: r.Config.BrokerageRate,
		Lookback:      r.Config.Lookback,
		AllowReverse:  r.Config.AllowReverse,
	})
	return engine.Run(ctx, symbol, s, bars, pf, r.Progress)
}

func (r *Runner) runBatch(ctx context.Context, s strategy.BatchDriven, bars []market.Bar, pf *sim.Portfolio) ([]float64, error) {
	r.progress(30, "Running strategy")

	if err := s.RunOnce(ctx, bars); err != nil {
		return nil, fmt.Errorf("strategy %s: %w", s.Name(), err)
	}

	r.progress(70, "Processing trades")

	translator := sim.NewTranslator(r.Config.BrokerageRate)
	translator.Apply(pf, s.TradeLog())

	r.progress(80, "Calculating equity curve")

	return translator.SynthesizeEquity(pf, bars), nil
}

func (r *Runner) progress(pct int, msg string) {
	if r.Progress != nil {
		r.Progress(pct, msg)
	}
}
