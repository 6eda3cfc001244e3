package sim

import (
	"context"
	"fmt"

	"github.com/quantlab/backsim/market"
	"github.com/quantlab/backsim/strategy"
)

// ProgressFunc receives coarse progress updates, at most ~50 per run.
type ProgressFunc func(percent int, message string)

// equityLookback bounds the history window handed to a strategy each bar.
const equityLookback = 1000

// sampleEvery thins the externally visible equity curve on long runs; the
// full-fidelity array is kept separately for metrics.
const (
	sampleThreshold = 1000
	sampleEvery     = 10
)

// EngineConfig holds the parameters of a bar-driven run.
type EngineConfig struct {
	CashFraction  float64 // fraction of cash committed per open, default 0.95
	BrokerageRate float64 // charged on notional, both legs
	Lookback      int     // history window size, default 1000

	// AllowReverse enables the reversal transition: an opposing open signal
	// against a live position closes it and opens the other way in the same
	// bar. Off by default; the plain table treats it as a no-op.
	AllowReverse bool
}

// Engine drives the bar-driven mode: one signal per bar, applied to the
// ledger through the four canonical transitions.
type Engine struct {
	cfg EngineConfig
}

// NewEngine creates an Engine, filling config defaults.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.CashFraction <= 0 {
		cfg.CashFraction = 0.95
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = equityLookback
	}
	return &Engine{cfg: cfg}
}

// Run replays bars through strat, mutating pf. It returns the full-fidelity
// equity array (one value per processed bar), which metrics must be computed
// from; pf.Equity receives the sampled curve.
//
// A strategy error aborts the run: portfolio integrity cannot be guaranteed
// after a partial mutation, so there is no per-bar retry. Cancellation is
// cooperative, checked between bars; the partial result stands.
func (e *Engine) Run(ctx context.Context, symbol string, strat strategy.BarDriven, bars []market.Bar, pf *Portfolio, progress ProgressFunc) ([]float64, error) {
	n := len(bars)
	equity := make([]float64, 0, n)

	// Ceiling division keeps the callback count at or below 50.
	progressInterval := (n + 49) / 50
	if progressInterval < 1 {
		progressInterval = 1
	}

	for idx, bar := range bars {
		select {
		case <-ctx.Done():
			return equity, nil
		default:
		}

		window := market.Window(bars, idx, e.cfg.Lookback)

		sig, err := strat.GenerateSignal(bar, window)
		if err != nil {
			return equity, fmt.Errorf("strategy %s: %w", strat.Name(), err)
		}

		e.apply(pf, symbol, bar, sig)

		eq := pf.Cash + pf.MarkValue(bar.Close)
		equity = append(equity, eq)

		if n < sampleThreshold || idx%sampleEvery == 0 || idx == n-1 {
			pf.Equity = append(pf.Equity, EquityPoint{
				Time:           bar.Time,
				Equity:         eq,
				Cash:           pf.Cash,
				PositionsValue: eq - pf.Cash,
			})
		}

		if progress != nil && idx%progressInterval == 0 {
			pct := 20 + idx*70/n
			progress(pct, fmt.Sprintf("Processing bar %d/%d", idx+1, n))
		}
	}

	return equity, nil
}

// apply runs one signal through the {Flat, Long, Short} transition table.
// Signals that do not match the current state are no-ops.
func (e *Engine) apply(pf *Portfolio, symbol string, bar market.Bar, sig market.Signal) {
	pos := pf.Positions[symbol]

	switch sig.Action {
	case market.OpenLong:
		if pos == nil {
			pf.OpenLong(symbol, bar.Time, bar.Close, e.cfg.CashFraction, e.cfg.BrokerageRate, sig)
		} else if pos.Side == Short && e.cfg.AllowReverse {
			if pf.CloseShort(symbol, bar.Time, bar.Close, e.cfg.BrokerageRate, sig) {
				pf.OpenLong(symbol, bar.Time, bar.Close, e.cfg.CashFraction, e.cfg.BrokerageRate, sig)
			}
		}

	case market.CloseLong:
		if pos != nil && pos.Side == Long {
			pf.CloseLong(symbol, bar.Time, bar.Close, e.cfg.BrokerageRate, sig)
		}

	case market.OpenShort:
		if pos == nil {
			pf.OpenShort(symbol, bar.Time, bar.Close, e.cfg.CashFraction, e.cfg.BrokerageRate)
		} else if pos.Side == Long && e.cfg.AllowReverse {
			if pf.CloseLong(symbol, bar.Time, bar.Close, e.cfg.BrokerageRate, sig) {
				pf.OpenShort(symbol, bar.Time, bar.Close, e.cfg.CashFraction, e.cfg.BrokerageRate)
			}
		}

	case market.CloseShort:
		if pos != nil && pos.Side == Short {
			pf.CloseShort(symbol, bar.Time, bar.Close, e.cfg.BrokerageRate, sig)
		}
	}
}
