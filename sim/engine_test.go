package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/backsim/market"
)

// scriptedStrategy replays a fixed sequence of actions, one per bar, holding
// once the script runs out.
type scriptedStrategy struct {
	actions []market.SignalAction
	calls   int
	lastLen int
	err     error
}

func (s *scriptedStrategy) Name() string { return "scripted" }

func (s *scriptedStrategy) GenerateSignal(bar market.Bar, history []market.Bar) (market.Signal, error) {
	s.lastLen = len(history)
	if s.err != nil {
		return market.Signal{}, s.err
	}
	idx := s.calls
	s.calls++
	if idx < len(s.actions) {
		return market.Signal{Action: s.actions[idx]}, nil
	}
	return market.HoldSignal(), nil
}

func makeBars(n int, price float64) []market.Bar {
	bars := make([]market.Bar, n)
	for i := range bars {
		bars[i] = market.Bar{
			Time:   time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC).Add(time.Duration(i) * 24 * time.Hour),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000,
		}
	}
	return bars
}

func TestEngineRoundTrip(t *testing.T) {
	t.Parallel()

	strat := &scriptedStrategy{actions: []market.SignalAction{
		market.Hold, market.OpenLong, market.Hold, market.CloseLong,
	}}
	pf := NewPortfolio(100000)
	e := NewEngine(EngineConfig{BrokerageRate: testRate})

	equity, err := e.Run(context.Background(), "NIFTY", strat, makeBars(6, 100), pf, nil)
	require.NoError(t, err)

	assert.Len(t, equity, 6)
	assert.Len(t, pf.Trades, 2)
	assert.Equal(t, ActionOpenLong, pf.Trades[0].Action)
	assert.Equal(t, ActionCloseLong, pf.Trades[1].Action)
	assert.Empty(t, pf.Positions)
}

func TestEngineIgnoresMismatchedSignals(t *testing.T) {
	t.Parallel()

	// CloseLong while flat, CloseShort while long, OpenLong on top of an
	// existing long: all no-ops.
	strat := &scriptedStrategy{actions: []market.SignalAction{
		market.CloseLong, market.OpenLong, market.CloseShort, market.OpenLong,
	}}
	pf := NewPortfolio(100000)
	e := NewEngine(EngineConfig{BrokerageRate: testRate})

	_, err := e.Run(context.Background(), "NIFTY", strat, makeBars(5, 100), pf, nil)
	require.NoError(t, err)

	assert.Len(t, pf.Trades, 1)
	assert.NotNil(t, pf.Positions["NIFTY"])
}

func TestEngineReverseDisabledByDefault(t *testing.T) {
	t.Parallel()

	strat := &scriptedStrategy{actions: []market.SignalAction{
		market.OpenLong, market.OpenShort,
	}}
	pf := NewPortfolio(100000)
	e := NewEngine(EngineConfig{BrokerageRate: testRate})

	_, err := e.Run(context.Background(), "NIFTY", strat, makeBars(3, 100), pf, nil)
	require.NoError(t, err)

	require.Len(t, pf.Trades, 1)
	assert.Equal(t, Long, pf.Positions["NIFTY"].Side)
}

func TestEngineReverse(t *testing.T) {
	t.Parallel()

	t.Run("long to short", func(t *testing.T) {
		strat := &scriptedStrategy{actions: []market.SignalAction{
			market.OpenLong, market.OpenShort,
		}}
		pf := NewPortfolio(100000)
		e := NewEngine(EngineConfig{BrokerageRate: testRate, AllowReverse: true})

		_, err := e.Run(context.Background(), "NIFTY", strat, makeBars(3, 100), pf, nil)
		require.NoError(t, err)

		require.Len(t, pf.Trades, 3)
		assert.Equal(t, ActionCloseLong, pf.Trades[1].Action)
		assert.Equal(t, ActionOpenShort, pf.Trades[2].Action)
		assert.Equal(t, Short, pf.Positions["NIFTY"].Side)
	})

	t.Run("short to long", func(t *testing.T) {
		strat := &scriptedStrategy{actions: []market.SignalAction{
			market.OpenShort, market.OpenLong,
		}}
		pf := NewPortfolio(100000)
		e := NewEngine(EngineConfig{BrokerageRate: testRate, AllowReverse: true})

		_, err := e.Run(context.Background(), "NIFTY", strat, makeBars(3, 100), pf, nil)
		require.NoError(t, err)

		require.Len(t, pf.Trades, 3)
		assert.Equal(t, ActionCloseShort, pf.Trades[1].Action)
		assert.Equal(t, ActionOpenLong, pf.Trades[2].Action)
		assert.Equal(t, Long, pf.Positions["NIFTY"].Side)
	})
}

func TestEngineStrategyErrorAborts(t *testing.T) {
	t.Parallel()

	strat := &scriptedStrategy{err: errors.New("boom")}
	pf := NewPortfolio(100000)
	e := NewEngine(EngineConfig{})

	equity, err := e.Run(context.Background(), "NIFTY", strat, makeBars(10, 100), pf, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scripted")
	assert.Empty(t, equity)
}

func TestEngineCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	bars := makeBars(100, 100)
	pf := NewPortfolio(100000)
	e := NewEngine(EngineConfig{})

	// Cancel midway through the run via the progress callback.
	var equity []float64
	var err error
	progress := func(pct int, msg string) {
		if pct >= 50 {
			cancel()
		}
	}
	equity, err = e.Run(ctx, "NIFTY", &scriptedStrategy{}, bars, pf, progress)

	require.NoError(t, err)
	assert.Greater(t, len(equity), 0)
	assert.Less(t, len(equity), len(bars))
}

func TestEngineLookbackWindow(t *testing.T) {
	t.Parallel()

	strat := &scriptedStrategy{}
	pf := NewPortfolio(100000)
	e := NewEngine(EngineConfig{Lookback: 10})

	_, err := e.Run(context.Background(), "NIFTY", strat, makeBars(50, 100), pf, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, strat.lastLen)
}

func TestEngineEquitySampling(t *testing.T) {
	t.Parallel()

	t.Run("short run keeps every point", func(t *testing.T) {
		pf := NewPortfolio(100000)
		e := NewEngine(EngineConfig{})
		equity, err := e.Run(context.Background(), "NIFTY", &scriptedStrategy{}, makeBars(42, 100), pf, nil)
		require.NoError(t, err)
		assert.Len(t, equity, 42)
		assert.Len(t, pf.Equity, 42)
	})

	t.Run("long run is thinned", func(t *testing.T) {
		n := 2500
		pf := NewPortfolio(100000)
		e := NewEngine(EngineConfig{})
		equity, err := e.Run(context.Background(), "NIFTY", &scriptedStrategy{}, makeBars(n, 100), pf, nil)
		require.NoError(t, err)

		assert.Len(t, equity, n)
		// Every 10th bar plus the final one.
		assert.Len(t, pf.Equity, n/10+1)
		assert.Equal(t, equity[n-1], pf.Equity[len(pf.Equity)-1].Equity)
	})
}

func TestEngineProgressBounded(t *testing.T) {
	t.Parallel()

	var calls int
	var pcts []int
	progress := func(pct int, msg string) {
		calls++
		pcts = append(pcts, pct)
	}

	pf := NewPortfolio(100000)
	e := NewEngine(EngineConfig{})
	_, err := e.Run(context.Background(), "NIFTY", &scriptedStrategy{}, makeBars(1234, 100), pf, progress)
	require.NoError(t, err)

	assert.LessOrEqual(t, calls, 50)
	for _, pct := range pcts {
		assert.GreaterOrEqual(t, pct, 20)
		assert.Less(t, pct, 90)
	}
	assert.Equal(t, 20, pcts[0])
}
