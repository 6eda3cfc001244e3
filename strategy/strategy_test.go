package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/backsim/market"
)

type stubBar struct{ name string }

func (s stubBar) Name() string { return s.name }

func (s stubBar) GenerateSignal(bar market.Bar, history []market.Bar) (market.Signal, error) {
	return market.HoldSignal(), nil
}

type stubBatch struct{ name string }

func (s stubBatch) Name() string { return s.name }

func (s stubBatch) RunOnce(ctx context.Context, bars []market.Bar) error { return nil }

func (s stubBatch) TradeLog() []TradeEvent { return nil }

func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.RegisterBar(stubBar{name: "alpha"})
	reg.RegisterBatch(stubBatch{name: "beta"})

	got, ok := reg.Get("alpha")
	require.True(t, ok)
	_, isBar := got.(BarDriven)
	assert.True(t, isBar)

	got, ok = reg.Get("beta")
	require.True(t, ok)
	_, isBatch := got.(BatchDriven)
	assert.True(t, isBatch)

	_, ok = reg.Get("gamma")
	assert.False(t, ok)
}

func TestRegistryList(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.RegisterBar(stubBar{name: "zeta"})
	reg.RegisterBatch(stubBatch{name: "alpha"})
	reg.RegisterBar(stubBar{name: "mid"})

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, reg.List())
}

func TestRegistryBatchWinsNameCollision(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.RegisterBar(stubBar{name: "same"})
	reg.RegisterBatch(stubBatch{name: "same"})

	got, ok := reg.Get("same")
	require.True(t, ok)
	_, isBatch := got.(BatchDriven)
	assert.True(t, isBatch)
}
