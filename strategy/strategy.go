// Package strategy defines the two calling conventions the simulation engine
// supports and a Registry for looking strategies up by name.
//
// A strategy implements exactly one of the two contracts. BarDriven
// strategies are interrogated once per bar and answer with a Signal.
// BatchDriven strategies receive the whole series up front, manage their own
// (typically multi-leg option) positions internally, and expose the finished
// trade log afterwards. The controller probes which contract a strategy
// satisfies once, at run start.
package strategy

import (
	"context"
	"sort"
	"time"

	"github.com/quantlab/backsim/market"
)

// BarDriven is the per-bar contract: one signal per bar, given the current
// bar and a bounded history window ending at it.
type BarDriven interface {
	Name() string

	// GenerateSignal is called once per bar. history includes bar as its
	// last element. Errors abort the run.
	GenerateSignal(bar market.Bar, history []market.Bar) (market.Signal, error)
}

// BatchDriven is the whole-series contract.
type BatchDriven interface {
	Name() string

	// RunOnce processes the full bar series and builds the internal trade
	// log. Called exactly once per run.
	RunOnce(ctx context.Context, bars []market.Bar) error

	// TradeLog returns the ordered open/close events produced by RunOnce.
	TradeLog() []TradeEvent
}

// EventAction tags a TradeEvent as an open or a close.
type EventAction string

const (
	EventOpen  EventAction = "ENTRY"
	EventClose EventAction = "EXIT"
)

// TradeEvent is one row of a batch-driven strategy's trade log.
//
// For opens, exactly one of Credit and Debit should be non-zero; when a
// strategy reports both, the translator prefers the credit path (a documented
// quirk, kept as-is). For closes, PnL is the strategy's own net figure and
// ClosingCost the buy-back cost of short legs, if any.
type TradeEvent struct {
	PositionID int
	Action     EventAction
	Time       time.Time
	Spot       float64

	// Open fields.
	Credit  float64
	Debit   float64
	Legs    []market.Leg
	NumLegs int

	// Close fields.
	PnL         float64
	PnLPct      float64
	ClosingCost float64
	ExitReason  string
	DaysHeld    int
}

// Registry holds a named collection of strategies. A strategy registers as
// whichever contract it implements.
type Registry struct {
	bar   map[string]BarDriven
	batch map[string]BatchDriven
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		bar:   make(map[string]BarDriven),
		batch: make(map[string]BatchDriven),
	}
}

// RegisterBar adds a bar-driven strategy, keyed by its Name().
func (r *Registry) RegisterBar(s BarDriven) {
	r.bar[s.Name()] = s
}

// RegisterBatch adds a batch-driven strategy, keyed by its Name().
func (r *Registry) RegisterBatch(s BatchDriven) {
	r.batch[s.Name()] = s
}

// Get returns the strategy registered under name as an opaque value suitable
// for the controller's capability probe. The second return reports whether
// the name was found.
func (r *Registry) Get(name string) (any, bool) {
	if s, ok := r.batch[name]; ok {
		return s, true
	}
	if s, ok := r.bar[name]; ok {
		return s, true
	}
	return nil, false
}

// List returns the sorted names of all registered strategies.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.bar)+len(r.batch))
	for name := range r.bar {
		names = append(names, name)
	}
	for name := range r.batch {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
