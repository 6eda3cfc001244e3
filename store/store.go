// Package store supplies historical market data to the simulation: ordered
// OHLCV bar series per symbol and option premiums keyed by strike, kind,
// observation date and expiry.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/quantlab/backsim/market"
)

// ErrNotFound is returned when a premium lookup misses. Callers are expected
// to fall back to a theoretical estimate rather than abort.
var ErrNotFound = errors.New("store: not found")

// DataSource is the read side consumed by the simulation engine. Bar series
// must come back ordered by time. Implementations must be safe for concurrent
// readers: parallel simulations share a single source.
type DataSource interface {
	// Bars returns the bar series for symbol within [start, end], ordered
	// ascending by time. An empty result is not an error here; the
	// simulation controller treats it as fatal.
	Bars(ctx context.Context, symbol string, start, end time.Time) ([]market.Bar, error)

	// OptionPremium returns the recorded premium for the contract closest in
	// time to date, or ErrNotFound on a miss.
	OptionPremium(ctx context.Context, strike float64, kind market.OptionKind, date, expiry time.Time) (float64, error)
}
