// Package market holds the core market-data and signal types shared by the
// data store, the strategies and the simulation engine.
package market

import "time"

// Bar represents one OHLCV sample for a fixed time interval.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Window returns the trailing slice of bars ending at index idx (inclusive),
// at most lookback bars long. It shares backing storage with bars.
func Window(bars []Bar, idx, lookback int) []Bar {
	start := idx + 1 - lookback
	if start < 0 {
		start = 0
	}
	return bars[start : idx+1]
}

// Closes extracts the close prices of a bar slice.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
