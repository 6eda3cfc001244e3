package builtins

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/backsim/market"
)

func barsFromCloses(closes ...float64) []market.Bar {
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{
			Time:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:  c, High: c + 1, Low: c - 1, Close: c,
		}
	}
	return bars
}

func TestSMACrossDefaults(t *testing.T) {
	t.Parallel()

	s := NewSMACross(0, 0)
	assert.Equal(t, 20, s.Short)
	assert.Equal(t, 50, s.Long)
	assert.Equal(t, "sma-cross", s.Name())
}

func TestSMACrossBullish(t *testing.T) {
	t.Parallel()

	s := NewSMACross(2, 3)
	history := barsFromCloses(10, 9, 8, 7, 20)

	sig, err := s.GenerateSignal(history[len(history)-1], history)
	require.NoError(t, err)
	assert.Equal(t, market.OpenLong, sig.Action)
}

func TestSMACrossBearish(t *testing.T) {
	t.Parallel()

	s := NewSMACross(2, 3)
	history := barsFromCloses(10, 11, 12, 13, 2)

	sig, err := s.GenerateSignal(history[len(history)-1], history)
	require.NoError(t, err)
	assert.Equal(t, market.CloseLong, sig.Action)
}

func TestSMACrossNoCross(t *testing.T) {
	t.Parallel()

	s := NewSMACross(2, 3)
	// Steadily rising: short stays above long, no new cross.
	history := barsFromCloses(10, 11, 12, 13, 14)

	sig, err := s.GenerateSignal(history[len(history)-1], history)
	require.NoError(t, err)
	assert.Equal(t, market.Hold, sig.Action)
}

func TestSMACrossWarmup(t *testing.T) {
	t.Parallel()

	s := NewSMACross(2, 3)
	history := barsFromCloses(10, 11, 12) // needs long+1 bars

	sig, err := s.GenerateSignal(history[len(history)-1], history)
	require.NoError(t, err)
	assert.Equal(t, market.Hold, sig.Action)
}

func TestSMACrossInvalidWindows(t *testing.T) {
	t.Parallel()

	s := &SMACross{Short: 50, Long: 20}
	history := barsFromCloses(10, 11, 12, 13, 14)

	_, err := s.GenerateSignal(history[len(history)-1], history)
	assert.Error(t, err)
}
