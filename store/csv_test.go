package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadBarsCSV(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, `time,open,high,low,close,volume
2024-01-01T09:15:00Z,100,102,99,101,5000
2024-01-02T09:15:00Z,101,103,100,102,6000
`)

	bars, err := LoadBarsCSV(path, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.InDelta(t, 100, bars[0].Open, 1e-9)
	assert.InDelta(t, 101, bars[0].Close, 1e-9)
	assert.InDelta(t, 5000, bars[0].Volume, 1e-9)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC), bars[0].Time)
}

func TestLoadBarsCSVNoHeader(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, "2024-01-01T09:15:00Z,100,102,99,101,5000\n")
	bars, err := LoadBarsCSV(path, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestLoadBarsCSVNoVolume(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, "2024-01-01T09:15:00Z,100,102,99,101\n")
	bars, err := LoadBarsCSV(path, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Zero(t, bars[0].Volume)
}

func TestLoadBarsCSVSkipsShortRows(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, `2024-01-01T09:15:00Z,100,102,99,101
2024-01-02T09:15:00Z,101
2024-01-03T09:15:00Z,101,103,100,102
`)
	bars, err := LoadBarsCSV(path, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, bars, 2)
}

func TestLoadBarsCSVRangeFilter(t *testing.T) {
	t.Parallel()

	path := writeCSV(t, `2024-01-01T09:15:00Z,100,102,99,101
2024-01-02T09:15:00Z,101,103,100,102
2024-01-03T09:15:00Z,102,104,101,103
`)

	from := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	bars, err := LoadBarsCSV(path, from, to)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.InDelta(t, 102, bars[0].Close, 1e-9)
}

func TestLoadBarsCSVBadData(t *testing.T) {
	t.Parallel()

	t.Run("bad time", func(t *testing.T) {
		path := writeCSV(t, "yesterday,100,102,99,101\n")
		_, err := LoadBarsCSV(path, time.Time{}, time.Time{})
		assert.Error(t, err)
	})

	t.Run("bad price", func(t *testing.T) {
		path := writeCSV(t, "2024-01-01T09:15:00Z,100,x,99,101\n")
		_, err := LoadBarsCSV(path, time.Time{}, time.Time{})
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadBarsCSV(filepath.Join(t.TempDir(), "nope.csv"), time.Time{}, time.Time{})
		assert.Error(t, err)
	})
}
