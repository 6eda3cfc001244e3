package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quantlab/backsim/market"
)

const schema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	time DATETIME NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL,
	PRIMARY KEY (symbol, time)
);

CREATE TABLE IF NOT EXISTS option_premiums (
	strike REAL NOT NULL,
	kind TEXT NOT NULL,
	expiry DATETIME NOT NULL,
	time DATETIME NOT NULL,
	premium REAL NOT NULL,
	PRIMARY KEY (strike, kind, expiry, time)
);

CREATE INDEX IF NOT EXISTS idx_bars_symbol_time ON bars(symbol, time);
`

// SQLite is a DataSource backed by a SQLite database, with an in-memory
// read cache in front of it.
//
// Per-leg, per-bar premium lookups are the hot path of option backtests, so
// both bar-series and premium queries are memoized. The cache takes an
// RWMutex: many simulations may read concurrently, the engine itself issues
// no locking.
type SQLite struct {
	db *sql.DB

	mu       sync.RWMutex
	bars     map[string][]market.Bar
	premiums map[string]float64
	misses   map[string]struct{}
}

// NewSQLite opens (or creates) the database at path and prepares the schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init store schema: %w", err)
	}

	return &SQLite{
		db:       db,
		bars:     make(map[string][]market.Bar),
		premiums: make(map[string]float64),
		misses:   make(map[string]struct{}),
	}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// WriteBars persists a batch of bars for symbol, replacing duplicates.
func (s *SQLite) WriteBars(ctx context.Context, symbol string, bars []market.Bar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO bars (symbol, time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.Exec(symbol, b.Time.UTC(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	// Invalidate cached series for this symbol.
	s.mu.Lock()
	for k := range s.bars {
		if keySymbol(k) == symbol {
			delete(s.bars, k)
		}
	}
	s.mu.Unlock()
	return nil
}

// WritePremium persists one option premium observation.
func (s *SQLite) WritePremium(ctx context.Context, strike float64, kind market.OptionKind, expiry, t time.Time, premium float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO option_premiums (strike, kind, expiry, time, premium)
		VALUES (?, ?, ?, ?, ?)`,
		strike, string(kind), expiry.UTC(), t.UTC(), premium)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.premiums = make(map[string]float64)
	s.misses = make(map[string]struct{})
	s.mu.Unlock()
	return nil
}

// Bars implements DataSource.
func (s *SQLite) Bars(ctx context.Context, symbol string, start, end time.Time) ([]market.Bar, error) {
	key := barsKey(symbol, start, end)

	s.mu.RLock()
	if cached, ok := s.bars[key]; ok {
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT time, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND time >= ? AND time <= ?
		ORDER BY time ASC`,
		symbol, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query bars %q: %w", symbol, err)
	}
	defer rows.Close()

	var out []market.Bar
	for rows.Next() {
		var b market.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.bars[key] = out
	s.mu.Unlock()
	return out, nil
}

// OptionPremium implements DataSource. It returns the premium observation
// closest in time to date for the given contract, looking one day either side
// the way the upstream data layer did.
func (s *SQLite) OptionPremium(ctx context.Context, strike float64, kind market.OptionKind, date, expiry time.Time) (float64, error) {
	key := premiumKey(strike, kind, date, expiry)

	s.mu.RLock()
	if p, ok := s.premiums[key]; ok {
		s.mu.RUnlock()
		return p, nil
	}
	if _, missed := s.misses[key]; missed {
		s.mu.RUnlock()
		return 0, ErrNotFound
	}
	s.mu.RUnlock()

	lo := date.Add(-24 * time.Hour).UTC()
	hi := date.Add(24 * time.Hour).UTC()

	row := s.db.QueryRowContext(ctx, `
		SELECT premium
		FROM option_premiums
		WHERE strike = ? AND kind = ? AND expiry = ? AND time >= ? AND time <= ?
		ORDER BY ABS(strftime('%s', time) - strftime('%s', ?)) ASC
		LIMIT 1`,
		strike, string(kind), expiry.UTC(), lo, hi, date.UTC())

	var premium float64
	if err := row.Scan(&premium); err != nil {
		if err == sql.ErrNoRows {
			s.mu.Lock()
			s.misses[key] = struct{}{}
			s.mu.Unlock()
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("query premium: %w", err)
	}

	s.mu.Lock()
	s.premiums[key] = premium
	s.mu.Unlock()
	return premium, nil
}

func barsKey(symbol string, start, end time.Time) string {
	return symbol + "|" + start.UTC().Format(time.RFC3339) + "|" + end.UTC().Format(time.RFC3339)
}

func keySymbol(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == '|' {
			return key[:i]
		}
	}
	return key
}

func premiumKey(strike float64, kind market.OptionKind, date, expiry time.Time) string {
	return fmt.Sprintf("%.4f|%s|%d|%d", strike, kind, date.Unix(), expiry.Unix())
}
