package journal

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, run_id, symbol, action, quantity, price, gross_value, brokerage, realized_pnl, net_effect, time, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.RunID, t.Symbol, t.Action, t.Quantity, t.Price,
		t.GrossValue, t.Brokerage, t.RealizedPnL, t.NetEffect, t.Time, t.Reason,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquityRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, time, equity, cash, positions_value)
		VALUES (?, ?, ?, ?, ?)`,
		e.RunID, e.Time, e.Equity, e.Cash, e.PositionsValue,
	)
	return err
}

// ListTrades returns the trades of a run in execution order.
func (j *SQLiteJournal) ListTrades(ctx context.Context, runID string) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, run_id, symbol, action, quantity, price, gross_value,
		       brokerage, realized_pnl, net_effect, time, reason
		FROM trades WHERE run_id = ? ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.TradeID, &t.RunID, &t.Symbol, &t.Action,
			&t.Quantity, &t.Price, &t.GrossValue, &t.Brokerage,
			&t.RealizedPnL, &t.NetEffect, &t.Time, &t.Reason); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListEquityBetween returns the stored curve of a run within [start, end].
func (j *SQLiteJournal) ListEquityBetween(ctx context.Context, runID string, start, end time.Time) ([]EquityRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, time, equity, cash, positions_value
		FROM equity WHERE run_id = ? AND time >= ? AND time <= ?
		ORDER BY time ASC`, runID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquityRecord
	for rows.Next() {
		var e EquityRecord
		if err := rows.Scan(&e.RunID, &e.Time, &e.Equity, &e.Cash, &e.PositionsValue); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
