// Package journal persists the outcome of a simulation run: the trade
// ledger and the sampled equity curve. Two backends are provided, CSV
// for quick inspection and SQLite for querying across runs.
package journal

import (
	"time"

	"github.com/quantlab/backsim/sim"
)

type TradeRecord struct {
	TradeID     string
	RunID       string
	Symbol      string
	Action      string
	Quantity    int64
	Price       float64
	GrossValue  float64
	Brokerage   float64
	RealizedPnL float64
	NetEffect   float64
	Time        time.Time
	Reason      string
}

type EquityRecord struct {
	RunID          string
	Time           time.Time
	Equity         float64
	Cash           float64
	PositionsValue float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquityRecord) error
	Close() error
}

// FromTrade maps a ledger trade onto its persisted form.
func FromTrade(runID string, t sim.Trade) TradeRecord {
	return TradeRecord{
		TradeID:     t.ID,
		RunID:       runID,
		Symbol:      t.Symbol,
		Action:      string(t.Action),
		Quantity:    int64(t.Quantity),
		Price:       t.Price,
		GrossValue:  t.GrossValue,
		Brokerage:   t.Brokerage,
		RealizedPnL: t.RealizedPnL,
		NetEffect:   t.NetEffect,
		Time:        t.Time,
		Reason:      t.ExitReason,
	}
}

// FromEquity maps a sampled equity point onto its persisted form.
func FromEquity(runID string, p sim.EquityPoint) EquityRecord {
	return EquityRecord{
		RunID:          runID,
		Time:           p.Time,
		Equity:         p.Equity,
		Cash:           p.Cash,
		PositionsValue: p.PositionsValue,
	}
}
