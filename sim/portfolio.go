// Package sim contains the simulation core: the portfolio state machine, the
// two execution modes (bar-driven and trade-log-driven) and the metrics
// calculator. A Portfolio lives for exactly one run and is mutated by exactly
// one engine.
package sim

import (
	"math"
	"time"

	"github.com/quantlab/backsim/internal/id"
	"github.com/quantlab/backsim/market"
)

// Side of an open position.
type Side int8

const (
	Long  Side = +1
	Short Side = -1
)

// TradeAction tags a trade record. The first four come from the bar-driven
// engine, the last three from the options trade-log translator.
type TradeAction string

const (
	ActionOpenLong   TradeAction = "OPEN_LONG"
	ActionCloseLong  TradeAction = "CLOSE_LONG"
	ActionOpenShort  TradeAction = "OPEN_SHORT"
	ActionCloseShort TradeAction = "CLOSE_SHORT"
	ActionOpenCredit TradeAction = "OPEN_CREDIT"
	ActionOpenDebit  TradeAction = "OPEN_DEBIT"
	ActionClose      TradeAction = "CLOSE"
)

// IsClose reports whether the action closes a position. Only closing trades
// carry realized P&L and count toward win/loss statistics.
func (a TradeAction) IsClose() bool {
	switch a {
	case ActionCloseLong, ActionCloseShort, ActionClose:
		return true
	}
	return false
}

// Position is one open position. At most one Position exists per symbol key
// at any time; there is no netting of partial fills.
type Position struct {
	ID        string
	Symbol    string
	Side      Side
	Quantity  int // negative for shorts
	CostBasis float64
	Brokerage float64 // entry-side brokerage, settled at close
	OpenedAt  time.Time
	Legs      []market.Leg
	LotSize   int
}

// Trade is an immutable, append-only record. Brokerage is the charge incurred
// by this trade alone; a closing trade's RealizedPnL nevertheless nets out
// both sides of the round trip.
type Trade struct {
	ID          string
	PositionID  string
	Time        time.Time
	Action      TradeAction
	Symbol      string
	Quantity    int
	Price       float64
	GrossValue  float64
	Brokerage   float64
	RealizedPnL float64
	PnLPct      float64
	Legs        []market.Leg
	NetEffect   float64 // cash delta applied by this trade
	ExitReason  string
	DaysHeld    int
}

// EquityPoint is one sample of the externally visible equity curve.
type EquityPoint struct {
	Time           time.Time
	Equity         float64
	Cash           float64
	PositionsValue float64
}

// Portfolio is the in-memory ledger for one simulation run.
type Portfolio struct {
	InitialCash float64
	Cash        float64
	Positions   map[string]*Position
	Trades      []Trade
	Equity      []EquityPoint
}

// NewPortfolio creates a portfolio funded with initialCash.
func NewPortfolio(initialCash float64) *Portfolio {
	return &Portfolio{
		InitialCash: initialCash,
		Cash:        initialCash,
		Positions:   make(map[string]*Position),
	}
}

// MarkValue returns the signed notional of all open positions at price.
func (p *Portfolio) MarkValue(price float64) float64 {
	total := 0.0
	for _, pos := range p.Positions {
		total += float64(pos.Quantity) * price
	}
	return total
}

// OpenLong opens a long position in symbol at price. It reports whether a
// trade was appended; preconditions that fail leave the portfolio untouched.
//
// Equity positions are sized against the cash budget including the entry
// brokerage: quantity = floor(cash*fraction / (price*(1+rate))), so the full
// round-trip entry always fits inside the allotted fraction. Option-bearing
// signals open a fixed single lot instead, costed at the strategy-reported
// net debit (price/100 as a last resort when the strategy reports nothing).
func (p *Portfolio) OpenLong(symbol string, t time.Time, price, cashFraction, rate float64, sig market.Signal) bool {
	if _, exists := p.Positions[symbol]; exists {
		return false
	}
	if price <= 0 {
		return false
	}

	var (
		quantity int
		cost     float64
		lotSize  = 1
		legs     []market.Leg
	)
	if len(sig.Legs) > 0 {
		quantity = 1
		cost = sig.NetDebit
		if cost <= 0 {
			cost = price * 0.01
		}
		if sig.LotSize > 0 {
			lotSize = sig.LotSize
		}
		legs = sig.Legs
	} else {
		budget := p.Cash * cashFraction
		quantity = int(math.Floor(budget / (price * (1 + rate))))
		cost = float64(quantity) * price
	}

	brokerage := cost * rate
	if quantity <= 0 || cost+brokerage > p.Cash {
		return false
	}

	posID := id.New()
	p.Positions[symbol] = &Position{
		ID:        posID,
		Symbol:    symbol,
		Side:      Long,
		Quantity:  quantity,
		CostBasis: cost,
		Brokerage: brokerage,
		OpenedAt:  t,
		Legs:      legs,
		LotSize:   lotSize,
	}
	p.Cash -= cost + brokerage

	p.Trades = append(p.Trades, Trade{
		ID:         id.New(),
		PositionID: posID,
		Time:       t,
		Action:     ActionOpenLong,
		Symbol:     symbol,
		Quantity:   quantity,
		Price:      price,
		GrossValue: cost,
		Brokerage:  brokerage,
		Legs:       legs,
		NetEffect:  -(cost + brokerage),
	})
	return true
}

// CloseLong closes the long position in symbol at price, realizing
// P&L = proceeds - entry value - (entry brokerage + exit brokerage).
//
// For option positions the proceeds are derived from the strategy's own
// reported P&L rather than recomputed from price, then clamped to
// [0, strike_width*lot_size] to reject impossible values.
func (p *Portfolio) CloseLong(symbol string, t time.Time, price, rate float64, sig market.Signal) bool {
	pos, ok := p.Positions[symbol]
	if !ok || pos.Side != Long {
		return false
	}

	var proceeds float64
	if len(pos.Legs) > 0 {
		proceeds = pos.CostBasis + sig.ReportedPnL
		maxValue := market.StrikeWidth(pos.Legs) * float64(pos.LotSize)
		if proceeds < 0 {
			proceeds = 0
		}
		if maxValue > 0 && proceeds > maxValue {
			proceeds = maxValue
		}
	} else {
		if price <= 0 {
			return false
		}
		proceeds = float64(pos.Quantity) * price
	}

	exitBrokerage := proceeds * rate
	pnl := proceeds - pos.CostBasis - pos.Brokerage - exitBrokerage
	pnlPct := 0.0
	if pos.CostBasis > 0 {
		pnlPct = pnl / pos.CostBasis * 100
	}

	p.Cash += proceeds - exitBrokerage
	delete(p.Positions, symbol)

	p.Trades = append(p.Trades, Trade{
		ID:          id.New(),
		PositionID:  pos.ID,
		Time:        t,
		Action:      ActionCloseLong,
		Symbol:      symbol,
		Quantity:    pos.Quantity,
		Price:       price,
		GrossValue:  proceeds,
		Brokerage:   exitBrokerage,
		RealizedPnL: pnl,
		PnLPct:      pnlPct,
		Legs:        pos.Legs,
		NetEffect:   proceeds - exitBrokerage,
		ExitReason:  sig.Reason,
	})
	return true
}

// OpenShort opens a short position, symmetric to OpenLong: quantity is sized
// off cash and stored negative, and the sale proceeds are credited to cash.
func (p *Portfolio) OpenShort(symbol string, t time.Time, price, cashFraction, rate float64) bool {
	if _, exists := p.Positions[symbol]; exists {
		return false
	}
	if price <= 0 {
		return false
	}

	budget := p.Cash * cashFraction
	quantity := int(math.Floor(budget / (price * (1 + rate))))
	cost := float64(quantity) * price
	brokerage := cost * rate
	if quantity <= 0 || cost+brokerage > p.Cash {
		return false
	}

	posID := id.New()
	p.Positions[symbol] = &Position{
		ID:        posID,
		Symbol:    symbol,
		Side:      Short,
		Quantity:  -quantity,
		CostBasis: cost,
		Brokerage: brokerage,
		OpenedAt:  t,
		LotSize:   1,
	}
	p.Cash += cost - brokerage

	p.Trades = append(p.Trades, Trade{
		ID:         id.New(),
		PositionID: posID,
		Time:       t,
		Action:     ActionOpenShort,
		Symbol:     symbol,
		Quantity:   -quantity,
		Price:      price,
		GrossValue: cost,
		Brokerage:  brokerage,
		NetEffect:  cost - brokerage,
	})
	return true
}

// CloseShort buys back the short position in symbol at price, realizing
// P&L = entry value - cost - total brokerage (profit when the price fell).
// No-op when no short position exists.
func (p *Portfolio) CloseShort(symbol string, t time.Time, price, rate float64, sig market.Signal) bool {
	pos, ok := p.Positions[symbol]
	if !ok || pos.Side != Short {
		return false
	}
	if price <= 0 {
		return false
	}

	quantity := -pos.Quantity
	cost := float64(quantity) * price
	exitBrokerage := cost * rate
	pnl := pos.CostBasis - cost - pos.Brokerage - exitBrokerage
	pnlPct := 0.0
	if pos.CostBasis > 0 {
		pnlPct = pnl / pos.CostBasis * 100
	}

	p.Cash -= cost + exitBrokerage
	delete(p.Positions, symbol)

	p.Trades = append(p.Trades, Trade{
		ID:          id.New(),
		PositionID:  pos.ID,
		Time:        t,
		Action:      ActionCloseShort,
		Symbol:      symbol,
		Quantity:    quantity,
		Price:       price,
		GrossValue:  cost,
		Brokerage:   exitBrokerage,
		RealizedPnL: pnl,
		PnLPct:      pnlPct,
		NetEffect:   -(cost + exitBrokerage),
		ExitReason:  sig.Reason,
	})
	return true
}
