package sim

import (
	"fmt"
	"math"
	"strconv"

	"github.com/quantlab/backsim/internal/id"
	"github.com/quantlab/backsim/market"
	"github.com/quantlab/backsim/strategy"
)

// Translator drives the batch mode: it converts a strategy's finished trade
// log into ledger cash flow and synthesizes an equity curve over the original
// bar series.
//
// Events are deduplicated on (position_id, action) so that re-applying the
// same log, or applying it incrementally, never double-counts cash.
type Translator struct {
	rate      float64
	processed map[string]struct{}
}

// NewTranslator creates a Translator charging brokerage at rate per unit of
// notional.
func NewTranslator(brokerageRate float64) *Translator {
	return &Translator{
		rate:      brokerageRate,
		processed: make(map[string]struct{}),
	}
}

// Apply translates events into portfolio cash flow and trade records.
//
// Open events crediting premium add credit net of brokerage; open events
// paying premium deduct debit plus brokerage. When an event carries both a
// credit and a debit (individual strategies never do this, but nothing
// structurally prevents it) the credit path wins; the upstream behavior is
// kept even though the intent is ambiguous.
//
// Close events add the strategy's reported P&L, deduct any closing cost plus
// its brokerage, and retire the position.
func (tr *Translator) Apply(pf *Portfolio, events []strategy.TradeEvent) {
	for _, ev := range events {
		key := fmt.Sprintf("%d|%s", ev.PositionID, ev.Action)
		if _, seen := tr.processed[key]; seen {
			continue
		}
		tr.processed[key] = struct{}{}

		switch ev.Action {
		case strategy.EventOpen:
			tr.applyOpen(pf, ev)
		case strategy.EventClose:
			tr.applyClose(pf, ev)
		}
	}
}

func (tr *Translator) applyOpen(pf *Portfolio, ev strategy.TradeEvent) {
	symbol := positionKey(ev.PositionID)

	switch {
	case ev.Credit != 0:
		brokerage := math.Abs(ev.Credit) * tr.rate
		netProceeds := ev.Credit - brokerage
		pf.Cash += netProceeds

		posID := id.New()
		pf.Positions[symbol] = &Position{
			ID:        posID,
			Symbol:    symbol,
			Side:      Short,
			Quantity:  -1,
			CostBasis: ev.Credit,
			Brokerage: brokerage,
			OpenedAt:  ev.Time,
			Legs:      ev.Legs,
			LotSize:   1,
		}
		pf.Trades = append(pf.Trades, Trade{
			ID:         id.New(),
			PositionID: posID,
			Time:       ev.Time,
			Action:     ActionOpenCredit,
			Symbol:     symbol,
			Quantity:   numLegs(ev),
			Price:      ev.Spot,
			GrossValue: ev.Credit,
			Brokerage:  brokerage,
			Legs:       ev.Legs,
			NetEffect:  netProceeds,
		})

	case ev.Debit != 0:
		brokerage := ev.Debit * tr.rate
		totalCost := ev.Debit + brokerage
		pf.Cash -= totalCost

		posID := id.New()
		pf.Positions[symbol] = &Position{
			ID:        posID,
			Symbol:    symbol,
			Side:      Long,
			Quantity:  1,
			CostBasis: ev.Debit,
			Brokerage: brokerage,
			OpenedAt:  ev.Time,
			Legs:      ev.Legs,
			LotSize:   1,
		}
		pf.Trades = append(pf.Trades, Trade{
			ID:         id.New(),
			PositionID: posID,
			Time:       ev.Time,
			Action:     ActionOpenDebit,
			Symbol:     symbol,
			Quantity:   numLegs(ev),
			Price:      ev.Spot,
			GrossValue: ev.Debit,
			Brokerage:  brokerage,
			Legs:       ev.Legs,
			NetEffect:  -totalCost,
		})
	}
}

func (tr *Translator) applyClose(pf *Portfolio, ev strategy.TradeEvent) {
	symbol := positionKey(ev.PositionID)

	closingCost := math.Abs(ev.ClosingCost)
	brokerage := 0.0
	if closingCost > 0 {
		brokerage = closingCost * tr.rate
		pf.Cash -= closingCost + brokerage
	}
	pf.Cash += ev.PnL

	posID := ""
	if pos, ok := pf.Positions[symbol]; ok {
		posID = pos.ID
		delete(pf.Positions, symbol)
	}

	pf.Trades = append(pf.Trades, Trade{
		ID:          id.New(),
		PositionID:  posID,
		Time:        ev.Time,
		Action:      ActionClose,
		Symbol:      symbol,
		Price:       ev.Spot,
		GrossValue:  closingCost,
		Brokerage:   brokerage,
		RealizedPnL: ev.PnL,
		PnLPct:      ev.PnLPct,
		NetEffect:   ev.PnL - closingCost - brokerage,
		ExitReason:  ev.ExitReason,
		DaysHeld:    ev.DaysHeld,
	})
}

// SynthesizeEquity emits one EquityPoint per bar: initial cash plus the
// accumulated net effect of every processed trade whose timestamp is at or
// before the bar. It fills pf.Equity and returns the same values as a
// full-fidelity array for the metrics calculator.
//
// Trades are assumed time-ordered, which holds for any trade log a strategy
// builds by walking the series forward.
func (tr *Translator) SynthesizeEquity(pf *Portfolio, bars []market.Bar) []float64 {
	equity := make([]float64, 0, len(bars))
	current := pf.InitialCash
	next := 0

	for _, bar := range bars {
		for next < len(pf.Trades) && !pf.Trades[next].Time.After(bar.Time) {
			current += pf.Trades[next].NetEffect
			next++
		}
		equity = append(equity, current)
		pf.Equity = append(pf.Equity, EquityPoint{
			Time:   bar.Time,
			Equity: current,
			Cash:   current,
		})
	}
	return equity
}

func positionKey(positionID int) string {
	return "pos-" + strconv.Itoa(positionID)
}

func numLegs(ev strategy.TradeEvent) int {
	if ev.NumLegs > 0 {
		return ev.NumLegs
	}
	return len(ev.Legs)
}
