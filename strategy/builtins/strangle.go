package builtins

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/quantlab/backsim/indicators"
	"github.com/quantlab/backsim/market"
	"github.com/quantlab/backsim/store"
	"github.com/quantlab/backsim/strategy"
)

// StrangleConfig tunes the short strangle.
type StrangleConfig struct {
	HoldDays        int     // exit after this many calendar days (default 7)
	StrikeWidthPct  float64 // strike distance from spot (default 0.05)
	ProfitTargetPct float64 // close at this fraction of max profit (default 0.50)
	StopLossPct     float64 // stop when loss exceeds this multiple of credit (default 2.0)
	StrikeStep      float64 // strike rounding step (default 50)
	LotSize         int     // contract lot size (default 75)
	ATRPeriod       int     // default 14
	MinDTE          int     // minimum days to expiry at entry (default 7)
	MaxDTE          int     // maximum days to expiry at entry (default 30)
}

func (c *StrangleConfig) defaults() {
	if c.HoldDays <= 0 {
		c.HoldDays = 7
	}
	if c.StrikeWidthPct <= 0 {
		c.StrikeWidthPct = 0.05
	}
	if c.ProfitTargetPct <= 0 {
		c.ProfitTargetPct = 0.50
	}
	if c.StopLossPct <= 0 {
		c.StopLossPct = 2.0
	}
	if c.StrikeStep <= 0 {
		c.StrikeStep = 50
	}
	if c.LotSize <= 0 {
		c.LotSize = 75
	}
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = 14
	}
	if c.MinDTE <= 0 {
		c.MinDTE = 7
	}
	if c.MaxDTE <= 0 {
		c.MaxDTE = 30
	}
}

// ShortStrangle sells an OTM call and an OTM put with the same weekly expiry
// and collects the premium. Positions are closed on a profit target, a stop
// loss, the hold-day limit, or two days before expiry, whichever comes first.
//
// Recorded premiums are preferred; when the data source has no quote for a
// contract the strategy falls back to a theoretical estimate derived from ATR.
type ShortStrangle struct {
	cfg    StrangleConfig
	source store.DataSource

	log []strategy.TradeEvent

	// open position state, zeroed on exit
	open       bool
	positionID int
	entryTime  time.Time
	entrySpot  float64
	credit     float64 // per-lot net credit
	callStrike float64
	putStrike  float64
	expiry     time.Time
	legs       []market.Leg
}

// NewShortStrangle builds the strategy around a premium source. source may be
// nil, in which case every premium is estimated theoretically.
func NewShortStrangle(source store.DataSource, cfg StrangleConfig) *ShortStrangle {
	cfg.defaults()
	return &ShortStrangle{cfg: cfg, source: source}
}

func (s *ShortStrangle) Name() string { return "short-strangle" }

// TradeLog returns the events accumulated by the last RunOnce.
func (s *ShortStrangle) TradeLog() []strategy.TradeEvent { return s.log }

// RunOnce walks the series once, entering and exiting strangles as conditions
// allow. The context is checked each bar so long runs stay cancellable.
func (s *ShortStrangle) RunOnce(ctx context.Context, bars []market.Bar) error {
	s.log = nil
	s.reset()
	s.positionID = 0

	warmup := s.cfg.ATRPeriod + 30
	for i, bar := range bars {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i < warmup {
			continue
		}
		history := bars[:i+1]

		if !s.open {
			s.tryEnter(ctx, bar, history)
			continue
		}
		if reason, ok := s.shouldExit(ctx, bar, history); ok {
			s.exit(ctx, bar, history, reason)
		}
	}
	return nil
}

func (s *ShortStrangle) tryEnter(ctx context.Context, bar market.Bar, history []market.Bar) {
	spot := bar.Close
	expiry := nextExpiry(bar.Time, s.cfg.MinDTE)
	dte := int(expiry.Sub(bar.Time).Hours() / 24)
	if dte < s.cfg.MinDTE || dte > s.cfg.MaxDTE {
		return
	}

	atr, err := indicators.ATR(history, s.cfg.ATRPeriod)
	if err != nil {
		return
	}

	width := spot * s.cfg.StrikeWidthPct
	callStrike := roundToStrike(spot+width, s.cfg.StrikeStep)
	putStrike := roundToStrike(spot-width, s.cfg.StrikeStep)

	callPremium := s.premium(ctx, callStrike, market.Call, bar.Time, expiry, spot, atr)
	putPremium := s.premium(ctx, putStrike, market.Put, bar.Time, expiry, spot, atr)
	if callPremium <= 0 || putPremium <= 0 {
		return
	}

	credit := callPremium + putPremium

	s.open = true
	s.positionID++
	s.entryTime = bar.Time
	s.entrySpot = spot
	s.credit = credit
	s.callStrike = callStrike
	s.putStrike = putStrike
	s.expiry = expiry
	s.legs = []market.Leg{
		{Strike: callStrike, Kind: market.Call, Side: market.Sell, EntryPremium: callPremium, Quantity: s.cfg.LotSize},
		{Strike: putStrike, Kind: market.Put, Side: market.Sell, EntryPremium: putPremium, Quantity: s.cfg.LotSize},
	}

	s.log = append(s.log, strategy.TradeEvent{
		PositionID: s.positionID,
		Action:     strategy.EventOpen,
		Time:       bar.Time,
		Spot:       spot,
		Credit:     credit * float64(s.cfg.LotSize),
		Legs:       s.legs,
		NumLegs:    len(s.legs),
	})
}

func (s *ShortStrangle) shouldExit(ctx context.Context, bar market.Bar, history []market.Bar) (string, bool) {
	daysHeld := int(bar.Time.Sub(s.entryTime).Hours() / 24)
	if daysHeld >= s.cfg.HoldDays {
		return "HOLD_DAYS", true
	}
	if dte := int(s.expiry.Sub(bar.Time).Hours() / 24); dte <= 2 {
		return "NEAR_EXPIRY", true
	}

	pnl := s.credit - s.closingCost(ctx, bar, history)
	if pnl >= s.credit*s.cfg.ProfitTargetPct {
		return "PROFIT_TARGET", true
	}
	if pnl <= -s.credit*s.cfg.StopLossPct {
		return "STOP_LOSS", true
	}
	return "", false
}

func (s *ShortStrangle) exit(ctx context.Context, bar market.Bar, history []market.Bar, reason string) {
	closing := s.closingCost(ctx, bar, history)
	pnl := s.credit - closing
	pnlPct := 0.0
	if s.credit > 0 {
		pnlPct = pnl / s.credit * 100
	}

	// The buy-back cost is already netted into PnL, so the event reports the
	// total figure and a zero ClosingCost to keep the cash ledger coherent.
	s.log = append(s.log, strategy.TradeEvent{
		PositionID:  s.positionID,
		Action:      strategy.EventClose,
		Time:        bar.Time,
		Spot:        bar.Close,
		PnL:         pnl * float64(s.cfg.LotSize),
		PnLPct:      pnlPct,
		ClosingCost: 0,
		ExitReason:  reason,
		DaysHeld:    int(bar.Time.Sub(s.entryTime).Hours() / 24),
	})
	s.reset()
}

// closingCost is the per-lot cost of buying both legs back now.
func (s *ShortStrangle) closingCost(ctx context.Context, bar market.Bar, history []market.Bar) float64 {
	atr, err := indicators.ATR(history, s.cfg.ATRPeriod)
	if err != nil {
		atr = 0
	}
	call := s.premium(ctx, s.callStrike, market.Call, bar.Time, s.expiry, bar.Close, atr)
	put := s.premium(ctx, s.putStrike, market.Put, bar.Time, s.expiry, bar.Close, atr)
	return call + put
}

// premium resolves a contract quote, preferring recorded data and falling
// back to the theoretical estimate on a miss.
func (s *ShortStrangle) premium(ctx context.Context, strike float64, kind market.OptionKind, date, expiry time.Time, spot, atr float64) float64 {
	if s.source != nil {
		p, err := s.source.OptionPremium(ctx, strike, kind, date, expiry)
		if err == nil && p > 0 {
			return p
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return 0
		}
	}
	dte := int(expiry.Sub(date).Hours() / 24)
	return EstimatePremium(spot, strike, atr, kind, dte)
}

// EstimatePremium approximates an option premium from ATR-implied volatility.
// ITM contracts carry their intrinsic value plus a damped time value; OTM
// contracts decay exponentially with moneyness.
func EstimatePremium(spot, strike, atr float64, kind market.OptionKind, daysToExpiry int) float64 {
	if daysToExpiry <= 0 || atr <= 0 || spot <= 0 {
		return 0
	}

	iv := (atr / spot) * math.Sqrt(252/float64(daysToExpiry))
	iv = math.Max(0.1, math.Min(1.0, iv))
	timeFactor := math.Sqrt(float64(daysToExpiry) / 365.0)

	var moneyness, intrinsic float64
	if kind == market.Call {
		moneyness = (strike - spot) / spot
		intrinsic = spot - strike
	} else {
		moneyness = (spot - strike) / spot
		intrinsic = strike - spot
	}

	var premium float64
	if moneyness > 0 {
		premium = spot * iv * timeFactor * math.Exp(-moneyness*2)
	} else {
		premium = intrinsic + spot*iv*timeFactor*0.5
	}
	return math.Max(0, premium)
}

func (s *ShortStrangle) reset() {
	s.open = false
	s.entryTime = time.Time{}
	s.entrySpot = 0
	s.credit = 0
	s.callStrike = 0
	s.putStrike = 0
	s.expiry = time.Time{}
	s.legs = nil
}

// nextExpiry returns the next weekly Thursday expiry at least minDTE days out.
func nextExpiry(from time.Time, minDTE int) time.Time {
	daysAhead := int(time.Thursday - from.Weekday())
	if daysAhead <= 0 {
		daysAhead += 7
	}
	expiry := from.AddDate(0, 0, daysAhead)
	if daysAhead < minDTE {
		expiry = expiry.AddDate(0, 0, 7)
	}
	return expiry
}

func roundToStrike(price, step float64) float64 {
	return math.Round(price/step) * step
}
