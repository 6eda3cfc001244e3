package market

// OptionKind distinguishes calls from puts.
type OptionKind string

const (
	Call OptionKind = "CE"
	Put  OptionKind = "PE"
)

// LegSide is the direction of a single option leg.
type LegSide string

const (
	Buy  LegSide = "BUY"
	Sell LegSide = "SELL"
)

// Leg is one option contract within a multi-leg position. It is an immutable
// snapshot taken at open time.
type Leg struct {
	Strike       float64
	Kind         OptionKind
	Side         LegSide
	EntryPremium float64
	Quantity     int
}

// StrikeWidth returns the spread between the highest and lowest strikes of a
// leg set, 0 for an empty or single-strike set.
func StrikeWidth(legs []Leg) float64 {
	if len(legs) == 0 {
		return 0
	}
	lo, hi := legs[0].Strike, legs[0].Strike
	for _, l := range legs[1:] {
		if l.Strike < lo {
			lo = l.Strike
		}
		if l.Strike > hi {
			hi = l.Strike
		}
	}
	return hi - lo
}
