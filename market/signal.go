package market

// SignalAction is the decision a bar-driven strategy emits for the current bar.
type SignalAction string

const (
	Hold       SignalAction = "HOLD"
	OpenLong   SignalAction = "OPEN_LONG"
	CloseLong  SignalAction = "CLOSE_LONG"
	OpenShort  SignalAction = "OPEN_SHORT"
	CloseShort SignalAction = "CLOSE_SHORT"
)

// Signal is the per-bar output of a bar-driven strategy. Action is the tag;
// the remaining fields carry optional option-position detail the ledger needs
// when the strategy trades multi-leg contracts rather than the underlying.
type Signal struct {
	Action SignalAction

	// NetDebit is the strategy-reported cost of an option open. Zero means
	// the ledger sizes an equity position off cash instead.
	NetDebit float64

	// ReportedPnL is the strategy's own P&L figure for an option close.
	// Ignored for equity positions.
	ReportedPnL float64

	// Legs snapshots the option legs attached to an open.
	Legs []Leg

	// LotSize is the contract lot size for option positions (0 means 1).
	LotSize int

	Reason string
}

// HoldSignal is the canonical do-nothing signal.
func HoldSignal() Signal { return Signal{Action: Hold} }
