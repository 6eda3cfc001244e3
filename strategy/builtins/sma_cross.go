// Package builtins holds the strategies that ship with the simulator.
package builtins

import (
	"fmt"

	"github.com/quantlab/backsim/indicators"
	"github.com/quantlab/backsim/market"
)

// SMACross trades simple moving average crossovers on the underlying.
// A bullish cross (short MA moving above long MA) opens a long, a bearish
// cross closes it. The strategy is stateless between bars: the cross is
// detected by comparing the current averages against the previous bar's.
type SMACross struct {
	Short int
	Long  int
}

// NewSMACross returns a crossover strategy with the given windows.
// Defaults are 20/50 when zero.
func NewSMACross(short, long int) *SMACross {
	if short <= 0 {
		short = 20
	}
	if long <= 0 {
		long = 50
	}
	return &SMACross{Short: short, Long: long}
}

func (s *SMACross) Name() string { return "sma-cross" }

func (s *SMACross) GenerateSignal(bar market.Bar, history []market.Bar) (market.Signal, error) {
	if s.Short >= s.Long {
		return market.Signal{}, fmt.Errorf("sma-cross: short window %d must be below long window %d", s.Short, s.Long)
	}
	// Need one extra bar to compare against the previous averages.
	if len(history) < s.Long+1 {
		return market.HoldSignal(), nil
	}

	shortMA, err := indicators.SMA(history, s.Short)
	if err != nil {
		return market.Signal{}, err
	}
	longMA, err := indicators.SMA(history, s.Long)
	if err != nil {
		return market.Signal{}, err
	}

	prev := history[:len(history)-1]
	prevShort, err := indicators.SMA(prev, s.Short)
	if err != nil {
		return market.Signal{}, err
	}
	prevLong, err := indicators.SMA(prev, s.Long)
	if err != nil {
		return market.Signal{}, err
	}

	switch {
	case prevShort <= prevLong && shortMA > longMA:
		return market.Signal{Action: market.OpenLong, Reason: "bullish crossover"}, nil
	case prevShort >= prevLong && shortMA < longMA:
		return market.Signal{Action: market.CloseLong, Reason: "bearish crossover"}, nil
	}
	return market.HoldSignal(), nil
}
