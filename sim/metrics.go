package sim

import "math"

// Metrics summarizes a completed run. It is a derived value, recomputable at
// any time from the trade log, the full-fidelity equity array and the initial
// capital; it is never persisted on its own.
type Metrics struct {
	InitialCapital float64
	FinalCapital   float64
	TotalPnL       float64
	TotalReturnPct float64

	TotalTrades   int // closing trades only
	WinningTrades int
	LosingTrades  int
	WinRate       float64

	GrossProfit  float64
	GrossLoss    float64
	ProfitFactor float64

	AvgWin      float64
	AvgLoss     float64
	LargestWin  float64
	LargestLoss float64

	MaxDrawdown    float64
	MaxDrawdownPct float64
	SharpeRatio    float64

	TotalBrokerage float64
}

// annualization converts per-bar return statistics to a yearly Sharpe figure,
// assuming daily bars.
const annualization = 252

// Calculate computes summary statistics over a completed run. All divisions
// are guarded: degenerate inputs (no trades, zero volatility, zero-priced
// bars, non-positive capital) produce zeros rather than NaN or Inf, and the
// drawdown percentage is capped at 100.
func Calculate(trades []Trade, equity []float64, initialCapital float64) Metrics {
	m := Metrics{InitialCapital: initialCapital}

	var pnls []float64
	for _, t := range trades {
		m.TotalBrokerage += t.Brokerage
		if t.Action.IsClose() {
			pnls = append(pnls, t.RealizedPnL)
		}
	}
	m.TotalTrades = len(pnls)

	for _, pnl := range pnls {
		m.TotalPnL += pnl
		switch {
		case pnl > 0:
			m.WinningTrades++
			m.GrossProfit += pnl
			if pnl > m.LargestWin {
				m.LargestWin = pnl
			}
		case pnl < 0:
			m.LosingTrades++
			m.GrossLoss += -pnl
			if pnl < m.LargestLoss {
				m.LargestLoss = pnl
			}
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	}
	if m.WinningTrades > 0 {
		m.AvgWin = m.GrossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = m.GrossLoss / float64(m.LosingTrades)
	}

	switch {
	case m.GrossLoss > 0:
		m.ProfitFactor = m.GrossProfit / m.GrossLoss
	case m.GrossProfit > 0:
		m.ProfitFactor = m.GrossProfit
	}

	if len(equity) > 0 {
		m.FinalCapital = equity[len(equity)-1]
	} else {
		m.FinalCapital = initialCapital
	}
	if initialCapital > 0 {
		m.TotalReturnPct = (m.FinalCapital - initialCapital) / initialCapital * 100
	}

	m.MaxDrawdown, m.MaxDrawdownPct = drawdown(equity)
	m.SharpeRatio = sharpe(equity)

	return m
}

// drawdown computes the peak-to-trough decline over the positive values of
// the equity array: running maximum minus equity, with the percentage taken
// against the peak at the deepest point and capped at 100.
func drawdown(equity []float64) (maxDD, maxDDPct float64) {
	runningMax := 0.0
	peakAtMax := 0.0

	for _, eq := range equity {
		if eq <= 0 {
			continue
		}
		if eq > runningMax {
			runningMax = eq
		}
		dd := runningMax - eq
		if dd > maxDD {
			maxDD = dd
			peakAtMax = runningMax
		}
	}

	if peakAtMax > 0 {
		maxDDPct = maxDD / peakAtMax * 100
		if maxDDPct > 100 {
			maxDDPct = 100
		}
	}
	return maxDD, maxDDPct
}

// sharpe computes the annualized Sharpe ratio of bar-to-bar returns,
// filtering non-finite values (zero-priced bars divide by zero). Zero
// volatility yields zero.
func sharpe(equity []float64) float64 {
	if len(equity) < 2 {
		return 0
	}

	var returns []float64
	for i := 1; i < len(equity); i++ {
		r := (equity[i] - equity[i-1]) / equity[i-1]
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		returns = append(returns, r)
	}
	if len(returns) == 0 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	std := math.Sqrt(variance)

	if std <= 0 {
		return 0
	}
	return mean / std * math.Sqrt(annualization)
}
