package backtest

import (
	"fmt"
	"io"
	"strings"
)

// WriteResult renders a human readable performance report to w.
func WriteResult(w io.Writer, res *Result) {
	m := res.Metrics

	line := strings.Repeat("=", 56)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "BACKTEST RESULTS")
	fmt.Fprintln(w, line)

	fmt.Fprintf(w, "%-24s %14.2f\n", "Initial capital:", m.InitialCapital)
	fmt.Fprintf(w, "%-24s %14.2f\n", "Final capital:", m.FinalCapital)
	fmt.Fprintf(w, "%-24s %14.2f\n", "Total P&L:", m.TotalPnL)
	fmt.Fprintf(w, "%-24s %13.2f%%\n", "Total return:", m.TotalReturnPct)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-24s %14d\n", "Total trades:", m.TotalTrades)
	fmt.Fprintf(w, "%-24s %14d\n", "Winning trades:", m.WinningTrades)
	fmt.Fprintf(w, "%-24s %14d\n", "Losing trades:", m.LosingTrades)
	fmt.Fprintf(w, "%-24s %13.2f%%\n", "Win rate:", m.WinRate)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-24s %14.2f\n", "Gross profit:", m.GrossProfit)
	fmt.Fprintf(w, "%-24s %14.2f\n", "Gross loss:", m.GrossLoss)
	fmt.Fprintf(w, "%-24s %14.2f\n", "Profit factor:", m.ProfitFactor)
	fmt.Fprintf(w, "%-24s %14.2f\n", "Average win:", m.AvgWin)
	fmt.Fprintf(w, "%-24s %14.2f\n", "Average loss:", m.AvgLoss)
	fmt.Fprintf(w, "%-24s %14.2f\n", "Largest win:", m.LargestWin)
	fmt.Fprintf(w, "%-24s %14.2f\n", "Largest loss:", m.LargestLoss)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-24s %14.2f\n", "Max drawdown:", m.MaxDrawdown)
	fmt.Fprintf(w, "%-24s %13.2f%%\n", "Max drawdown pct:", m.MaxDrawdownPct)
	fmt.Fprintf(w, "%-24s %14.2f\n", "Sharpe ratio:", m.SharpeRatio)
	fmt.Fprintf(w, "%-24s %14.2f\n", "Total brokerage:", m.TotalBrokerage)
	fmt.Fprintln(w, line)
}

// WriteTrades renders the trade ledger, one trade per row.
func WriteTrades(w io.Writer, res *Result, limit int) {
	trades := res.Trades
	if limit > 0 && len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}
	if len(trades) == 0 {
		fmt.Fprintln(w, "No trades.")
		return
	}

	fmt.Fprintf(w, "%-20s %-12s %-10s %10s %12s %12s\n",
		"TIME", "ACTION", "SYMBOL", "QTY", "PRICE", "PNL")
	for _, t := range trades {
		fmt.Fprintf(w, "%-20s %-12s %-10s %10d %12.2f %12.2f\n",
			t.Time.Format("2006-01-02 15:04"), t.Action, t.Symbol,
			t.Quantity, t.Price, t.RealizedPnL)
	}
}
