package backtest

import (
	"math"

	"ganymede/internal/domain"
)

// Performance summarizes a simulated run. Degenerate inputs (zero-variance
// returns, no trades, short curves) produce zero-valued metrics, never an
// error: a degenerate backtest is a valid result.
type Performance struct {
	TotalReturn         float64
	SharpeRatio         float64
	MaxDrawdown         float64 // non-positive fraction of the running peak; 0 = no drawdown
	MaxDrawdownDuration int     // longest below-peak run, in bars
	FinalEquity         float64
	TotalTrades         int // completed round trips (buy matched to a later sell)
	WinningTrades       int
	LosingTrades        int
	WinRate             float64
}

// Analyze computes performance statistics from an equity curve and trade
// log. The Sharpe ratio is scaled by sqrt(annualization), where annualization
// is the number of bars per year for the series' granularity (252 for daily
// bars, 252×24 for hourly).
func Analyze(equity []domain.EquityPoint, trades []domain.Trade, initialCash, annualization float64) Performance {
	perf := Performance{FinalEquity: initialCash}
	if len(equity) > 0 {
		perf.FinalEquity = equity[len(equity)-1].Equity
	}
	if initialCash > 0 {
		perf.TotalReturn = perf.FinalEquity/initialCash - 1
	}

	perf.SharpeRatio = sharpe(periodReturns(equity), annualization)
	perf.MaxDrawdown, perf.MaxDrawdownDuration = drawdown(equity)
	perf.TotalTrades, perf.WinningTrades, perf.LosingTrades = roundTrips(trades, initialCash)
	if perf.TotalTrades > 0 {
		perf.WinRate = float64(perf.WinningTrades) / float64(perf.TotalTrades)
	}
	return perf
}

// periodReturns computes bar-over-bar equity returns. There is no return at
// index 0, so the result has one fewer entry than the curve.
func periodReturns(equity []domain.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev <= 0 {
			continue
		}
		returns = append(returns, equity[i].Equity/prev-1)
	}
	return returns
}

// sharpe is mean/stdev of the period returns scaled to annual terms. Fewer
// than two observations or zero variance yield 0.
func sharpe(returns []float64, annualization float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)

	stdev := math.Sqrt(variance)
	if stdev == 0 {
		return 0
	}
	return mean / stdev * math.Sqrt(annualization)
}

// drawdown returns the deepest peak-to-trough decline as a non-positive
// fraction of the prior running peak, and the longest stretch of bars the
// curve spent strictly below a prior peak.
func drawdown(equity []domain.EquityPoint) (maxDD float64, maxDuration int) {
	peak := math.Inf(-1)
	run := 0
	for _, p := range equity {
		if p.Equity >= peak {
			peak = p.Equity
			run = 0
			continue
		}
		run++
		if run > maxDuration {
			maxDuration = run
		}
		if peak > 0 {
			if dd := p.Equity/peak - 1; dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD, maxDuration
}

// roundTrips pairs each buy with the following sell and scores the pair by
// cash: the trip wins when the net-of-commission sell proceeds exceed the
// net-of-commission cash committed at the buy. With all-or-nothing sizing
// the cash committed is the full balance before the buy, which is the
// initial cash for the first trip and the prior sell's CashAfter for every
// later one. A trailing unmatched buy (position still open at series end) is
// not a round trip.
func roundTrips(trades []domain.Trade, initialCash float64) (total, wins, losses int) {
	cashBefore := initialCash
	var openCost float64
	open := false

	for _, t := range trades {
		switch t.Side {
		case domain.SideBuy:
			openCost = cashBefore
			open = true
		case domain.SideSell:
			if !open {
				continue
			}
			total++
			if t.CashAfter > openCost {
				wins++
			} else {
				losses++
			}
			cashBefore = t.CashAfter
			open = false
		}
	}
	return total, wins, losses
}
