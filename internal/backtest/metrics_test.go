package backtest

import (
	"math"
	"testing"
	"time"

	"ganymede/internal/domain"
)

func curve(values ...float64) []domain.EquityPoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]domain.EquityPoint, len(values))
	for i, v := range values {
		points[i] = domain.EquityPoint{
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Equity:    v,
		}
	}
	return points
}

func TestAnalyzeEmptyCurve(t *testing.T) {
	perf := Analyze(nil, nil, 10000, 252)

	if perf.FinalEquity != 10000 {
		t.Errorf("FinalEquity = %v, want initial cash 10000", perf.FinalEquity)
	}
	if perf.TotalReturn != 0 {
		t.Errorf("TotalReturn = %v, want 0", perf.TotalReturn)
	}
	if perf.SharpeRatio != 0 || perf.MaxDrawdown != 0 || perf.MaxDrawdownDuration != 0 {
		t.Errorf("degenerate metrics not zero: %+v", perf)
	}
	if perf.TotalTrades != 0 || perf.WinRate != 0 {
		t.Errorf("trade stats not zero: %+v", perf)
	}
}

func TestAnalyzeTotalReturn(t *testing.T) {
	perf := Analyze(curve(10000, 11000, 12500), nil, 10000, 252)
	if math.Abs(perf.TotalReturn-0.25) > 1e-12 {
		t.Errorf("TotalReturn = %v, want 0.25", perf.TotalReturn)
	}
	if perf.FinalEquity != 12500 {
		t.Errorf("FinalEquity = %v, want 12500", perf.FinalEquity)
	}
}

func TestSharpeKnownValue(t *testing.T) {
	// Returns 0.1, -0.1, 0.1: mean 1/30, sample stdev 0.11547.
	got := sharpe([]float64{0.1, -0.1, 0.1}, 1)
	want := (1.0 / 30.0) / 0.11547005383792516
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("sharpe = %v, want %v", got, want)
	}

	// Annualization scales by sqrt.
	scaled := sharpe([]float64{0.1, -0.1, 0.1}, 252)
	if math.Abs(scaled-want*math.Sqrt(252)) > 1e-9 {
		t.Errorf("annualized sharpe = %v, want %v", scaled, want*math.Sqrt(252))
	}
}

func TestSharpeDegenerateInputs(t *testing.T) {
	if got := sharpe(nil, 252); got != 0 {
		t.Errorf("sharpe(nil) = %v, want 0", got)
	}
	if got := sharpe([]float64{0.1}, 252); got != 0 {
		t.Errorf("sharpe with one observation = %v, want 0", got)
	}
	// Zero variance must not divide by zero.
	if got := sharpe([]float64{0.02, 0.02, 0.02}, 252); got != 0 {
		t.Errorf("sharpe with zero variance = %v, want 0", got)
	}
}

func TestDrawdown(t *testing.T) {
	dd, dur := drawdown(curve(100, 120, 110, 115, 90, 130))
	if math.Abs(dd-(-0.25)) > 1e-12 {
		t.Errorf("maxDrawdown = %v, want -0.25", dd)
	}
	// Bars 110, 115, 90 sit below the 120 peak before 130 recovers.
	if dur != 3 {
		t.Errorf("maxDrawdownDuration = %d, want 3", dur)
	}
}

func TestDrawdownMonotonicCurve(t *testing.T) {
	dd, dur := drawdown(curve(100, 100, 105, 110, 120))
	if dd != 0 {
		t.Errorf("maxDrawdown = %v, want 0 for non-decreasing curve", dd)
	}
	if dur != 0 {
		t.Errorf("maxDrawdownDuration = %d, want 0", dur)
	}
}

func TestRoundTrips(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []domain.Trade{
		{Timestamp: ts, Side: domain.SideBuy, Price: 100, Quantity: 100, CashAfter: 0},
		{Timestamp: ts.Add(24 * time.Hour), Side: domain.SideSell, Price: 105, Quantity: 100, CashAfter: 10500},
		{Timestamp: ts.Add(48 * time.Hour), Side: domain.SideBuy, Price: 105, Quantity: 100, CashAfter: 0},
		{Timestamp: ts.Add(72 * time.Hour), Side: domain.SideSell, Price: 95, Quantity: 100, CashAfter: 9500},
	}

	total, wins, losses := roundTrips(trades, 10000)
	if total != 2 {
		t.Errorf("total round trips = %d, want 2", total)
	}
	if wins != 1 {
		t.Errorf("winning trips = %d, want 1", wins)
	}
	if losses != 1 {
		t.Errorf("losing trips = %d, want 1", losses)
	}
}

func TestRoundTripsOpenPositionNotCounted(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []domain.Trade{
		{Timestamp: ts, Side: domain.SideBuy, Price: 100, Quantity: 100, CashAfter: 0},
	}
	total, wins, losses := roundTrips(trades, 10000)
	if total != 0 || wins != 0 || losses != 0 {
		t.Errorf("unmatched buy counted: total=%d wins=%d losses=%d", total, wins, losses)
	}
}

func TestAnalyzeWinRate(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []domain.Trade{
		{Timestamp: ts, Side: domain.SideBuy, CashAfter: 0},
		{Timestamp: ts.Add(time.Hour), Side: domain.SideSell, CashAfter: 12000},
	}
	perf := Analyze(curve(10000, 12000), trades, 10000, 252)
	if perf.TotalTrades != 1 || perf.WinningTrades != 1 {
		t.Fatalf("trade stats = %+v, want one winning trip", perf)
	}
	if perf.WinRate != 1 {
		t.Errorf("WinRate = %v, want 1", perf.WinRate)
	}
}
