package backtest

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"ganymede/internal/domain"
)

func dailyConfig() Config {
	return Config{
		FastPeriod:          5,
		SlowPeriod:          20,
		InitialCash:         10000,
		CommissionRate:      0,
		AnnualizationFactor: 252,
	}
}

func barsFromCloses(closes []float64) []domain.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Symbol:    "BTC/USD",
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:      c, High: c, Low: c, Close: c,
			Volume: 1,
		}
	}
	return bars
}

// risingBars produces n daily bars with closes compounding up by pct per bar.
func risingBars(n int, pct float64) []domain.Bar {
	closes := make([]float64, n)
	price := 100.0
	for i := range closes {
		closes[i] = price
		price *= 1 + pct
	}
	return barsFromCloses(closes)
}

// syntheticBars produces a deterministic geometric random-walk series.
func syntheticBars(n int, seed int64) []domain.Bar {
	rng := rand.New(rand.NewSource(seed))
	closes := make([]float64, n)
	price := 45000.0
	for i := range closes {
		price *= 1 + rng.NormFloat64()*0.02
		closes[i] = price
	}
	return barsFromCloses(closes)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"fast period zero", func(c *Config) { c.FastPeriod = 0 }},
		{"fast period negative", func(c *Config) { c.FastPeriod = -3 }},
		{"slow equals fast", func(c *Config) { c.SlowPeriod = c.FastPeriod }},
		{"slow below fast", func(c *Config) { c.SlowPeriod = c.FastPeriod - 1 }},
		{"zero initial cash", func(c *Config) { c.InitialCash = 0 }},
		{"negative initial cash", func(c *Config) { c.InitialCash = -100 }},
		{"negative commission", func(c *Config) { c.CommissionRate = -0.01 }},
		{"commission of one", func(c *Config) { c.CommissionRate = 1 }},
		{"zero annualization", func(c *Config) { c.AnnualizationFactor = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := dailyConfig()
			tt.mutate(&cfg)
			if _, err := NewRunner(cfg, nil); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("NewRunner error = %v, want ErrInvalidConfig", err)
			}
		})
	}

	if _, err := NewRunner(dailyConfig(), nil); err != nil {
		t.Errorf("NewRunner rejected a valid config: %v", err)
	}
}

func TestRunRejectsBadSeries(t *testing.T) {
	r, err := NewRunner(dailyConfig(), nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	bars := risingBars(30, 0.01)
	bars[10].Timestamp = bars[9].Timestamp // duplicate

	if _, err := r.Run(context.Background(), bars); !errors.Is(err, domain.ErrBadSeries) {
		t.Errorf("Run error = %v, want ErrBadSeries", err)
	}
}

// Steadily rising prices: the fast average crosses above the slow one as soon
// as both are defined and stays there, so the run enters once and never exits.
func TestRunRisingSeries(t *testing.T) {
	r, err := NewRunner(dailyConfig(), nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	res, err := r.Run(context.Background(), risingBars(60, 0.01))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	buys, sells := 0, 0
	for _, tr := range res.Trades {
		switch tr.Side {
		case domain.SideBuy:
			buys++
		case domain.SideSell:
			sells++
		}
	}
	if buys != 1 {
		t.Errorf("buys = %d, want exactly 1", buys)
	}
	if sells != 0 {
		t.Errorf("sells = %d, want 0", sells)
	}
	if res.Performance.TotalReturn <= 0 {
		t.Errorf("TotalReturn = %v, want > 0", res.Performance.TotalReturn)
	}
	if res.Performance.MaxDrawdown != 0 {
		t.Errorf("MaxDrawdown = %v, want 0 on a monotonic equity curve", res.Performance.MaxDrawdown)
	}
	if len(res.Equity) != 60 {
		t.Errorf("equity curve has %d points, want 60", len(res.Equity))
	}
}

// A constant price makes both averages identical; the strict greater-than
// rule resolves the tie to flat, so nothing ever trades.
func TestRunFlatSeries(t *testing.T) {
	r, err := NewRunner(dailyConfig(), nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 42000
	}
	res, err := r.Run(context.Background(), barsFromCloses(closes))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Trades) != 0 {
		t.Errorf("trades = %d, want 0", len(res.Trades))
	}
	if res.Performance.TotalReturn != 0 {
		t.Errorf("TotalReturn = %v, want 0", res.Performance.TotalReturn)
	}
	if res.Performance.SharpeRatio != 0 {
		t.Errorf("SharpeRatio = %v, want 0 under the zero-variance guard", res.Performance.SharpeRatio)
	}
	for i, s := range res.Signals {
		if s != domain.SignalFlat {
			t.Fatalf("signal[%d] = %v, want flat throughout", i, s)
		}
	}
}

// Rise then fall around the crossover windows: one full round trip, with the
// sell proceeds carrying two commission deductions.
func TestRunCommissionRoundTrip(t *testing.T) {
	cfg := Config{
		FastPeriod:          2,
		SlowPeriod:          3,
		InitialCash:         10000,
		CommissionRate:      0.01,
		AnnualizationFactor: 252,
	}
	r, err := NewRunner(cfg, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	// fast(2) crosses above slow(3) at the jump to 120 and back to a tie at
	// the third 150, which the strict rule resolves to flat.
	closes := []float64{100, 100, 100, 120, 150, 150, 150, 150}
	res, err := r.Run(context.Background(), barsFromCloses(closes))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Trades) != 2 {
		t.Fatalf("trades = %d, want buy then sell", len(res.Trades))
	}
	buy, sell := res.Trades[0], res.Trades[1]
	if buy.Side != domain.SideBuy || sell.Side != domain.SideSell {
		t.Fatalf("trade sides = %q, %q, want buy, sell", buy.Side, sell.Side)
	}
	if buy.Price != 120 || sell.Price != 150 {
		t.Fatalf("trade prices = %v, %v, want 120, 150", buy.Price, sell.Price)
	}

	// 10000 × 0.99² × 150/120: commission taken once on the way in, once on
	// the way out.
	want := 10000 * 0.99 * 0.99 * 150 / 120
	if math.Abs(sell.CashAfter-want) > 1e-9 {
		t.Errorf("sell.CashAfter = %v, want %v", sell.CashAfter, want)
	}
	if res.Performance.TotalTrades != 1 || res.Performance.WinningTrades != 1 {
		t.Errorf("round trips = %d won %d, want 1 won 1", res.Performance.TotalTrades, res.Performance.WinningTrades)
	}
}

// With zero commission a series that ends flat must compound exactly:
// final equity = initial cash × Π(sell/buy) over round trips.
func TestRunZeroCommissionCompounds(t *testing.T) {
	cfg := Config{
		FastPeriod:          2,
		SlowPeriod:          3,
		InitialCash:         10000,
		CommissionRate:      0,
		AnnualizationFactor: 252,
	}
	r, err := NewRunner(cfg, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	closes := []float64{100, 100, 100, 120, 150, 150, 150, 150}
	res, err := r.Run(context.Background(), barsFromCloses(closes))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := 10000.0
	for i := 0; i+1 < len(res.Trades); i += 2 {
		want *= res.Trades[i+1].Price / res.Trades[i].Price
	}
	if math.Abs(res.Performance.FinalEquity-want) > 1e-6 {
		t.Errorf("FinalEquity = %v, want %v from naive compounding", res.Performance.FinalEquity, want)
	}
}

// A series shorter than the slow window is a valid degenerate run, not an
// error: all indicators undefined, no signals, no trades.
func TestRunInsufficientData(t *testing.T) {
	r, err := NewRunner(dailyConfig(), nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	res, err := r.Run(context.Background(), risingBars(10, 0.01))
	if err != nil {
		t.Fatalf("Run returned error for short series: %v", err)
	}
	if len(res.Trades) != 0 {
		t.Errorf("trades = %d, want 0", len(res.Trades))
	}
	if res.Performance.TotalReturn != 0 {
		t.Errorf("TotalReturn = %v, want 0", res.Performance.TotalReturn)
	}
	if len(res.Equity) != 10 {
		t.Errorf("equity curve has %d points, want one per bar", len(res.Equity))
	}
}

func TestRunCancelledContext(t *testing.T) {
	r, err := NewRunner(dailyConfig(), nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Run(ctx, risingBars(60, 0.01)); !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

// Randomized series hold the structural invariants regardless of path:
// balanced enters and exits, one equity point per bar, no negative equity.
func TestRunSyntheticSeriesInvariants(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		bars := syntheticBars(300, seed)

		r, err := NewRunner(Config{
			FastPeriod:          10,
			SlowPeriod:          30,
			InitialCash:         10000,
			CommissionRate:      0.001,
			AnnualizationFactor: 252,
		}, nil)
		if err != nil {
			t.Fatalf("NewRunner: %v", err)
		}

		res, err := r.Run(context.Background(), bars)
		if err != nil {
			t.Fatalf("seed %d: Run: %v", seed, err)
		}

		if len(res.Equity) != len(bars) {
			t.Errorf("seed %d: %d equity points for %d bars", seed, len(res.Equity), len(bars))
		}
		for i, p := range res.Equity {
			if p.Equity < 0 {
				t.Errorf("seed %d: equity[%d] = %v, negative", seed, i, p.Equity)
			}
		}

		buys, sells := 0, 0
		for _, tr := range res.Trades {
			if tr.Side == domain.SideBuy {
				buys++
			} else {
				sells++
			}
		}
		if d := buys - sells; d != 0 && d != 1 {
			t.Errorf("seed %d: buy/sell imbalance %d, want 0 or 1", seed, d)
		}
		if res.Performance.MaxDrawdown > 0 {
			t.Errorf("seed %d: MaxDrawdown = %v, want non-positive", seed, res.Performance.MaxDrawdown)
		}
	}
}
