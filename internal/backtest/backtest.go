// Package backtest runs a signal rule over a historical bar series through a
// simulated broker account and computes performance statistics.
//
// The simulation is a single sequential pass: bars are processed strictly in
// timestamp order, each Step atomic with respect to the account, with no
// parallelism across bars. Only the indicator precomputation runs
// concurrently, as a read-only step before the pass begins.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ganymede/internal/domain"
	"ganymede/internal/indicator"
	"ganymede/internal/strategy"
)

// ErrInvalidConfig wraps all backtest parameter validation failures.
var ErrInvalidConfig = errors.New("invalid backtest config")

// Config holds the parameters for a single backtest run.
type Config struct {
	FastPeriod          int
	SlowPeriod          int
	InitialCash         float64
	CommissionRate      float64
	AnnualizationFactor float64 // bars per year for Sharpe scaling, e.g. 252 for daily
}

// Validate rejects parameter combinations that can never produce a
// meaningful run. Validation happens before any bar is touched, so an
// invalid config never yields a partial simulation.
func (c Config) Validate() error {
	if c.FastPeriod < 1 {
		return fmt.Errorf("%w: fast period %d, must be at least 1", ErrInvalidConfig, c.FastPeriod)
	}
	if c.SlowPeriod <= c.FastPeriod {
		return fmt.Errorf("%w: slow period %d must exceed fast period %d", ErrInvalidConfig, c.SlowPeriod, c.FastPeriod)
	}
	if c.InitialCash <= 0 {
		return fmt.Errorf("%w: initial cash %v, must be positive", ErrInvalidConfig, c.InitialCash)
	}
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return fmt.Errorf("%w: commission rate %v, must be in [0, 1)", ErrInvalidConfig, c.CommissionRate)
	}
	if c.AnnualizationFactor <= 0 {
		return fmt.Errorf("%w: annualization factor %v, must be positive", ErrInvalidConfig, c.AnnualizationFactor)
	}
	return nil
}

// Result bundles everything a run produces: the performance summary, the
// full equity curve and trade log, and the per-bar indicator and signal
// series for export.
type Result struct {
	Performance      Performance
	BuyAndHoldReturn float64
	Equity           []domain.EquityPoint
	Trades           []domain.Trade
	Signals          []domain.Signal
	FastSMA          []indicator.Value
	SlowSMA          []indicator.Value
}

// Runner executes backtests for one signal rule and parameter set. The rule
// is any function from two indicator series to a signal series, so
// alternative strategies plug in without changes to execution or analysis.
type Runner struct {
	cfg  Config
	rule strategy.Rule
}

// NewRunner validates cfg and creates a Runner using the given rule. A nil
// rule selects the built-in SMA crossover.
func NewRunner(cfg Config, rule strategy.Rule) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rule == nil {
		rule = strategy.CrossOver
	}
	return &Runner{cfg: cfg, rule: rule}, nil
}

// Run simulates the rule over bars and returns the result bundle. The bars
// must form a valid series (strictly increasing timestamps, sane OHLC); a
// series shorter than the slow period is not an error and produces a
// degenerate all-flat result with zero trades.
//
// Run checks ctx between bar iterations; a cancelled context abandons the
// run without a partially applied bar.
func (r *Runner) Run(ctx context.Context, bars []domain.Bar) (*Result, error) {
	if err := domain.ValidateBars(bars); err != nil {
		return nil, err
	}

	// Fast and slow windows are independent pure functions of the series, so
	// they precompute in parallel before the sequential pass.
	var fast, slow []indicator.Value
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		fast = indicator.SMA(bars, r.cfg.FastPeriod)
	}()
	go func() {
		defer wg.Done()
		slow = indicator.SMA(bars, r.cfg.SlowPeriod)
	}()
	wg.Wait()

	signals := r.rule(fast, slow)
	if len(signals) != len(bars) {
		return nil, fmt.Errorf("signal rule returned %d signals for %d bars", len(signals), len(bars))
	}
	changes := strategy.Changes(signals)

	sim := NewSimulator(r.cfg.InitialCash, r.cfg.CommissionRate)
	for i, bar := range bars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sim.Step(bar, changes[i])
	}

	res := &Result{
		Performance: Analyze(sim.Equity(), sim.Trades(), r.cfg.InitialCash, r.cfg.AnnualizationFactor),
		Equity:      sim.Equity(),
		Trades:      sim.Trades(),
		Signals:     signals,
		FastSMA:     fast,
		SlowSMA:     slow,
	}
	if len(bars) > 0 && bars[0].Close > 0 {
		res.BuyAndHoldReturn = bars[len(bars)-1].Close/bars[0].Close - 1
	}
	return res, nil
}
