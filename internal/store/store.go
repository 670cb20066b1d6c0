// Package store defines storage interfaces for persisting and retrieving
// bar data and backtest results, with Parquet, SQLite, and CSV backends.
package store

import (
	"context"
	"time"

	"ganymede/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars under the given timeframe
	// ("1Min", "1Hour", "1Day").
	WriteBars(ctx context.Context, bars []domain.Bar, timeframe string) error

	// ReadBars returns bars for the given symbol and timeframe within
	// [start, end], sorted by timestamp.
	ReadBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with data in the timeframe.
	ListSymbols(ctx context.Context, timeframe string) ([]string, error)
}

// Run is the persistent record of one backtest: its parameters and the
// summary metrics it produced.
type Run struct {
	ID                  int64
	CreatedAt           time.Time
	Symbol              string
	Rule                string
	FastPeriod          int
	SlowPeriod          int
	InitialCash         float64
	CommissionRate      float64
	TotalReturn         float64
	SharpeRatio         float64
	MaxDrawdown         float64
	MaxDrawdownDuration int
	FinalEquity         float64
	TotalTrades         int
	WinningTrades       int
	LosingTrades        int
	WinRate             float64
	BuyAndHoldReturn    float64
}

// RunStore persists backtest runs and their trade logs.
type RunStore interface {
	// SaveRun inserts a run record and returns its assigned ID.
	SaveRun(ctx context.Context, run *Run) (int64, error)

	// GetRun retrieves a single run by ID.
	GetRun(ctx context.Context, id int64) (*Run, error)

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// SaveTrades persists the trade log of a run.
	SaveTrades(ctx context.Context, runID int64, trades []domain.Trade) error

	// ListTrades returns a run's trades in execution order.
	ListTrades(ctx context.Context, runID int64) ([]domain.Trade, error)
}
