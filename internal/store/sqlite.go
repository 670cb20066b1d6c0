package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ganymede/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at        INTEGER NOT NULL,
	symbol            TEXT    NOT NULL,
	rule              TEXT    NOT NULL,
	fast_period       INTEGER NOT NULL,
	slow_period       INTEGER NOT NULL,
	initial_cash      REAL    NOT NULL,
	commission_rate   REAL    NOT NULL,
	total_return      REAL    NOT NULL,
	sharpe_ratio      REAL    NOT NULL,
	max_drawdown      REAL    NOT NULL,
	max_drawdown_bars INTEGER NOT NULL,
	final_equity      REAL    NOT NULL,
	total_trades      INTEGER NOT NULL,
	winning_trades    INTEGER NOT NULL,
	losing_trades     INTEGER NOT NULL,
	win_rate          REAL    NOT NULL,
	buy_hold_return   REAL    NOT NULL
);

CREATE TABLE IF NOT EXISTS run_trades (
	run_id     INTEGER NOT NULL REFERENCES runs(id),
	seq        INTEGER NOT NULL,
	ts         INTEGER NOT NULL,
	side       TEXT    NOT NULL,
	price      REAL    NOT NULL,
	quantity   REAL    NOT NULL,
	cash_after REAL    NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts a run record and returns its assigned ID. A zero CreatedAt
// is stamped with the current time.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) (int64, error) {
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			created_at, symbol, rule, fast_period, slow_period,
			initial_cash, commission_rate,
			total_return, sharpe_ratio, max_drawdown, max_drawdown_bars,
			final_equity, total_trades, winning_trades, losing_trades,
			win_rate, buy_hold_return
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		createdAt.UnixMilli(), run.Symbol, run.Rule, run.FastPeriod, run.SlowPeriod,
		run.InitialCash, run.CommissionRate,
		run.TotalReturn, run.SharpeRatio, run.MaxDrawdown, run.MaxDrawdownDuration,
		run.FinalEquity, run.TotalTrades, run.WinningTrades, run.LosingTrades,
		run.WinRate, run.BuyAndHoldReturn,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	return res.LastInsertId()
}

// GetRun retrieves a single run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, symbol, rule, fast_period, slow_period,
		       initial_cash, commission_rate,
		       total_return, sharpe_ratio, max_drawdown, max_drawdown_bars,
		       final_equity, total_trades, winning_trades, losing_trades,
		       win_rate, buy_hold_return
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first, up to limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, symbol, rule, fast_period, slow_period,
		       initial_cash, commission_rate,
		       total_return, sharpe_ratio, max_drawdown, max_drawdown_bars,
		       final_equity, total_trades, winning_trades, losing_trades,
		       win_rate, buy_hold_return
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// SaveTrades persists the trade log of a run in execution order.
func (s *SQLiteStore) SaveTrades(ctx context.Context, runID int64, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_trades (run_id, seq, ts, side, price, quantity, cash_after)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, t := range trades {
		if _, err := stmt.ExecContext(ctx, runID, i, t.Timestamp.UnixMilli(),
			string(t.Side), t.Price, t.Quantity, t.CashAfter); err != nil {
			return fmt.Errorf("inserting trade %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// ListTrades returns a run's trades in execution order.
func (s *SQLiteStore) ListTrades(ctx context.Context, runID int64) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, side, price, quantity, cash_after
		FROM run_trades WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var ts int64
		var side string
		if err := rows.Scan(&ts, &side, &t.Price, &t.Quantity, &t.CashAfter); err != nil {
			return nil, err
		}
		t.Timestamp = time.UnixMilli(ts).UTC()
		t.Side = domain.Side(side)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var createdAt int64
	err := s.Scan(
		&run.ID, &createdAt, &run.Symbol, &run.Rule, &run.FastPeriod, &run.SlowPeriod,
		&run.InitialCash, &run.CommissionRate,
		&run.TotalReturn, &run.SharpeRatio, &run.MaxDrawdown, &run.MaxDrawdownDuration,
		&run.FinalEquity, &run.TotalTrades, &run.WinningTrades, &run.LosingTrades,
		&run.WinRate, &run.BuyAndHoldReturn,
	)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &run, nil
}
