// Package domain defines the core data types shared across the ganymede
// platform: OHLCV bars, signals, executed trades, and equity points.
package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Bar is a single OHLCV observation for a fixed time interval. Bars are
// immutable once ingested.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	TradeCount int64
	VWAP       float64
}

// Signal is the market-position intent derived from indicator comparison.
type Signal int

const (
	// SignalFlat means hold no position. Ties and insufficient indicator
	// history both resolve to Flat.
	SignalFlat Signal = iota
	// SignalLong means hold a full long position.
	SignalLong
)

// String returns "flat" or "long".
func (s Signal) String() string {
	if s == SignalLong {
		return "long"
	}
	return "flat"
}

// PositionChange is the transition derived from comparing a bar's signal to
// the prior bar's signal.
type PositionChange int

const (
	// ChangeNone means the signal did not change.
	ChangeNone PositionChange = iota
	// ChangeEnter fires on a flat-to-long transition.
	ChangeEnter
	// ChangeExit fires on a long-to-flat transition.
	ChangeExit
)

// Side identifies the direction of an executed trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Trade records a single executed position change. The trade log is
// append-only, one entry per fill.
type Trade struct {
	Timestamp time.Time
	Side      Side
	Price     float64
	Quantity  float64
	CashAfter float64
}

// EquityPoint is the account's marked-to-market value at one bar's close:
// cash + holdings quantity times the close price. One point is recorded per
// bar, trade or no trade.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// ErrBadSeries wraps all bar-series validation failures.
var ErrBadSeries = errors.New("bad bar series")

// ValidateBars checks that bars form a well-formed price series: timestamps
// strictly increasing, all prices and volume finite and non-negative, high at
// least max(open, close) and low at most min(open, close). It returns an
// error wrapping ErrBadSeries naming the first offending bar.
func ValidateBars(bars []Bar) error {
	for i, b := range bars {
		for _, v := range [5]float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				return fmt.Errorf("%w: bar %d (%s): non-finite or negative field", ErrBadSeries, i, b.Timestamp.Format(time.RFC3339))
			}
		}
		if b.High < math.Max(b.Open, b.Close) {
			return fmt.Errorf("%w: bar %d (%s): high %.8g below max(open, close)", ErrBadSeries, i, b.Timestamp.Format(time.RFC3339), b.High)
		}
		if b.Low > math.Min(b.Open, b.Close) {
			return fmt.Errorf("%w: bar %d (%s): low %.8g above min(open, close)", ErrBadSeries, i, b.Timestamp.Format(time.RFC3339), b.Low)
		}
		if i > 0 && !bars[i].Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("%w: bar %d (%s): timestamp not after previous bar", ErrBadSeries, i, b.Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}
