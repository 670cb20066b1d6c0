// Package indicator computes rolling technical indicators over bar series.
package indicator

import (
	"ganymede/internal/domain"
)

// Value is one indicator observation. Valid is false while the rolling
// window has insufficient history; an invalid value must propagate as "no
// signal", never as zero.
type Value struct {
	Valid bool
	V     float64
}

// SMA computes the simple moving average of closing prices over a trailing
// window of the given period. The result is aligned one-to-one with bars:
// entry i is valid only for i >= period-1 and equals the arithmetic mean of
// closes over bars [i-period+1, i]. A period larger than the series yields an
// all-invalid result. SMA reads only bars at or before each index, so the
// output for a prefix of the series is identical to the output for the full
// series.
func SMA(bars []domain.Bar, period int) []Value {
	values := make([]Value, len(bars))
	if period < 1 || period > len(bars) {
		return values
	}

	// Rolling sum: add the newest close, drop the one leaving the window.
	sum := 0.0
	for i, b := range bars {
		sum += b.Close
		if i >= period {
			sum -= bars[i-period].Close
		}
		if i >= period-1 {
			values[i] = Value{Valid: true, V: sum / float64(period)}
		}
	}
	return values
}
