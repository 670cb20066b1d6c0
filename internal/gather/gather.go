// Package gather fetches market data from external providers and persists
// it through the store layer.
package gather

import (
	"context"
	"time"
)

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run executes the data gathering process. It returns once the range
	// is fetched or ctx is cancelled.
	Run(ctx context.Context) error
}

// DateRange represents a time range for data fetching.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// YearChunks splits a range into calendar-year chunks so each fetch maps
// onto one yearly storage file.
func YearChunks(r DateRange) []DateRange {
	if !r.Start.Before(r.End) {
		return nil
	}

	var chunks []DateRange
	cur := r.Start
	for cur.Before(r.End) {
		yearEnd := time.Date(cur.Year()+1, 1, 1, 0, 0, 0, 0, time.UTC)
		end := yearEnd
		if r.End.Before(end) {
			end = r.End
		}
		chunks = append(chunks, DateRange{Start: cur, End: end})
		cur = yearEnd
	}
	return chunks
}
