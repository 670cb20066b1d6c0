package strategy

import (
	"ganymede/internal/domain"
	"ganymede/internal/indicator"
)

// CrossOverName is the registry name of the built-in SMA crossover rule.
const CrossOverName = "sma-cross"

// CrossOver is the moving-average crossover rule: long on a bar iff both
// indicator values are valid and the fast value is strictly greater than the
// slow value. Ties and bars with insufficient indicator history resolve to
// flat, so warm-up bars never produce a position. If the inputs differ in
// length the shorter one bounds the output.
func CrossOver(fast, slow []indicator.Value) []domain.Signal {
	n := len(fast)
	if len(slow) < n {
		n = len(slow)
	}

	signals := make([]domain.Signal, n)
	for i := 0; i < n; i++ {
		if fast[i].Valid && slow[i].Valid && fast[i].V > slow[i].V {
			signals[i] = domain.SignalLong
		}
	}
	return signals
}
