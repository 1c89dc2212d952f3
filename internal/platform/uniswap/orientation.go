package uniswap

import (
	"math"

	"github.com/alanyoungcy/spreadscan/internal/domain"
)

// SelectQuote picks whichever of a pool's two quotes is closer to the
// reference price. Pools order their tokens by address, so whether the USD
// side is token0 or token1 differs per pool; the quote that lands near the
// reference is taken to be the USD-denominated one.
//
// A quote is usable only if it is finite and positive. When exactly one is
// usable it is returned; when neither is, the result wraps
// domain.ErrAmbiguousQuote. Equidistant quotes resolve to a.
func SelectQuote(a, b, reference float64) (float64, error) {
	okA, okB := usable(a), usable(b)
	switch {
	case !okA && !okB:
		return 0, domain.ErrAmbiguousQuote
	case !okB:
		return a, nil
	case !okA:
		return b, nil
	}
	if math.Abs(b-reference) < math.Abs(a-reference) {
		return b, nil
	}
	return a, nil
}

func usable(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}
