// Package arbitrage holds the pure spread arithmetic: the cost model, the
// classifier and the Evaluator combining them.
package arbitrage

import "github.com/alanyoungcy/spreadscan/internal/domain"

// CostParams are the inputs of the cost model other than the spread.
// LoanFeePct and VenueFeePct are fractions (0.003 = 0.3%).
type CostParams struct {
	Capital     float64
	LoanFeePct  float64
	VenueFeePct float64
	FixedCost   float64
}

// Costs is the itemised result of the cost model.
type Costs struct {
	Gross     float64
	LoanCost  float64
	VenueCost float64
	FixedCost float64
	Net       float64
}

// CostModel prices a round trip of p.Capital across a spread of spreadPct
// percent. The venue fee is charged on both legs. No rounding is applied.
func CostModel(p CostParams, spreadPct float64) Costs {
	gross := p.Capital * (spreadPct / 100)
	loan := p.Capital * p.LoanFeePct
	venue := p.Capital * p.VenueFeePct * 2
	return Costs{
		Gross:     gross,
		LoanCost:  loan,
		VenueCost: venue,
		FixedCost: p.FixedCost,
		Net:       gross - loan - venue - p.FixedCost,
	}
}

// DefaultLowerBound separates near-misses from unprofitable samples.
const DefaultLowerBound = -2.0

// Classify labels a net profit. Both bounds are strict: net equal to the
// threshold is not executable and net equal to the lower bound is
// unprofitable.
func Classify(net, threshold, lowerBound float64) domain.Status {
	switch {
	case net > threshold:
		return domain.StatusExecutable
	case net > lowerBound:
		return domain.StatusLowProfit
	default:
		return domain.StatusUnprofitable
	}
}
