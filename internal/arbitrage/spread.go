package arbitrage

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/spreadscan/internal/domain"
)

// DefaultMaxSpreadPct is the sanity ceiling: spreads at or above it are
// treated as stale or malformed venue data.
const DefaultMaxSpreadPct = 50.0

// SpreadPct returns |reference - venue| / venue * 100. A non-positive venue
// price yields +Inf so the sample always falls above any ceiling.
func SpreadPct(reference, venue float64) float64 {
	if venue <= 0 {
		return math.Inf(1)
	}
	return math.Abs(reference-venue) / venue * 100
}

// EvaluatorConfig configures an Evaluator.
type EvaluatorConfig struct {
	Costs        CostParams
	MinNetProfit float64
	LowerBound   float64
	MaxSpreadPct float64
}

// Evaluator turns a pair of prices into a classified Opportunity.
type Evaluator struct {
	cfg   EvaluatorConfig
	newID func() string
}

// NewEvaluator creates an evaluator. Zero MaxSpreadPct selects
// DefaultMaxSpreadPct.
func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	if cfg.MaxSpreadPct <= 0 {
		cfg.MaxSpreadPct = DefaultMaxSpreadPct
	}
	return &Evaluator{
		cfg:   cfg,
		newID: func() string { return uuid.Must(uuid.NewRandom()).String() },
	}
}

// Config returns the evaluator's parameters.
func (e *Evaluator) Config() EvaluatorConfig { return e.cfg }

// Evaluate computes the spread, applies the sanity ceiling, runs the cost
// model and classifies the result. A spread at or above the ceiling returns
// an error wrapping domain.ErrNoiseSpread and no Opportunity.
func (e *Evaluator) Evaluate(asset domain.AssetTarget, reference, venue float64, ts time.Time) (domain.Opportunity, error) {
	spread := SpreadPct(reference, venue)
	if spread >= e.cfg.MaxSpreadPct || math.IsNaN(spread) {
		return domain.Opportunity{}, fmt.Errorf("arbitrage: %s spread %.4f%%: %w", asset.Symbol, spread, domain.ErrNoiseSpread)
	}

	c := CostModel(e.cfg.Costs, spread)
	return domain.Opportunity{
		ID:             e.newID(),
		Timestamp:      ts,
		Symbol:         asset.Symbol,
		Pair:           asset.Pair(),
		ReferencePrice: reference,
		VenuePrice:     venue,
		SpreadPct:      spread,
		CapitalUsed:    e.cfg.Costs.Capital,
		GrossProfit:    c.Gross,
		CostFlashLoan:  c.LoanCost,
		CostDexFees:    c.VenueCost,
		CostGas:        c.FixedCost,
		NetProfit:      c.Net,
		Status:         Classify(c.Net, e.cfg.MinNetProfit, e.cfg.LowerBound),
	}, nil
}
