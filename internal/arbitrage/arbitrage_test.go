package arbitrage_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadscan/internal/arbitrage"
	"github.com/alanyoungcy/spreadscan/internal/domain"
)

var defaultCosts = arbitrage.CostParams{
	Capital:     10_000,
	LoanFeePct:  0.0009,
	VenueFeePct: 0.003,
	FixedCost:   0.15,
}

func TestSpreadPct(t *testing.T) {
	assert.InDelta(t, 10.0/3490.0*100, arbitrage.SpreadPct(3500, 3490), 1e-12)
	assert.InDelta(t, 10.0/3490.0*100, arbitrage.SpreadPct(3480, 3490), 1e-12)
	assert.Equal(t, 0.0, arbitrage.SpreadPct(100, 100))
	assert.True(t, math.IsInf(arbitrage.SpreadPct(100, 0), 1))
}

func TestCostModel_Identity(t *testing.T) {
	for _, spread := range []float64{0, 0.01, 0.2865, 1, 7.5, 49.99} {
		c := arbitrage.CostModel(defaultCosts, spread)
		assert.Equal(t, c.Gross-c.LoanCost-c.VenueCost-c.FixedCost, c.Net)
		assert.Equal(t, c, arbitrage.CostModel(defaultCosts, spread), "must be deterministic")
	}
}

func TestCostModel_Itemised(t *testing.T) {
	c := arbitrage.CostModel(defaultCosts, 1.0)
	assert.InDelta(t, 100.0, c.Gross, 1e-9)
	assert.InDelta(t, 9.0, c.LoanCost, 1e-9)
	assert.InDelta(t, 60.0, c.VenueCost, 1e-9)
	assert.Equal(t, 0.15, c.FixedCost)
	assert.InDelta(t, 30.85, c.Net, 1e-9)
}

func TestClassify(t *testing.T) {
	const threshold = 0.01
	lb := arbitrage.DefaultLowerBound

	tests := []struct {
		name string
		net  float64
		want domain.Status
	}{
		{"well above", 25, domain.StatusExecutable},
		{"just above threshold", math.Nextafter(threshold, 1), domain.StatusExecutable},
		{"at threshold", threshold, domain.StatusLowProfit},
		{"zero", 0, domain.StatusLowProfit},
		{"just above lower bound", math.Nextafter(lb, 0), domain.StatusLowProfit},
		{"at lower bound", lb, domain.StatusUnprofitable},
		{"far below", -40.5, domain.StatusUnprofitable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, arbitrage.Classify(tt.net, threshold, lb))
		})
	}
}

func TestEvaluate_EndToEndScenario(t *testing.T) {
	ev := arbitrage.NewEvaluator(arbitrage.EvaluatorConfig{
		Costs:        defaultCosts,
		MinNetProfit: 0.01,
		LowerBound:   arbitrage.DefaultLowerBound,
	})
	asset := domain.AssetTarget{Symbol: "ETH", Ticker: "ETHUSDT", QuoteUnit: "USDC"}
	ts := time.UnixMilli(1_700_000_000_000)

	opp, err := ev.Evaluate(asset, 3500, 3490, ts)
	require.NoError(t, err)

	spread := 10.0 / 3490.0 * 100
	gross := 10_000 * spread / 100
	assert.InDelta(t, 0.2865, opp.SpreadPct, 1e-4)
	assert.InDelta(t, gross, opp.GrossProfit, 1e-9)
	assert.InDelta(t, 9.0, opp.CostFlashLoan, 1e-9)
	assert.InDelta(t, 60.0, opp.CostDexFees, 1e-9)
	assert.InDelta(t, gross-9-60-0.15, opp.NetProfit, 1e-9)
	assert.Equal(t, domain.StatusUnprofitable, opp.Status)
	assert.Equal(t, "ETH/USDC", opp.Pair)
	assert.Equal(t, 10_000.0, opp.CapitalUsed)
	assert.Equal(t, ts, opp.Timestamp)
	assert.NotEmpty(t, opp.ID)
}

func TestEvaluate_SanityCeiling(t *testing.T) {
	// Generous costs so the sample would otherwise be executable.
	ev := arbitrage.NewEvaluator(arbitrage.EvaluatorConfig{
		Costs:        arbitrage.CostParams{Capital: 10_000},
		MinNetProfit: 0.01,
		LowerBound:   arbitrage.DefaultLowerBound,
	})
	asset := domain.AssetTarget{Symbol: "PEPE"}

	_, err := ev.Evaluate(asset, 151, 100, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoiseSpread))

	_, err = ev.Evaluate(asset, 150, 100, time.Now())
	assert.ErrorIs(t, err, domain.ErrNoiseSpread, "ceiling is inclusive")

	opp, err := ev.Evaluate(asset, 149, 100, time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExecutable, opp.Status)
}

func TestEvaluate_UniqueIDs(t *testing.T) {
	ev := arbitrage.NewEvaluator(arbitrage.EvaluatorConfig{Costs: defaultCosts, MinNetProfit: 0.01, LowerBound: -2})
	asset := domain.AssetTarget{Symbol: "BTC"}
	a, err := ev.Evaluate(asset, 100, 99, time.Now())
	require.NoError(t, err)
	b, err := ev.Evaluate(asset, 100, 99, time.Now())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}
