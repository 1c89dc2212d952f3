package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadscan/internal/catalog"
	"github.com/alanyoungcy/spreadscan/internal/config"
)

func TestWriteBanner(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeBanner(&buf, catalog.Default(), config.Defaults().Scanner))

	out := buf.String()
	assert.Contains(t, out, "spreadscan: 10 assets, scanning every 300ms")
	assert.Contains(t, out, "ETH/USDC")
	assert.Contains(t, out, "ARBUSDT")
	assert.Contains(t, out, "$10000.00")
	assert.Contains(t, out, "0.0900%")
}

func TestEvaluatorConfig(t *testing.T) {
	ec := evaluatorConfig(config.Defaults().Scanner)
	assert.Equal(t, 10_000.0, ec.Costs.Capital)
	assert.Equal(t, 0.0009, ec.Costs.LoanFeePct)
	assert.Equal(t, 0.003, ec.Costs.VenueFeePct)
	assert.Equal(t, 0.15, ec.Costs.FixedCost)
	assert.Equal(t, 0.01, ec.MinNetProfit)
	assert.Equal(t, -2.0, ec.LowerBound)
	assert.Equal(t, 50.0, ec.MaxSpreadPct)
}
