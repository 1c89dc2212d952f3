package app

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/alanyoungcy/spreadscan/internal/config"
	"github.com/alanyoungcy/spreadscan/internal/domain"
)

// writeBanner prints the tracked assets and the cost model in effect.
func writeBanner(w io.Writer, assets []domain.AssetTarget, sc config.ScannerConfig) error {
	fmt.Fprintf(w, "\nspreadscan: %d assets, scanning every %s\n", len(assets), sc.Interval.Duration)

	table := tablewriter.NewWriter(w)
	table.Header("#", "Pair", "Ticker", "Pool")
	for i, a := range assets {
		if err := table.Append(fmt.Sprintf("%d", i+1), a.Pair(), a.Ticker, a.PoolID); err != nil {
			return fmt.Errorf("app: banner row %s: %w", a.Symbol, err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("app: banner assets: %w", err)
	}

	costs := tablewriter.NewWriter(w)
	costs.Header("Parameter", "Value")
	rows := [][]string{
		{"Capital", fmt.Sprintf("$%.2f", sc.CapitalUSD)},
		{"Flash loan fee", fmt.Sprintf("%.4f%%", sc.FlashLoanFeePct*100)},
		{"DEX fee (x2 legs)", fmt.Sprintf("%.4f%%", sc.DexFeePct*100)},
		{"Gas", fmt.Sprintf("$%.2f", sc.GasCostUSD)},
		{"Executable above", fmt.Sprintf("$%.2f", sc.MinNetProfit)},
		{"Low-profit floor", fmt.Sprintf("$%.2f", sc.LowProfitFloor)},
		{"Spread ceiling", fmt.Sprintf("%.0f%%", sc.MaxSpreadPct)},
	}
	for _, r := range rows {
		if err := costs.Append(r[0], r[1]); err != nil {
			return fmt.Errorf("app: banner costs: %w", err)
		}
	}
	if err := costs.Render(); err != nil {
		return fmt.Errorf("app: banner costs: %w", err)
	}
	return nil
}
