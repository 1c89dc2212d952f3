package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/spreadscan/internal/domain"
)

// ReferenceSeeder accepts cached reference prices.
type ReferenceSeeder interface {
	SeedReference(symbol string, price float64, ts time.Time)
}

// WarmReferencePrices copies cached reference prices for symbols into the
// aggregate store, so stats and velocity start from the last known values
// after a restart. Missing entries are skipped. It returns how many symbols
// were seeded.
func WarmReferencePrices(ctx context.Context, cache domain.PriceCache, symbols []string, into ReferenceSeeder, logger *slog.Logger) int {
	var seeded int
	for _, sym := range symbols {
		price, ts, err := cache.GetPrice(ctx, sym)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				logger.WarnContext(ctx, "service: warm price failed",
					slog.String("symbol", sym),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		into.SeedReference(sym, price, ts)
		seeded++
	}
	logger.InfoContext(ctx, "service: reference prices warmed",
		slog.Int("seeded", seeded),
		slog.Int("symbols", len(symbols)),
	)
	return seeded
}
