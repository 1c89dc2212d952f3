package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/spreadscan/internal/server"
	"github.com/alanyoungcy/spreadscan/internal/server/handler"
	"github.com/alanyoungcy/spreadscan/internal/server/ws"
)

const shutdownTimeout = 5 * time.Second

// FullMode runs the scanner, its downstream consumers and the HTTP server.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startCore(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// ScanMode runs the scanner and its downstream consumers without the HTTP
// server.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startCore(ctx, g, deps)
	return g.Wait()
}

// startCore adds the scanner, the mirror (when a sink is configured) and the
// archiver (when S3 is enabled) to g. The broadcast hub is closed once ctx
// is done so every subscriber drains and exits.
func (a *App) startCore(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	g.Go(func() error {
		return deps.Scanner.Run(ctx)
	})

	if deps.Mirror.Enabled() {
		g.Go(func() error {
			return deps.Mirror.Run(ctx)
		})
	}

	if deps.Archiver != nil {
		interval := a.cfg.S3.ArchiveInterval.Duration
		g.Go(func() error {
			return deps.Archiver.RunLoop(ctx, interval)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		deps.Hub.Close()
		return nil
	})
}

// startHTTPServer adds the HTTP server goroutine and its shutdown watcher
// to g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	opps := handler.NewOpportunityHandler(deps.Store, a.logger)
	if deps.ObservationStore != nil {
		opps = opps.WithObservationStore(deps.ObservationStore)
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		RateLimitPerMin: a.cfg.Server.RateLimitPerMin,
		RateLimiter:     deps.RateLimiter,
	}, server.Handlers{
		Health:        handler.NewHealthHandler(),
		Status:        handler.NewStatusHandler(a.cfg.Mode, a.started, deps.Hub, deps.Catalog.Len()),
		Opportunities: opps,
		Catalog:       handler.NewCatalogHandler(deps.Catalog),
	}, ws.NewHub(deps.Hub, deps.Store, a.logger), a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.String("addr", srv.Addr()),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)),
		)
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
