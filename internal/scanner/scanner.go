// Package scanner drives the sequential round-robin scan over the asset
// catalog: fetch both prices, evaluate the spread, record and publish.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/spreadscan/internal/aggregate"
	"github.com/alanyoungcy/spreadscan/internal/arbitrage"
	"github.com/alanyoungcy/spreadscan/internal/catalog"
	"github.com/alanyoungcy/spreadscan/internal/domain"
	"github.com/alanyoungcy/spreadscan/internal/metrics"
)

// ReferenceSource returns the reference-market price for a ticker.
type ReferenceSource interface {
	Quote(ctx context.Context, ticker string) (domain.PriceQuote, error)
}

// VenueSource returns the venue price for a pool, oriented against the
// supplied reference price.
type VenueSource interface {
	Quote(ctx context.Context, poolID string, reference float64) (domain.PriceQuote, error)
}

// Publisher receives every message the scanner emits.
type Publisher interface {
	Publish(msg domain.Message)
}

// Publishers fans each message out to every publisher in order.
type Publishers []Publisher

// Publish forwards msg to each publisher.
func (p Publishers) Publish(msg domain.Message) {
	for _, pub := range p {
		pub.Publish(msg)
	}
}

// Config holds the scan cadence and per-call timeout.
type Config struct {
	Interval     time.Duration
	FetchTimeout time.Duration
}

// Deps are the scanner's collaborators.
type Deps struct {
	Catalog   *catalog.Catalog
	Reference ReferenceSource
	Venue     VenueSource
	Evaluator *arbitrage.Evaluator
	Store     *aggregate.Store
	Publisher Publisher
}

// Scanner samples one catalog asset per iteration. It is not safe for
// concurrent use: ScanOnce and Run must be driven from one goroutine.
type Scanner struct {
	deps   Deps
	cfg    Config
	cursor int
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Scanner.
func New(deps Deps, cfg Config, logger *slog.Logger) *Scanner {
	if cfg.Interval <= 0 {
		cfg.Interval = 300 * time.Millisecond
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	return &Scanner{
		deps:   deps,
		cfg:    cfg,
		now:    time.Now,
		logger: logger.With(slog.String("component", "scanner")),
	}
}

// Run scans until ctx is cancelled, sleeping cfg.Interval between
// iterations. A failed iteration is logged and the loop moves on to the next
// asset. Run returns ctx.Err().
func (s *Scanner) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "scanner started",
		slog.Int("assets", s.deps.Catalog.Len()),
		slog.Duration("interval", s.cfg.Interval),
	)

	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("scanner stopped")
			return err
		}

		opp, err := s.ScanOnce(ctx)
		s.logResult(ctx, opp, err)

		timer := time.NewTimer(s.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scanner stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// ScanOnce runs one iteration on the next catalog asset. The cursor advances
// whether or not the iteration succeeds. On success the opportunity has been
// recorded and published, followed by the updated stats.
func (s *Scanner) ScanOnce(ctx context.Context) (domain.Opportunity, error) {
	asset := s.deps.Catalog.At(s.cursor)
	s.cursor = (s.cursor + 1) % s.deps.Catalog.Len()

	ref, err := s.fetchReference(ctx, asset)
	if err != nil {
		metrics.RecordCycle("reference_unavailable")
		return domain.Opportunity{}, err
	}
	s.deps.Publisher.Publish(s.deps.Store.ObserveReference(asset.Symbol, ref.Price, ref.Timestamp))

	venue, err := s.fetchVenue(ctx, asset, ref.Price)
	if err != nil {
		metrics.RecordCycle("venue_unavailable")
		return domain.Opportunity{}, err
	}

	opp, err := s.deps.Evaluator.Evaluate(asset, ref.Price, venue.Price, s.now())
	if err != nil {
		metrics.RecordCycle("noise")
		return domain.Opportunity{}, err
	}

	// The venue price only reaches the store through an accepted
	// observation; a discarded sample leaves published stats untouched.
	stats := s.deps.Store.Record(opp)
	s.deps.Publisher.Publish(domain.OpportunityMessage{Opportunity: opp})
	s.deps.Publisher.Publish(stats)

	metrics.RecordCycle("ok")
	metrics.RecordObservation(opp.Symbol, string(opp.Status), opp.SpreadPct)
	return opp, nil
}

// Cursor returns the index of the asset the next ScanOnce will sample.
func (s *Scanner) Cursor() int { return s.cursor }

func (s *Scanner) fetchReference(ctx context.Context, asset domain.AssetTarget) (domain.PriceQuote, error) {
	fctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	q, err := s.deps.Reference.Quote(fctx, asset.Ticker)
	metrics.RecordFetch(string(domain.SourceReference), time.Since(start), err)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("scanner: %s reference: %w", asset.Symbol, err)
	}
	return q, nil
}

func (s *Scanner) fetchVenue(ctx context.Context, asset domain.AssetTarget, reference float64) (domain.PriceQuote, error) {
	fctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	q, err := s.deps.Venue.Quote(fctx, asset.PoolID, reference)
	metrics.RecordFetch(string(domain.SourceVenue), time.Since(start), err)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("scanner: %s venue: %w", asset.Symbol, err)
	}
	return q, nil
}

func (s *Scanner) logResult(ctx context.Context, opp domain.Opportunity, err error) {
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "scanner: observation",
			slog.String("pair", opp.Pair),
			slog.Float64("spread_pct", opp.SpreadPct),
			slog.Float64("net_profit", opp.NetProfit),
			slog.String("status", string(opp.Status)),
		)
	case errors.Is(err, domain.ErrNoiseSpread):
		s.logger.DebugContext(ctx, "scanner: spread discarded", slog.String("error", err.Error()))
	case ctx.Err() != nil:
		// Shutting down; the fetch was cut short.
	default:
		s.logger.WarnContext(ctx, "scanner: source unavailable", slog.String("error", err.Error()))
	}
}
