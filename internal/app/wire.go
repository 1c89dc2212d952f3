package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/spreadscan/internal/aggregate"
	"github.com/alanyoungcy/spreadscan/internal/arbitrage"
	s3blob "github.com/alanyoungcy/spreadscan/internal/blob/s3"
	"github.com/alanyoungcy/spreadscan/internal/broadcast"
	"github.com/alanyoungcy/spreadscan/internal/cache/redis"
	"github.com/alanyoungcy/spreadscan/internal/catalog"
	"github.com/alanyoungcy/spreadscan/internal/config"
	"github.com/alanyoungcy/spreadscan/internal/domain"
	"github.com/alanyoungcy/spreadscan/internal/notify"
	"github.com/alanyoungcy/spreadscan/internal/platform/binance"
	"github.com/alanyoungcy/spreadscan/internal/platform/uniswap"
	"github.com/alanyoungcy/spreadscan/internal/scanner"
	"github.com/alanyoungcy/spreadscan/internal/service"
	"github.com/alanyoungcy/spreadscan/internal/store/postgres"
)

// Dependencies bundles everything the run modes need. Optional
// infrastructure fields are nil when disabled in the configuration.
type Dependencies struct {
	Catalog *catalog.Catalog
	Store   *aggregate.Store
	Hub     *broadcast.Hub
	Scanner *scanner.Scanner
	Mirror  *service.Mirror

	// Optional
	ObservationStore domain.ObservationStore
	PriceCache       domain.PriceCache
	SignalBus        domain.SignalBus
	RateLimiter      domain.RateLimiter
	Archiver         *s3blob.Archiver
	Notifier         *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	cat, err := catalog.New(catalog.Default())
	if err != nil {
		return fail(fmt.Errorf("wire: catalog: %w", err))
	}

	deps := &Dependencies{
		Catalog: cat,
		Store: aggregate.New(aggregate.Options{
			HistorySize:  cfg.Scanner.HistorySize,
			AnchorSymbol: cfg.Scanner.AnchorSymbol,
			ActivePools:  cat.Len(),
		}),
		Hub: broadcast.NewHub(cfg.Broadcast.BufferSize, logger),
	}
	closers = append(closers, deps.Hub.Close)

	// --- PostgreSQL ---
	if cfg.Database.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.PoolMaxConns,
			MinConns: cfg.Database.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Database.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}
		deps.ObservationStore = postgres.NewObservationStore(pgClient)
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient, cfg.Redis.PriceTTL.Duration)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)

		symbols := make([]string, 0, cat.Len())
		for _, a := range cat.All() {
			symbols = append(symbols, a.Symbol)
		}
		service.WarmReferencePrices(ctx, deps.PriceCache, symbols, deps.Store, logger)
	}

	// --- S3 ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		if err := s3Client.Health(ctx); err != nil {
			logger.WarnContext(ctx, "wire: s3 bucket not reachable yet", slog.String("error", err.Error()))
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), cfg.S3.MaxPending, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender("", cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger).WithCooldown(cfg.Notify.Cooldown.Duration)

	// --- Scanner ---
	// The archiver takes observations straight from the scanner so its
	// buffer, not the bounded log or a hub subscription, decides retention.
	publishers := scanner.Publishers{deps.Hub}
	if deps.Archiver != nil {
		publishers = append(publishers, deps.Archiver)
	}
	deps.Scanner = scanner.New(scanner.Deps{
		Catalog: cat,
		Reference: binance.NewClient(binance.Options{
			BaseURL:    cfg.Reference.BaseURL,
			RatePerSec: cfg.Reference.RatePerSec,
			Burst:      cfg.Reference.Burst,
			Timeout:    cfg.Reference.Timeout.Duration,
		}),
		Venue: uniswap.NewClient(uniswap.Options{
			GraphQLURL: cfg.Venue.GraphQLURL,
			APIKey:     cfg.Venue.APIKey,
			RatePerSec: cfg.Venue.RatePerSec,
			Burst:      cfg.Venue.Burst,
			Timeout:    cfg.Venue.Timeout.Duration,
		}),
		Evaluator: arbitrage.NewEvaluator(evaluatorConfig(cfg.Scanner)),
		Store:     deps.Store,
		Publisher: publishers,
	}, scanner.Config{
		Interval:     cfg.Scanner.Interval.Duration,
		FetchTimeout: cfg.Scanner.FetchTimeout.Duration,
	}, logger)

	// The mirror needs interface values that are nil when a sink is disabled,
	// not typed nils.
	sinks := service.MirrorSinks{}
	if deps.ObservationStore != nil {
		sinks.Store = deps.ObservationStore
	}
	if deps.SignalBus != nil {
		sinks.Bus = deps.SignalBus
	}
	if deps.PriceCache != nil {
		sinks.Prices = deps.PriceCache
	}
	if deps.Notifier.Enabled() {
		sinks.Notifier = deps.Notifier
	}
	deps.Mirror = service.NewMirror(deps.Hub, sinks, 0, logger)

	return deps, cleanup, nil
}

func evaluatorConfig(sc config.ScannerConfig) arbitrage.EvaluatorConfig {
	return arbitrage.EvaluatorConfig{
		Costs: arbitrage.CostParams{
			Capital:     sc.CapitalUSD,
			LoanFeePct:  sc.FlashLoanFeePct,
			VenueFeePct: sc.DexFeePct,
			FixedCost:   sc.GasCostUSD,
		},
		MinNetProfit: sc.MinNetProfit,
		LowerBound:   sc.LowProfitFloor,
		MaxSpreadPct: sc.MaxSpreadPct,
	}
}
