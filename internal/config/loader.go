package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SPREADSCAN_* environment variable overrides, and
// returns the final Config. A missing file is not an error: the defaults are
// a complete configuration. The returned Config has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SPREADSCAN_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	// ── Scanner ──
	setFloat64(&cfg.Scanner.CapitalUSD, "SPREADSCAN_SCANNER_CAPITAL_USD")
	setFloat64(&cfg.Scanner.MinNetProfit, "SPREADSCAN_SCANNER_MIN_NET_PROFIT")
	setFloat64(&cfg.Scanner.LowProfitFloor, "SPREADSCAN_SCANNER_LOW_PROFIT_FLOOR")
	setFloat64(&cfg.Scanner.GasCostUSD, "SPREADSCAN_SCANNER_GAS_COST_USD")
	setFloat64(&cfg.Scanner.FlashLoanFeePct, "SPREADSCAN_SCANNER_FLASH_LOAN_FEE_PCT")
	setFloat64(&cfg.Scanner.DexFeePct, "SPREADSCAN_SCANNER_DEX_FEE_PCT")
	setDuration(&cfg.Scanner.Interval, "SPREADSCAN_SCANNER_INTERVAL")
	setDuration(&cfg.Scanner.FetchTimeout, "SPREADSCAN_SCANNER_FETCH_TIMEOUT")
	setFloat64(&cfg.Scanner.MaxSpreadPct, "SPREADSCAN_SCANNER_MAX_SPREAD_PCT")
	setStr(&cfg.Scanner.AnchorSymbol, "SPREADSCAN_SCANNER_ANCHOR_SYMBOL")
	setInt(&cfg.Scanner.HistorySize, "SPREADSCAN_SCANNER_HISTORY_SIZE")

	// ── Upstreams ──
	setStr(&cfg.Reference.BaseURL, "SPREADSCAN_REFERENCE_BASE_URL")
	setFloat64(&cfg.Reference.RatePerSec, "SPREADSCAN_REFERENCE_RATE_PER_SEC")
	setInt(&cfg.Reference.Burst, "SPREADSCAN_REFERENCE_BURST")
	setDuration(&cfg.Reference.Timeout, "SPREADSCAN_REFERENCE_TIMEOUT")
	setStr(&cfg.Venue.GraphQLURL, "SPREADSCAN_VENUE_GRAPHQL_URL")
	setStr(&cfg.Venue.APIKey, "SPREADSCAN_VENUE_API_KEY")
	setFloat64(&cfg.Venue.RatePerSec, "SPREADSCAN_VENUE_RATE_PER_SEC")
	setInt(&cfg.Venue.Burst, "SPREADSCAN_VENUE_BURST")
	setDuration(&cfg.Venue.Timeout, "SPREADSCAN_VENUE_TIMEOUT")

	setInt(&cfg.Broadcast.BufferSize, "SPREADSCAN_BROADCAST_BUFFER_SIZE")

	// ── Database ──
	setBool(&cfg.Database.Enabled, "SPREADSCAN_DATABASE_ENABLED")
	setStr(&cfg.Database.DSN, "SPREADSCAN_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "SPREADSCAN_DATABASE_HOST")
	setInt(&cfg.Database.Port, "SPREADSCAN_DATABASE_PORT")
	setStr(&cfg.Database.Database, "SPREADSCAN_DATABASE_NAME")
	setStr(&cfg.Database.User, "SPREADSCAN_DATABASE_USER")
	setStr(&cfg.Database.Password, "SPREADSCAN_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "SPREADSCAN_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "SPREADSCAN_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "SPREADSCAN_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "SPREADSCAN_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SPREADSCAN_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SPREADSCAN_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SPREADSCAN_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SPREADSCAN_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SPREADSCAN_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SPREADSCAN_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SPREADSCAN_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.PriceTTL, "SPREADSCAN_REDIS_PRICE_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SPREADSCAN_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SPREADSCAN_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SPREADSCAN_S3_REGION")
	setStr(&cfg.S3.Bucket, "SPREADSCAN_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SPREADSCAN_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SPREADSCAN_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SPREADSCAN_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SPREADSCAN_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.S3.ArchiveInterval, "SPREADSCAN_S3_ARCHIVE_INTERVAL")
	setInt(&cfg.S3.MaxPending, "SPREADSCAN_S3_MAX_PENDING")

	// ── Server ──
	setInt(&cfg.Server.Port, "SPREADSCAN_SERVER_PORT")
	setInt(&cfg.Server.Port, "PORT") // container platforms
	setStringSlice(&cfg.Server.CORSOrigins, "SPREADSCAN_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimitPerMin, "SPREADSCAN_SERVER_RATE_LIMIT_PER_MIN")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SPREADSCAN_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SPREADSCAN_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SPREADSCAN_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SPREADSCAN_NOTIFY_EVENTS")
	setDuration(&cfg.Notify.Cooldown, "SPREADSCAN_NOTIFY_COOLDOWN")

	// ── Top-level ──
	setStr(&cfg.Mode, "SPREADSCAN_MODE")
	setStr(&cfg.LogLevel, "SPREADSCAN_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
