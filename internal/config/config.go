// Package config defines the top-level configuration for the spread scanner
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SPREADSCAN_* environment variables.
type Config struct {
	Scanner   ScannerConfig   `toml:"scanner"`
	Reference ReferenceConfig `toml:"reference"`
	Venue     VenueConfig     `toml:"venue"`
	Broadcast BroadcastConfig `toml:"broadcast"`
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ScannerConfig holds the cost model parameters and the scan cadence.
type ScannerConfig struct {
	CapitalUSD      float64  `toml:"capital_usd"`
	MinNetProfit    float64  `toml:"min_net_profit"`
	LowProfitFloor  float64  `toml:"low_profit_floor"`
	GasCostUSD      float64  `toml:"gas_cost_usd"`
	FlashLoanFeePct float64  `toml:"flash_loan_fee_pct"`
	DexFeePct       float64  `toml:"dex_fee_pct"`
	Interval        duration `toml:"interval"`
	FetchTimeout    duration `toml:"fetch_timeout"`
	MaxSpreadPct    float64  `toml:"max_spread_pct"`
	// AnchorSymbol selects the asset whose prices are reported in stats
	// messages as eth_price / venue_price.
	AnchorSymbol string `toml:"anchor_symbol"`
	HistorySize  int    `toml:"history_size"`
}

// ReferenceConfig holds the reference market (Binance) endpoint.
type ReferenceConfig struct {
	BaseURL    string   `toml:"base_url"`
	RatePerSec float64  `toml:"rate_per_sec"`
	Burst      int      `toml:"burst"`
	Timeout    duration `toml:"timeout"`
}

// VenueConfig holds the venue (Uniswap v3 subgraph) endpoint.
type VenueConfig struct {
	GraphQLURL string   `toml:"graphql_url"`
	APIKey     string   `toml:"api_key"`
	RatePerSec float64  `toml:"rate_per_sec"`
	Burst      int      `toml:"burst"`
	Timeout    duration `toml:"timeout"`
}

// BroadcastConfig holds the per-subscriber queue bound.
type BroadcastConfig struct {
	BufferSize int `toml:"buffer_size"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	// PriceTTL bounds how long a cached reference price stays readable.
	PriceTTL duration `toml:"price_ttl"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled         bool     `toml:"enabled"`
	Endpoint        string   `toml:"endpoint"`
	Region          string   `toml:"region"`
	Bucket          string   `toml:"bucket"`
	AccessKey       string   `toml:"access_key"`
	SecretKey       string   `toml:"secret_key"`
	UseSSL          bool     `toml:"use_ssl"`
	ForcePathStyle  bool     `toml:"force_path_style"`
	ArchiveInterval duration `toml:"archive_interval"`
	// MaxPending bounds the observations buffered between archive uploads.
	MaxPending int `toml:"max_pending"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "300ms", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// RateLimitPerMin caps requests per client IP; 0 disables the limiter.
	// Requires redis.enabled.
	RateLimitPerMin int `toml:"rate_limit_per_min"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
	// Cooldown suppresses a repeat alert for the same pair and status.
	Cooldown duration `toml:"cooldown"`
}

// Defaults returns a Config populated with the values the scanner runs with
// when no configuration file is present.
func Defaults() Config {
	return Config{
		Scanner: ScannerConfig{
			CapitalUSD:      10_000,
			MinNetProfit:    0.01,
			LowProfitFloor:  -2.0,
			GasCostUSD:      0.15,
			FlashLoanFeePct: 0.0009,
			DexFeePct:       0.003,
			Interval:        duration{300 * time.Millisecond},
			FetchTimeout:    duration{10 * time.Second},
			MaxSpreadPct:    50,
			AnchorSymbol:    "ETH",
			HistorySize:     1000,
		},
		Reference: ReferenceConfig{
			BaseURL:    "https://api.binance.com",
			RatePerSec: 10,
			Burst:      5,
			Timeout:    duration{10 * time.Second},
		},
		Venue: VenueConfig{
			GraphQLURL: "https://api.thegraph.com/subgraphs/name/uniswap/uniswap-v3",
			RatePerSec: 5,
			Burst:      2,
			Timeout:    duration{10 * time.Second},
		},
		Broadcast: BroadcastConfig{
			BufferSize: 100,
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			PriceTTL:   duration{time.Minute},
		},
		S3: S3Config{
			Endpoint:        "http://localhost:9000",
			Region:          "us-east-1",
			Bucket:          "spreadscan-data",
			ForcePathStyle:  true,
			ArchiveInterval: duration{15 * time.Minute},
			MaxPending:      100_000,
		},
		Server: ServerConfig{
			Port: 3000,
		},
		Notify: NotifyConfig{
			Events:   []string{"opportunity_executable"},
			Cooldown: duration{5 * time.Minute},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"full": true,
	"scan": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: full, scan)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Scanner
	if c.Scanner.CapitalUSD <= 0 {
		errs = append(errs, "scanner: capital_usd must be > 0")
	}
	if c.Scanner.FlashLoanFeePct < 0 || c.Scanner.DexFeePct < 0 || c.Scanner.GasCostUSD < 0 {
		errs = append(errs, "scanner: fees and gas cost must be >= 0")
	}
	if c.Scanner.LowProfitFloor >= c.Scanner.MinNetProfit {
		errs = append(errs, "scanner: low_profit_floor must be below min_net_profit")
	}
	if c.Scanner.Interval.Duration <= 0 {
		errs = append(errs, "scanner: interval must be > 0")
	}
	if c.Scanner.FetchTimeout.Duration <= 0 {
		errs = append(errs, "scanner: fetch_timeout must be > 0")
	}
	if c.Scanner.MaxSpreadPct <= 0 {
		errs = append(errs, "scanner: max_spread_pct must be > 0")
	}
	if c.Scanner.HistorySize < 1 {
		errs = append(errs, "scanner: history_size must be >= 1")
	}

	// Upstreams
	if c.Reference.BaseURL == "" {
		errs = append(errs, "reference: base_url must not be empty")
	}
	if c.Venue.GraphQLURL == "" {
		errs = append(errs, "venue: graphql_url must not be empty")
	}
	if c.Reference.RatePerSec <= 0 || c.Venue.RatePerSec <= 0 {
		errs = append(errs, "reference/venue: rate_per_sec must be > 0")
	}

	if c.Broadcast.BufferSize < 1 {
		errs = append(errs, "broadcast: buffer_size must be >= 1")
	}

	// Database
	if c.Database.Enabled {
		if strings.TrimSpace(c.Database.DSN) == "" {
			if c.Database.Host == "" {
				errs = append(errs, "database: host must not be empty (or set database.dsn)")
			}
			if c.Database.Port <= 0 || c.Database.Port > 65535 {
				errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
			}
		}
		if c.Database.PoolMaxConns < 1 {
			errs = append(errs, "database: pool_max_conns must be >= 1")
		}
		if c.Database.PoolMinConns > c.Database.PoolMaxConns {
			errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.ArchiveInterval.Duration <= 0 {
			errs = append(errs, "s3: archive_interval must be > 0")
		}
		if c.S3.MaxPending < 1 {
			errs = append(errs, "s3: max_pending must be >= 1")
		}
	}

	// Server
	if strings.EqualFold(c.Mode, "full") && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimitPerMin > 0 && !c.Redis.Enabled {
		errs = append(errs, "server: rate_limit_per_min requires redis.enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
