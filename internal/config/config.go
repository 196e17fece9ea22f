// Package config defines the top-level configuration for the simulation
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by BABYLON_* environment variables.
type Config struct {
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	Generation GenerationConfig `toml:"generation"`
	Engine     EngineConfig     `toml:"engine"`
	Cadence    CadenceConfig    `toml:"cadence"`
	Pricing    PricingConfig    `toml:"pricing"`
	S3         S3Config         `toml:"s3"`
	Archive    ArchiveConfig    `toml:"archive"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
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
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// GenerationConfig holds the text-generation service parameters.
type GenerationConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

// EngineConfig holds tick-scheduler parameters.
type EngineConfig struct {
	TickInterval duration `toml:"tick_interval"`
	InitialDelay duration `toml:"initial_delay"`
	SampleActors int      `toml:"sample_actors"`
}

// CadenceBucketConfig holds the creation gates for one time horizon.
type CadenceBucketConfig struct {
	MaxActive   int      `toml:"max_active"`
	MinInterval duration `toml:"min_interval"`
}

// CadenceConfig holds per-horizon question cadence parameters.
type CadenceConfig struct {
	Day             CadenceBucketConfig `toml:"day"`
	ThreeDay        CadenceBucketConfig `toml:"three_day"`
	Week            CadenceBucketConfig `toml:"week"`
	Month           CadenceBucketConfig `toml:"month"`
	SeedLiquidity   float64             `toml:"seed_liquidity"`
	SampleActors    int                 `toml:"sample_actors"`
	SampleCompanies int                 `toml:"sample_companies"`
}

// PricingConfig holds the stochastic price model parameters.
type PricingConfig struct {
	TrendCoefficient float64 `toml:"trend_coefficient"`
	VolatilityMin    float64 `toml:"volatility_min"`
	VolatilityMax    float64 `toml:"volatility_max"`
	MaxStepFraction  float64 `toml:"max_step_fraction"`
	FloorPrice       float64 `toml:"floor_price"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig holds cold-storage archival parameters.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "60s", "4h").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "60s" or "4h".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "babylon",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Generation: GenerationConfig{
			BaseURL: "http://localhost:8080",
			Model:   "narrative-large",
		},
		Engine: EngineConfig{
			TickInterval: duration{60 * time.Second},
			InitialDelay: duration{5 * time.Second},
			SampleActors: 6,
		},
		Cadence: CadenceConfig{
			Day:             CadenceBucketConfig{MaxActive: 3, MinInterval: duration{4 * time.Hour}},
			ThreeDay:        CadenceBucketConfig{MaxActive: 2, MinInterval: duration{12 * time.Hour}},
			Week:            CadenceBucketConfig{MaxActive: 2, MinInterval: duration{24 * time.Hour}},
			Month:           CadenceBucketConfig{MaxActive: 1, MinInterval: duration{72 * time.Hour}},
			SeedLiquidity:   1000,
			SampleActors:    5,
			SampleCompanies: 5,
		},
		Pricing: PricingConfig{
			TrendCoefficient: 0.002,
			VolatilityMin:    0.0001,
			VolatilityMax:    0.001,
			MaxStepFraction:  0.01,
			FloorPrice:       0.01,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "babylon-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"question_resolved", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"engine": true,
	"server": true,
	"demo":   true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: engine, server, demo, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	needsPostgres := c.Mode != "demo"
	if needsPostgres && strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.Generation.BaseURL == "" {
		errs = append(errs, "generation: base_url must not be empty")
	}

	if c.Engine.TickInterval.Duration <= 0 {
		errs = append(errs, "engine: tick_interval must be positive")
	}
	if c.Engine.InitialDelay.Duration < 0 {
		errs = append(errs, "engine: initial_delay must not be negative")
	}
	if c.Engine.SampleActors < 1 {
		errs = append(errs, "engine: sample_actors must be >= 1")
	}

	for _, b := range []struct {
		name string
		cfg  CadenceBucketConfig
	}{
		{"day", c.Cadence.Day},
		{"three_day", c.Cadence.ThreeDay},
		{"week", c.Cadence.Week},
		{"month", c.Cadence.Month},
	} {
		if b.cfg.MaxActive < 0 {
			errs = append(errs, fmt.Sprintf("cadence.%s: max_active must not be negative", b.name))
		}
		if b.cfg.MinInterval.Duration <= 0 {
			errs = append(errs, fmt.Sprintf("cadence.%s: min_interval must be positive", b.name))
		}
	}
	if c.Cadence.SeedLiquidity <= 0 {
		errs = append(errs, "cadence: seed_liquidity must be > 0")
	}

	if c.Pricing.VolatilityMin < 0 || c.Pricing.VolatilityMax < c.Pricing.VolatilityMin {
		errs = append(errs, "pricing: volatility range must satisfy 0 <= min <= max")
	}
	if c.Pricing.MaxStepFraction <= 0 || c.Pricing.MaxStepFraction > 1 {
		errs = append(errs, "pricing: max_step_fraction must be in (0, 1]")
	}
	if c.Pricing.FloorPrice <= 0 {
		errs = append(errs, "pricing: floor_price must be > 0")
	}

	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archival is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archival is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be positive")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
