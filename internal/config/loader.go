package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BABYLON_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BABYLON_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "BABYLON_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "BABYLON_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "BABYLON_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "BABYLON_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "BABYLON_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "BABYLON_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "BABYLON_POSTGRES_SSLMODE")
	setStr(&cfg.Postgres.SSLMode, "BABYLON_POSTGRES_SSL_MODE") // compatibility alias
	setInt(&cfg.Postgres.PoolMaxConns, "BABYLON_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "BABYLON_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "BABYLON_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "BABYLON_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BABYLON_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BABYLON_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BABYLON_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BABYLON_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BABYLON_REDIS_TLS_ENABLED")

	// ── Generation ──
	setStr(&cfg.Generation.BaseURL, "BABYLON_GENERATION_BASE_URL")
	setStr(&cfg.Generation.APIKey, "BABYLON_GENERATION_API_KEY")
	setStr(&cfg.Generation.Model, "BABYLON_GENERATION_MODEL")

	// ── Engine ──
	setDuration(&cfg.Engine.TickInterval, "BABYLON_ENGINE_TICK_INTERVAL")
	setDuration(&cfg.Engine.InitialDelay, "BABYLON_ENGINE_INITIAL_DELAY")
	setInt(&cfg.Engine.SampleActors, "BABYLON_ENGINE_SAMPLE_ACTORS")

	// ── Cadence ──
	setInt(&cfg.Cadence.Day.MaxActive, "BABYLON_CADENCE_DAY_MAX_ACTIVE")
	setDuration(&cfg.Cadence.Day.MinInterval, "BABYLON_CADENCE_DAY_MIN_INTERVAL")
	setInt(&cfg.Cadence.ThreeDay.MaxActive, "BABYLON_CADENCE_THREE_DAY_MAX_ACTIVE")
	setDuration(&cfg.Cadence.ThreeDay.MinInterval, "BABYLON_CADENCE_THREE_DAY_MIN_INTERVAL")
	setInt(&cfg.Cadence.Week.MaxActive, "BABYLON_CADENCE_WEEK_MAX_ACTIVE")
	setDuration(&cfg.Cadence.Week.MinInterval, "BABYLON_CADENCE_WEEK_MIN_INTERVAL")
	setInt(&cfg.Cadence.Month.MaxActive, "BABYLON_CADENCE_MONTH_MAX_ACTIVE")
	setDuration(&cfg.Cadence.Month.MinInterval, "BABYLON_CADENCE_MONTH_MIN_INTERVAL")
	setFloat64(&cfg.Cadence.SeedLiquidity, "BABYLON_CADENCE_SEED_LIQUIDITY")

	// ── Pricing ──
	setFloat64(&cfg.Pricing.TrendCoefficient, "BABYLON_PRICING_TREND_COEFFICIENT")
	setFloat64(&cfg.Pricing.VolatilityMin, "BABYLON_PRICING_VOLATILITY_MIN")
	setFloat64(&cfg.Pricing.VolatilityMax, "BABYLON_PRICING_VOLATILITY_MAX")
	setFloat64(&cfg.Pricing.MaxStepFraction, "BABYLON_PRICING_MAX_STEP_FRACTION")
	setFloat64(&cfg.Pricing.FloorPrice, "BABYLON_PRICING_FLOOR_PRICE")

	// ── S3 / Archive ──
	setStr(&cfg.S3.Endpoint, "BABYLON_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BABYLON_S3_REGION")
	setStr(&cfg.S3.Bucket, "BABYLON_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BABYLON_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BABYLON_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BABYLON_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BABYLON_S3_FORCE_PATH_STYLE")
	setBool(&cfg.Archive.Enabled, "BABYLON_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "BABYLON_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "BABYLON_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "BABYLON_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "BABYLON_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "BABYLON_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "BABYLON_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "BABYLON_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "BABYLON_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "BABYLON_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "BABYLON_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "BABYLON_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "BABYLON_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "BABYLON_MODE")
	setStr(&cfg.LogLevel, "BABYLON_LOG_LEVEL")
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
