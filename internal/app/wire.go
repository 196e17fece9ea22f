package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/babylonsim/internal/blob/s3"
	"github.com/alanyoungcy/babylonsim/internal/cache/redis"
	"github.com/alanyoungcy/babylonsim/internal/config"
	"github.com/alanyoungcy/babylonsim/internal/domain"
	"github.com/alanyoungcy/babylonsim/internal/notify"
	"github.com/alanyoungcy/babylonsim/internal/platform/textgen"
	"github.com/alanyoungcy/babylonsim/internal/store/memory"
	"github.com/alanyoungcy/babylonsim/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	QuestionStore  domain.QuestionStore
	EventStore     domain.EventStore
	PostStore      domain.PostStore
	CompanyStore   domain.CompanyStore
	MarketStore    domain.MarketStore
	ActorStore     domain.ActorStore
	GameStateStore domain.GameStateStore
	Pinger         domain.Pinger

	// Caches
	PriceCache  domain.PriceCache
	SignalBus   domain.SignalBus
	LockManager domain.LockManager
	RateLimiter domain.RateLimiter

	// Archive stores with list/delete-before support (nil in demo mode).
	TickArchive     s3blob.TickArchiveStore
	QuestionArchive s3blob.QuestionArchiveStore

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// Text generation
	Generator domain.TextGenerator

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
//
// Demo mode is fully self-contained: in-memory stores seeded with the stock
// cast, a scripted generator, and no Redis, Postgres, or S3 connections.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	if cfg.Mode == "demo" {
		wireDemo(deps, logger)
		deps.Notifier = notify.NewNotifier(nil, cfg.Notify.Events, logger)
		return deps, cleanup, nil
	}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	questionStore := postgres.NewQuestionStore(pool)
	companyStore := postgres.NewCompanyStore(pool)
	deps.QuestionStore = questionStore
	deps.EventStore = postgres.NewEventStore(pool)
	deps.PostStore = postgres.NewPostStore(pool)
	deps.CompanyStore = companyStore
	deps.MarketStore = postgres.NewMarketStore(pool)
	deps.ActorStore = postgres.NewActorStore(pool)
	deps.GameStateStore = postgres.NewGameStateStore(pool)
	deps.Pinger = pgClient
	deps.TickArchive = companyStore
	deps.QuestionArchive = questionStore

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)

	// --- Text generation ---
	deps.Generator = textgen.NewClient(
		cfg.Generation.BaseURL,
		cfg.Generation.APIKey,
		cfg.Generation.Model,
		textgen.WithRateLimiter(deps.RateLimiter),
	)

	// --- S3 blob storage (only when archival is enabled) ---
	if cfg.Archive.Enabled {
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
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.TickArchive, deps.QuestionArchive, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// wireDemo fills deps with seeded in-memory stores and a scripted generator.
func wireDemo(deps *Dependencies, logger *slog.Logger) {
	gameState := memory.NewGameStateStore()

	deps.QuestionStore = memory.NewQuestionStore()
	deps.EventStore = memory.NewEventStore()
	deps.PostStore = memory.NewPostStore()
	deps.CompanyStore = memory.NewCompanyStore(demoCompanies...)
	deps.MarketStore = memory.NewMarketStore()
	deps.ActorStore = memory.NewActorStore(demoActors)
	deps.GameStateStore = gameState
	deps.Pinger = gameState
	deps.Generator = textgen.NewScripted(0)

	logger.Info("demo dependencies wired",
		slog.Int("actors", len(demoActors)),
		slog.Int("companies", len(demoCompanies)),
	)
}
