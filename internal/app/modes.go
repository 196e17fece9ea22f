package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/babylonsim/internal/cadence"
	"github.com/alanyoungcy/babylonsim/internal/config"
	"github.com/alanyoungcy/babylonsim/internal/domain"
	"github.com/alanyoungcy/babylonsim/internal/engine"
	"github.com/alanyoungcy/babylonsim/internal/narrative"
	"github.com/alanyoungcy/babylonsim/internal/notify"
	"github.com/alanyoungcy/babylonsim/internal/pricing"
	"github.com/alanyoungcy/babylonsim/internal/server"
	"github.com/alanyoungcy/babylonsim/internal/server/handler"
	"github.com/alanyoungcy/babylonsim/internal/server/ws"
)

// EngineMode runs the tick scheduler headless: no HTTP API, just the world
// advancing and, when enabled, the archival sweep.
func (a *App) EngineMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting engine mode")

	eng := a.buildEngine(deps)
	if err := eng.Initialize(ctx); err != nil {
		return fmt.Errorf("engine mode: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	a.runEngine(ctx, g, deps, eng)
	a.startArchiveLoop(ctx, g, deps)
	return g.Wait()
}

// ServerMode serves the HTTP + WebSocket API over an already-populated world.
// No ticks run; another instance in engine mode owns the scheduler.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, nil)
	return g.Wait()
}

// DemoMode runs the full simulation against in-memory stores with scripted
// generation: no database, cache, or generation service required.
func (a *App) DemoMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting demo mode")

	eng := a.buildEngine(deps)
	if err := eng.Initialize(ctx); err != nil {
		return fmt.Errorf("demo mode: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	a.runEngine(ctx, g, deps, eng)
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, eng)
	}
	return g.Wait()
}

// FullMode runs everything in one process: the tick scheduler, the HTTP +
// WebSocket API, and the archival sweep.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	eng := a.buildEngine(deps)
	if err := eng.Initialize(ctx); err != nil {
		return fmt.Errorf("full mode: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	a.runEngine(ctx, g, deps, eng)
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, eng)
	}
	a.startArchiveLoop(ctx, g, deps)
	return g.Wait()
}

// buildEngine assembles the cadence manager, narrative generators, price
// model, and scheduler from configuration.
func (a *App) buildEngine(deps *Dependencies) *engine.Engine {
	cadenceMgr := cadence.NewManager(
		cadence.Config{
			Buckets: [domain.CadenceClassCount]cadence.BucketConfig{
				domain.CadenceDay:      bucketConfig(a.cfg.Cadence.Day),
				domain.CadenceThreeDay: bucketConfig(a.cfg.Cadence.ThreeDay),
				domain.CadenceWeek:     bucketConfig(a.cfg.Cadence.Week),
				domain.CadenceMonth:    bucketConfig(a.cfg.Cadence.Month),
			},
			SeedLiquidity:   a.cfg.Cadence.SeedLiquidity,
			SampleActors:    a.cfg.Cadence.SampleActors,
			SampleCompanies: a.cfg.Cadence.SampleCompanies,
		},
		deps.QuestionStore,
		deps.MarketStore,
		deps.EventStore,
		deps.ActorStore,
		deps.CompanyStore,
		deps.Generator,
		a.logger,
	)

	eventGen := narrative.NewEventGenerator(deps.Generator, a.logger)
	postGen := narrative.NewPostGenerator(deps.Generator, a.logger)

	model := pricing.New(pricing.Params{
		TrendCoefficient: a.cfg.Pricing.TrendCoefficient,
		VolatilityMin:    a.cfg.Pricing.VolatilityMin,
		VolatilityMax:    a.cfg.Pricing.VolatilityMax,
		MaxStepFraction:  a.cfg.Pricing.MaxStepFraction,
		FloorPrice:       a.cfg.Pricing.FloorPrice,
	})

	opts := []engine.Option{}
	if deps.PriceCache != nil {
		opts = append(opts, engine.WithPriceCache(deps.PriceCache))
	}
	if deps.SignalBus != nil {
		opts = append(opts, engine.WithSignalBus(deps.SignalBus))
	}
	if deps.Notifier != nil {
		opts = append(opts, engine.WithNotifier(deps.Notifier))
	}

	return engine.New(
		engine.Config{
			TickInterval: a.cfg.Engine.TickInterval.Duration,
			InitialDelay: a.cfg.Engine.InitialDelay.Duration,
			SampleActors: a.cfg.Engine.SampleActors,
		},
		engine.Stores{
			Questions: deps.QuestionStore,
			Events:    deps.EventStore,
			Posts:     deps.PostStore,
			Companies: deps.CompanyStore,
			Actors:    deps.ActorStore,
			GameState: deps.GameStateStore,
			Pinger:    deps.Pinger,
		},
		cadenceMgr,
		eventGen,
		postGen,
		model,
		a.logger,
		opts...,
	)
}

func bucketConfig(b config.CadenceBucketConfig) cadence.BucketConfig {
	return cadence.BucketConfig{
		MaxActive:   b.MaxActive,
		MinInterval: b.MinInterval.Duration,
	}
}

// runEngine starts the scheduler and ties its lifetime to the group context.
func (a *App) runEngine(ctx context.Context, g *errgroup.Group, deps *Dependencies, eng *engine.Engine) {
	g.Go(func() error {
		eng.Start()
		if deps.Notifier != nil {
			_ = deps.Notifier.Notify(ctx, notify.EventEngineStarted, "Engine started",
				fmt.Sprintf("tick interval %s", a.cfg.Engine.TickInterval.Duration))
		}

		<-ctx.Done()
		eng.Stop()
		if deps.Notifier != nil {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = deps.Notifier.Notify(stopCtx, notify.EventEngineStopped, "Engine stopped", "")
		}
		return ctx.Err()
	})
}

// startHTTPServer adds the API server (and, when a signal bus exists, the
// WebSocket hub) to the group. eng may be nil; engine routes are skipped then.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, eng *engine.Engine) {
	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(deps.Pinger, a.logger),
		Questions: handler.NewQuestionHandler(deps.QuestionStore, deps.MarketStore, a.logger),
		Markets:   handler.NewMarketHandler(deps.MarketStore, a.logger),
		Companies: handler.NewCompanyHandler(deps.CompanyStore, deps.PriceCache, a.logger),
		Feed:      handler.NewFeedHandler(deps.EventStore, deps.PostStore, a.logger),
	}
	if eng != nil {
		handlers.Engine = handler.NewEngineHandler(eng, a.logger)
	}

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			Mode:      a.cfg.Mode,
			StartedAt: time.Now().UTC(),
		})
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimiter: deps.RateLimiter,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startArchiveLoop adds the cold-storage sweep to the group when archival is
// wired. The distributed lock keeps concurrent instances from double-pruning.
func (a *App) startArchiveLoop(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		return
	}

	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour
	interval := a.cfg.Archive.Interval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				a.archiveOnce(ctx, deps, retention)
			}
		}
	})

	a.logger.Info("archive sweep scheduled",
		slog.Duration("interval", interval),
		slog.Int("retention_days", a.cfg.Archive.RetentionDays),
	)
}

// archiveOnce runs a single sweep under the shared archive lock. A held lock
// means another instance is sweeping; that is not an error.
func (a *App) archiveOnce(ctx context.Context, deps *Dependencies, retention time.Duration) {
	if deps.LockManager != nil {
		unlock, err := deps.LockManager.Acquire(ctx, "archive", 10*time.Minute)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				a.logger.Info("archive sweep skipped, lock held elsewhere")
			} else {
				a.logger.ErrorContext(ctx, "archive lock failed",
					slog.String("error", err.Error()),
				)
			}
			return
		}
		defer unlock()
	}

	cutoff := time.Now().UTC().Add(-retention)

	ticks, err := deps.Archiver.ArchivePriceTicks(ctx, cutoff)
	if err != nil {
		a.logger.ErrorContext(ctx, "price tick archival failed",
			slog.String("error", err.Error()),
		)
	}
	questions, err := deps.Archiver.ArchiveResolvedQuestions(ctx, cutoff)
	if err != nil {
		a.logger.ErrorContext(ctx, "question archival failed",
			slog.String("error", err.Error()),
		)
	}

	a.logger.InfoContext(ctx, "archive sweep complete",
		slog.Int64("price_ticks", ticks),
		slog.Int64("questions", questions),
		slog.Time("cutoff", cutoff),
	)
}
