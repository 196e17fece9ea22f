// Package engine runs the perpetual game-world scheduler: on a fixed
// wall-clock interval it advances the simulation one tick of question cadence,
// narrative events, price movement, posts, and a state checkpoint. A single
// engine instance owns the cadence bucket state and the in-memory price map;
// the host process constructs it explicitly and calls Start/Stop.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/babylonsim/internal/cadence"
	"github.com/alanyoungcy/babylonsim/internal/domain"
	"github.com/alanyoungcy/babylonsim/internal/narrative"
	"github.com/alanyoungcy/babylonsim/internal/notify"
	"github.com/alanyoungcy/babylonsim/internal/pricing"
	"github.com/alanyoungcy/babylonsim/internal/sentiment"
)

// Config holds the scheduler's timing and sampling parameters.
type Config struct {
	// TickInterval is the wall-clock period between ticks.
	TickInterval time.Duration
	// InitialDelay postpones the first tick so the host environment can
	// finish initializing.
	InitialDelay time.Duration
	// SampleActors bounds the actor sample fed to the narrative generators.
	SampleActors int
}

// DefaultConfig returns the scheduler parameters used in production.
func DefaultConfig() Config {
	return Config{
		TickInterval: 60 * time.Second,
		InitialDelay: 5 * time.Second,
		SampleActors: 6,
	}
}

// Status is a snapshot of the engine's runtime state.
type Status struct {
	Running         bool      `json:"running"`
	Day             int       `json:"day"`
	TickCount       int64     `json:"tick_count"`
	LastTickAt      time.Time `json:"last_tick_at"`
	ActiveQuestions int       `json:"active_questions"`
}

// Stores bundles the persistence dependencies the engine needs.
type Stores struct {
	Questions domain.QuestionStore
	Events    domain.EventStore
	Posts     domain.PostStore
	Companies domain.CompanyStore
	Actors    domain.ActorStore
	GameState domain.GameStateStore
	Pinger    domain.Pinger
}

// Engine is the tick scheduler.
type Engine struct {
	cfg      Config
	stores   Stores
	cadence  *cadence.Manager
	events   *narrative.EventGenerator
	posts    *narrative.PostGenerator
	model    *pricing.Model
	cache    domain.PriceCache // optional
	bus      domain.SignalBus  // optional
	notifier *notify.Notifier  // optional
	logger   *slog.Logger
	now      func() time.Time

	// tickMu is the re-entrancy guard: a tick that outlives the interval
	// causes the next firing to be skipped rather than overlapped.
	tickMu sync.Mutex

	mu          sync.Mutex
	running     bool
	stop        context.CancelFunc
	done        chan struct{}
	initialized bool

	stateMu   sync.Mutex
	prices    map[string]float64
	day       int
	tickCount int64
	lastTick  time.Time
	activeQs  int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock injects a clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPriceCache attaches a live price cache.
func WithPriceCache(cache domain.PriceCache) Option {
	return func(e *Engine) { e.cache = cache }
}

// WithSignalBus attaches an event stream for tick summaries.
func WithSignalBus(bus domain.SignalBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithNotifier attaches operator notifications.
func WithNotifier(n *notify.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// New creates an Engine. It performs no I/O; call Initialize before Start.
func New(
	cfg Config,
	stores Stores,
	cadenceMgr *cadence.Manager,
	eventGen *narrative.EventGenerator,
	postGen *narrative.PostGenerator,
	model *pricing.Model,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		cfg:     cfg,
		stores:  stores,
		cadence: cadenceMgr,
		events:  eventGen,
		posts:   postGen,
		model:   model,
		logger:  logger.With(slog.String("component", "engine")),
		now:     time.Now,
		prices:  make(map[string]float64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize verifies persistence connectivity, creates the game-state record
// if absent, and seeds the in-memory price map from the persisted companies.
// It is idempotent; failure is fatal and propagates to the caller.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return nil
	}

	if e.stores.Pinger != nil {
		if err := e.stores.Pinger.Ping(ctx); err != nil {
			return fmt.Errorf("engine: initialize: ping store: %w", err)
		}
	}

	if err := e.stores.GameState.Init(ctx); err != nil {
		return fmt.Errorf("engine: initialize: game state: %w", err)
	}

	state, err := e.stores.GameState.Get(ctx)
	if err != nil {
		return fmt.Errorf("engine: initialize: load game state: %w", err)
	}

	companies, err := e.stores.Companies.List(ctx)
	if err != nil {
		return fmt.Errorf("engine: initialize: load companies: %w", err)
	}

	e.stateMu.Lock()
	e.day = state.Day
	if e.day == 0 {
		e.day = 1
	}
	for _, c := range companies {
		e.prices[c.ID] = c.CurrentPrice
	}
	e.stateMu.Unlock()

	e.initialized = true
	e.logger.InfoContext(ctx, "engine initialized",
		slog.Int("day", state.Day),
		slog.Int("companies", len(companies)),
	)
	return nil
}

// Start launches the tick loop: one delayed initial tick, then a fixed
// interval. It is a no-op if the engine is already running.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.stop = cancel
	e.done = make(chan struct{})
	e.running = true

	go e.loop(ctx)
	e.logger.Info("engine started",
		slog.Duration("tick_interval", e.cfg.TickInterval),
		slog.Duration("initial_delay", e.cfg.InitialDelay),
	)
}

// Stop cancels the timer and flips the running flag. An in-flight tick is
// allowed to finish so the tick's writes stay consistent. Safe to call
// redundantly.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	stop := e.stop
	done := e.done
	e.mu.Unlock()

	stop()
	<-done
	e.logger.Info("engine stopped")
}

// Status returns a snapshot of the engine's runtime state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()

	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return Status{
		Running:         running,
		Day:             e.day,
		TickCount:       e.tickCount,
		LastTickAt:      e.lastTick,
		ActiveQuestions: e.activeQs,
	}
}

// loop drives ticks until the stop signal. Only the timer is cancelled on
// stop; ticks themselves run against a background context so stopping cannot
// abort a tick mid-write.
func (e *Engine) loop(ctx context.Context) {
	defer close(e.done)

	initial := time.NewTimer(e.cfg.InitialDelay)
	defer initial.Stop()

	select {
	case <-ctx.Done():
		return
	case <-initial.C:
		e.Tick(context.Background())
	}

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(context.Background())
		}
	}
}

// Tick runs one full orchestration pass. Overlapping invocations are skipped
// by the re-entrancy guard; every step is contained so no error reaches the
// timer. Tick is also the manual-trigger entry point for the admin API.
func (e *Engine) Tick(ctx context.Context) {
	if !e.tickMu.TryLock() {
		e.logger.Warn("tick skipped, previous tick still running")
		return
	}
	defer e.tickMu.Unlock()

	now := e.now()
	e.stateMu.Lock()
	e.day++
	day := e.day
	e.stateMu.Unlock()

	e.logger.InfoContext(ctx, "tick started", slog.Int("day", day))

	// 1. Cadence: resolution always precedes creation.
	resolved := e.cadence.ResolveDue(ctx, now, day)
	created := e.cadence.CreateDue(ctx, now)
	e.logger.InfoContext(ctx, "cadence processed",
		slog.Int("resolved", resolved),
		slog.Int("created", created),
	)
	if resolved > 0 && e.notifier != nil {
		_ = e.notifier.Notify(ctx, notify.EventQuestionResolved, "Questions resolved",
			fmt.Sprintf("%d question(s) resolved on day %d", resolved, day))
	}

	// 2. Active questions feed everything downstream.
	questions, err := e.stores.Questions.ListActive(ctx, domain.ListOpts{})
	if err != nil {
		e.logger.ErrorContext(ctx, "load active questions failed",
			slog.String("error", err.Error()),
		)
		questions = nil
	}

	actors, err := e.stores.Actors.Sample(ctx, e.cfg.SampleActors)
	if err != nil {
		e.logger.ErrorContext(ctx, "sample actors failed",
			slog.String("error", err.Error()),
		)
		actors = nil
	}

	// 3. Narrative events; a failed event is skipped inside the generator.
	events := e.events.Generate(ctx, day, questions, actors)
	for _, evt := range events {
		if err := e.stores.Events.Create(ctx, evt); err != nil {
			e.logger.ErrorContext(ctx, "persist event failed",
				slog.String("event_id", evt.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	// 4. Sentiment from this tick's events only.
	score := sentiment.Score(events, len(questions))

	// 5. Price walk for every company, isolated per instrument.
	priced := e.updatePrices(ctx, score, now)

	// 6-7. Posts, then the checkpoint.
	postCount := e.generatePosts(ctx, events, questions, actors)
	e.checkpoint(ctx, now, day, len(questions))

	e.publishTickSummary(ctx, day, resolved, created, len(events), priced, postCount, score)

	e.logger.InfoContext(ctx, "tick complete",
		slog.Int("day", day),
		slog.Int("events", len(events)),
		slog.Int("companies_priced", priced),
		slog.Int("posts", postCount),
		slog.Float64("sentiment", score),
	)
}

// updatePrices runs the stochastic model over every company. A failure on one
// company is logged and does not abort the rest; the in-memory price is only
// advanced together with the persisted one.
func (e *Engine) updatePrices(ctx context.Context, score float64, now time.Time) int {
	companies, err := e.stores.Companies.List(ctx)
	if err != nil {
		e.logger.ErrorContext(ctx, "load companies failed",
			slog.String("error", err.Error()),
		)
		return 0
	}

	updated := 0
	for _, c := range companies {
		e.stateMu.Lock()
		price, ok := e.prices[c.ID]
		e.stateMu.Unlock()
		if !ok {
			price = c.CurrentPrice
		}

		step := e.model.Step(price, score)

		if err := e.stores.Companies.UpdatePrice(ctx, c.ID, step.NewPrice); err != nil {
			e.logger.ErrorContext(ctx, "update price failed",
				slog.String("company_id", c.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := e.stores.Companies.RecordTick(ctx, domain.PriceTick{
			CompanyID: c.ID,
			Price:     step.NewPrice,
			Delta:     step.Delta,
			ChangePct: step.ChangePct,
			CreatedAt: now,
		}); err != nil {
			e.logger.ErrorContext(ctx, "record price tick failed",
				slog.String("company_id", c.ID),
				slog.String("error", err.Error()),
			)
		}

		e.stateMu.Lock()
		e.prices[c.ID] = step.NewPrice
		e.stateMu.Unlock()

		if e.cache != nil {
			if err := e.cache.SetPrice(ctx, c.ID, step.NewPrice, now); err != nil {
				e.logger.WarnContext(ctx, "price cache update failed",
					slog.String("company_id", c.ID),
					slog.String("error", err.Error()),
				)
			}
		}
		updated++
	}
	return updated
}

// generatePosts runs the post generator and bulk-inserts the batch.
func (e *Engine) generatePosts(ctx context.Context, events []domain.WorldEvent, questions []domain.Question, actors []domain.Actor) int {
	posts, err := e.posts.Generate(ctx, events, questions, actors)
	if err != nil {
		e.logger.ErrorContext(ctx, "post generation failed",
			slog.String("error", err.Error()),
		)
		return 0
	}
	if len(posts) == 0 {
		return 0
	}
	if err := e.stores.Posts.CreateBatch(ctx, posts); err != nil {
		e.logger.ErrorContext(ctx, "persist posts failed",
			slog.Int("count", len(posts)),
			slog.String("error", err.Error()),
		)
		return 0
	}
	return len(posts)
}

// checkpoint updates the singleton game-state record and the engine's own
// status counters.
func (e *Engine) checkpoint(ctx context.Context, now time.Time, day, activeQuestions int) {
	if err := e.stores.GameState.Update(ctx, domain.GameState{
		Day:             day,
		LastTickAt:      now,
		ActiveQuestions: activeQuestions,
		Running:         true,
	}); err != nil {
		e.logger.ErrorContext(ctx, "checkpoint failed",
			slog.String("error", err.Error()),
		)
	}

	e.stateMu.Lock()
	e.tickCount++
	e.lastTick = now
	e.activeQs = activeQuestions
	e.stateMu.Unlock()
}

// publishTickSummary emits a best-effort tick summary on the signal bus.
func (e *Engine) publishTickSummary(ctx context.Context, day, resolved, created, events, priced, posts int, score float64) {
	if e.bus == nil {
		return
	}
	payload, _ := json.Marshal(map[string]any{
		"event":     "tick",
		"day":       day,
		"resolved":  resolved,
		"created":   created,
		"events":    events,
		"priced":    priced,
		"posts":     posts,
		"sentiment": score,
	})
	if err := e.bus.Publish(ctx, "ticks", payload); err != nil {
		e.logger.WarnContext(ctx, "publish tick summary failed",
			slog.String("error", err.Error()),
		)
	}
}
