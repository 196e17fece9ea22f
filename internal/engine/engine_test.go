package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/babylonsim/internal/cadence"
	"github.com/alanyoungcy/babylonsim/internal/domain"
	"github.com/alanyoungcy/babylonsim/internal/narrative"
	"github.com/alanyoungcy/babylonsim/internal/pricing"
	"github.com/alanyoungcy/babylonsim/internal/store/memory"
)

// scriptedGenerator answers every request with a response keyed on a
// substring of the prompt, mimicking the different generation calls a tick
// makes.
type scriptedGenerator struct {
	mu        sync.Mutex
	byKeyword map[string]string
	calls     int
}

func (g *scriptedGenerator) GenerateJSON(_ context.Context, prompt string, _ domain.GenerateOpts) (json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	for kw, resp := range g.byKeyword {
		if strings.Contains(prompt, kw) {
			return json.RawMessage(resp), nil
		}
	}
	return nil, errors.New("no scripted response")
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type recordingBus struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (b *recordingBus) Publish(_ context.Context, _ string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payloads = append(b.payloads, payload)
	return nil
}

func (b *recordingBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	engine    *Engine
	questions *memory.QuestionStore
	events    *memory.EventStore
	posts     *memory.PostStore
	companies *memory.CompanyStore
	gameState *memory.GameStateStore
	bus       *recordingBus
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	questions := memory.NewQuestionStore()
	events := memory.NewEventStore()
	posts := memory.NewPostStore()
	companies := memory.NewCompanyStore(
		domain.Company{ID: "c1", Name: "Grift Dynamics", Ticker: "GRFT", CurrentPrice: 100, InitialPrice: 100},
		domain.Company{ID: "c2", Name: "Vapor Holdings", Ticker: "VPR", CurrentPrice: 50, InitialPrice: 50},
	)
	actors := memory.NewActorStore([]domain.Actor{
		{ID: "a1", Name: "Dirk Stonkworth", Bio: "hedge fund visionary"},
		{ID: "a2", Name: "Petra Vault", Bio: "banker influencer"},
	})
	gameState := memory.NewGameStateStore()
	markets := memory.NewMarketStore()

	gen := &scriptedGenerator{byKeyword: map[string]string{
		"binary prediction": `{"question": "Will Vapor Holdings IPO?", "expectedOutcome": false}`,
		"news event":        `{"type": "deal", "description": "Grift acquires Vapor.", "bias": "yes"}`,
		"social media":      `{"posts": ["buying the dip", "this merger smells", "trust the process"]}`,
		"resolved":          `{"narrative": "It finally happened."}`,
	}}

	logger := discard()
	cadenceMgr := cadence.NewManager(cadence.DefaultConfig(), questions, markets, events, actors, companies, gen, logger)
	eventGen := narrative.NewEventGenerator(gen, logger, narrative.WithEventRand(rand.New(rand.NewSource(1))))
	postGen := narrative.NewPostGenerator(gen, logger, narrative.WithPostRand(rand.New(rand.NewSource(1))))
	model := pricing.New(pricing.DefaultParams(), pricing.WithRand(rand.New(rand.NewSource(1))))

	bus := &recordingBus{}

	cfg := Config{TickInterval: 50 * time.Millisecond, InitialDelay: time.Millisecond, SampleActors: 2}
	e := New(cfg, Stores{
		Questions: questions,
		Events:    events,
		Posts:     posts,
		Companies: companies,
		Actors:    actors,
		GameState: gameState,
		Pinger:    gameState,
	}, cadenceMgr, eventGen, postGen, model, logger, WithSignalBus(bus))

	return &harness{
		engine:    e,
		questions: questions,
		events:    events,
		posts:     posts,
		companies: companies,
		gameState: gameState,
		bus:       bus,
	}
}

func TestInitialize(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Initialize(ctx))
	// Idempotent.
	require.NoError(t, h.engine.Initialize(ctx))

	state, err := h.gameState.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Day)
}

func TestInitializeFailsOnPing(t *testing.T) {
	h := newHarness(t)
	h.engine.stores.Pinger = failingPinger{}

	err := h.engine.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping store")
}

func TestTickFullPass(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.engine.Initialize(ctx))

	h.engine.Tick(ctx)

	status := h.engine.Status()
	assert.Equal(t, int64(1), status.TickCount)
	assert.Equal(t, 2, status.Day, "day advances from the initialized state")
	assert.False(t, status.LastTickAt.IsZero())

	// Cadence created questions on the cold start.
	active, err := h.questions.ListActive(ctx, domain.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, active, 4)
	assert.Equal(t, status.ActiveQuestions, len(active))

	// Events were persisted.
	assert.NotEmpty(t, h.events.All())

	// Prices moved within the clamp and a tick row exists per company.
	for _, id := range []string{"c1", "c2"} {
		c, err := h.companies.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Greater(t, c.CurrentPrice, 0.0)

		ticks, err := h.companies.ListTicks(ctx, id, domain.ListOpts{})
		require.NoError(t, err)
		require.Len(t, ticks, 1)
		oldPrice := ticks[0].Price - ticks[0].Delta
		assert.LessOrEqual(t, absf(ticks[0].Delta), oldPrice*pricing.DefaultParams().MaxStepFraction+1e-9)
	}

	// Posts were bulk-inserted.
	posts, err := h.posts.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, posts, 3)

	// Checkpoint reflects the tick.
	state, err := h.gameState.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Day)
	assert.Equal(t, len(active), state.ActiveQuestions)
	assert.True(t, state.Running)

	// A tick summary went out on the bus.
	require.NotEmpty(t, h.bus.payloads)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(h.bus.payloads[len(h.bus.payloads)-1], &summary))
	assert.Equal(t, "tick", summary["event"])
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestTickResolvesDueQuestions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.engine.Initialize(ctx))

	require.NoError(t, h.questions.Create(ctx, domain.Question{
		ID: "due1", Seq: 100, Text: "Will it resolve?", Outcome: true,
		Status:     domain.QuestionStatusActive,
		ResolvesAt: time.Now().Add(-time.Minute),
	}))

	h.engine.Tick(ctx)

	q, err := h.questions.GetByID(ctx, "due1")
	require.NoError(t, err)
	assert.Equal(t, domain.QuestionStatusResolved, q.Status)
}

func TestTickReentrancyGuard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.engine.Initialize(ctx))

	h.engine.tickMu.Lock()
	h.engine.Tick(ctx) // must be skipped, not blocked
	h.engine.tickMu.Unlock()

	assert.Equal(t, int64(0), h.engine.Status().TickCount)
}

func TestStartStopIdempotent(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.engine.Initialize(context.Background()))

	h.engine.Start()
	h.engine.Start() // no-op

	require.Eventually(t, func() bool {
		return h.engine.Status().TickCount >= 1
	}, 2*time.Second, 5*time.Millisecond)

	h.engine.Stop()
	h.engine.Stop() // no-op

	assert.False(t, h.engine.Status().Running)

	count := h.engine.Status().TickCount
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, count, h.engine.Status().TickCount, "no ticks after stop")
}

func TestTickSurvivesGeneratorOutage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.engine.Initialize(ctx))

	// Replace the generator script with one that always fails.
	broken := &scriptedGenerator{byKeyword: map[string]string{}}
	logger := discard()
	h.engine.events = narrative.NewEventGenerator(broken, logger)
	h.engine.posts = narrative.NewPostGenerator(broken, logger)

	h.engine.Tick(ctx)

	// The tick still completed: prices moved and the checkpoint advanced.
	status := h.engine.Status()
	assert.Equal(t, int64(1), status.TickCount)

	state, err := h.gameState.Get(ctx)
	require.NoError(t, err)
	assert.False(t, state.LastTickAt.IsZero())
}
