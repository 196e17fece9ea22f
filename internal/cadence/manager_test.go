package cadence

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/babylonsim/internal/domain"
	"github.com/alanyoungcy/babylonsim/internal/store/memory"
)

// scriptedGenerator returns canned responses (or errors) in order, repeating
// the last entry once the script runs out.
type scriptedGenerator struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (g *scriptedGenerator) GenerateJSON(_ context.Context, prompt string, _ domain.GenerateOpts) (json.RawMessage, error) {
	g.prompts = append(g.prompts, prompt)
	i := g.calls
	g.calls++
	if i >= len(g.responses) {
		i = len(g.responses) - 1
	}
	if i < len(g.errs) && g.errs[i] != nil {
		return nil, g.errs[i]
	}
	return json.RawMessage(g.responses[i]), nil
}

type fixture struct {
	manager   *Manager
	questions *memory.QuestionStore
	markets   *memory.MarketStore
	events    *memory.EventStore
	gen       *scriptedGenerator
}

func newFixture(t *testing.T, cfg Config, gen *scriptedGenerator) *fixture {
	t.Helper()
	questions := memory.NewQuestionStore()
	markets := memory.NewMarketStore()
	events := memory.NewEventStore()
	actors := memory.NewActorStore([]domain.Actor{
		{ID: "a1", Name: "Dirk Stonkworth", Bio: "disgraced hedge fund visionary"},
		{ID: "a2", Name: "Petra Vault", Bio: "central banker turned influencer"},
	})
	companies := memory.NewCompanyStore(domain.Company{
		ID: "c1", Name: "Grift Dynamics", Ticker: "GRFT", CurrentPrice: 120, InitialPrice: 100,
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		manager:   NewManager(cfg, questions, markets, events, actors, companies, gen, logger),
		questions: questions,
		markets:   markets,
		events:    events,
		gen:       gen,
	}
}

const validPayload = `{"question": "Will Grift Dynamics fake another earnings call?", "expectedOutcome": true}`

func TestCreateDueCreatesPerBucket(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gen := &scriptedGenerator{responses: []string{validPayload}}
	f := newFixture(t, DefaultConfig(), gen)

	created := f.manager.CreateDue(context.Background(), now)
	assert.Equal(t, 4, created, "one question per bucket on a cold start")

	active, err := f.questions.ListActive(context.Background(), domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, active, 4)

	// Sequence numbers strictly increase and horizons match the buckets.
	horizons := map[time.Duration]bool{}
	for i, q := range active {
		assert.Equal(t, int64(i+1), q.Seq)
		assert.True(t, q.ResolvesAt.After(now))
		horizons[q.ResolvesAt.Sub(now)] = true

		// Each question got a seeded 50/50 market.
		m, err := f.markets.GetByQuestion(context.Background(), q.ID)
		require.NoError(t, err)
		assert.Equal(t, 500.0, m.YesShares)
		assert.Equal(t, 500.0, m.NoShares)
	}
	assert.Len(t, horizons, 4)
}

func TestCreateDueIntervalGate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gen := &scriptedGenerator{responses: []string{validPayload}}

	cfg := DefaultConfig()
	f := newFixture(t, cfg, gen)

	require.Equal(t, 4, f.manager.CreateDue(context.Background(), now))

	// Two hours later every bucket is still cooling down (shortest interval
	// is 4h) even though none is at max-active yet.
	assert.Equal(t, 0, f.manager.CreateDue(context.Background(), now.Add(2*time.Hour)))

	// After 4h only the 24h bucket is past its interval.
	assert.Equal(t, 1, f.manager.CreateDue(context.Background(), now.Add(4*time.Hour)))
}

func TestCreateDueMaxActiveGate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gen := &scriptedGenerator{responses: []string{validPayload}}

	cfg := DefaultConfig()
	for i := range cfg.Buckets {
		cfg.Buckets[i].MaxActive = 1
		cfg.Buckets[i].MinInterval = time.Minute
	}
	f := newFixture(t, cfg, gen)

	require.Equal(t, 4, f.manager.CreateDue(context.Background(), now))

	// Well past every interval, but each horizon window already holds its
	// one allowed question.
	assert.Equal(t, 0, f.manager.CreateDue(context.Background(), now.Add(2*time.Hour)))
}

func TestCreateDueBothGatesIndependent(t *testing.T) {
	// Bucket {maxActive:2, interval:4h}, two questions already in the window,
	// lastCreated 2h ago: both conditions block creation on their own.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gen := &scriptedGenerator{responses: []string{validPayload}}

	cfg := Config{SeedLiquidity: 1000, SampleActors: 2, SampleCompanies: 2}
	cfg.Buckets[domain.CadenceDay] = BucketConfig{MaxActive: 2, MinInterval: 4 * time.Hour}
	// Other buckets disabled for this scenario.
	for class := domain.CadenceThreeDay; class < domain.CadenceClassCount; class++ {
		cfg.Buckets[class] = BucketConfig{MaxActive: 0, MinInterval: time.Hour}
	}
	f := newFixture(t, cfg, gen)

	for i := 0; i < 2; i++ {
		require.NoError(t, f.questions.Create(context.Background(), domain.Question{
			ID:         string(rune('x' + i)),
			Seq:        int64(i + 1),
			Text:       "seeded",
			Status:     domain.QuestionStatusActive,
			CreatedAt:  now.Add(-6 * time.Hour),
			ResolvesAt: now.Add(24 * time.Hour),
		}))
	}
	f.manager.buckets[domain.CadenceDay].LastCreated = now.Add(-2 * time.Hour)

	assert.Equal(t, 0, f.manager.CreateDue(context.Background(), now))
	assert.Zero(t, gen.calls, "no generation call when gated")
}

func TestCreateDueRejectsMalformedPayload(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		payload string
	}{
		{"missing question", `{"expectedOutcome": true}`},
		{"empty question", `{"question": "   ", "expectedOutcome": false}`},
		{"missing outcome", `{"question": "Will it?"}`},
		{"wrong outcome type", `{"question": "Will it?", "expectedOutcome": "yes"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &scriptedGenerator{responses: []string{tc.payload}}
			f := newFixture(t, DefaultConfig(), gen)

			assert.Equal(t, 0, f.manager.CreateDue(context.Background(), now))

			active, err := f.questions.ListActive(context.Background(), domain.ListOpts{})
			require.NoError(t, err)
			assert.Empty(t, active, "malformed payloads must never produce questions")

			// lastCreated must not advance on failure.
			for _, b := range f.manager.Buckets() {
				assert.True(t, b.LastCreated.IsZero())
			}
		})
	}
}

func TestCreateDueGenerationFailureIsolated(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	// First bucket's generation call fails; the remaining buckets proceed.
	gen := &scriptedGenerator{
		responses: []string{"", validPayload, validPayload, validPayload},
		errs:      []error{errors.New("model overloaded")},
	}
	f := newFixture(t, DefaultConfig(), gen)

	assert.Equal(t, 3, f.manager.CreateDue(context.Background(), now))
}

func TestResolveDue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gen := &scriptedGenerator{responses: []string{`{"narrative": "The rumors were true all along."}`}}
	f := newFixture(t, DefaultConfig(), gen)

	due := domain.Question{
		ID: "q1", Seq: 1, Text: "Will the merger close?", Outcome: true,
		Status: domain.QuestionStatusActive, CreatedAt: now.Add(-48 * time.Hour),
		ResolvesAt: now.Add(-time.Hour),
	}
	notDue := domain.Question{
		ID: "q2", Seq: 2, Text: "Will the CFO resign?", Outcome: false,
		Status: domain.QuestionStatusActive, CreatedAt: now.Add(-time.Hour),
		ResolvesAt: now.Add(24 * time.Hour),
	}
	require.NoError(t, f.questions.Create(context.Background(), due))
	require.NoError(t, f.questions.Create(context.Background(), notDue))

	assert.Equal(t, 1, f.manager.ResolveDue(context.Background(), now, 3))

	q, err := f.questions.GetByID(context.Background(), "q1")
	require.NoError(t, err)
	assert.Equal(t, domain.QuestionStatusResolved, q.Status)
	require.NotNil(t, q.ResolvedAt)

	// A resolution event with the question's outcome bias was emitted.
	events := f.events.All()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventResolution, events[0].Type)
	assert.Equal(t, domain.BiasYes, events[0].Bias)
	assert.Equal(t, 3, events[0].Day)
	require.NotNil(t, events[0].QuestionID)
	assert.Equal(t, "q1", *events[0].QuestionID)
	assert.Equal(t, "The rumors were true all along.", events[0].Description)

	q2, err := f.questions.GetByID(context.Background(), "q2")
	require.NoError(t, err)
	assert.Equal(t, domain.QuestionStatusActive, q2.Status)
}

func TestResolveDueFallbackNarrative(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gen := &scriptedGenerator{
		responses: []string{""},
		errs:      []error{errors.New("timeout")},
	}
	f := newFixture(t, DefaultConfig(), gen)

	require.NoError(t, f.questions.Create(context.Background(), domain.Question{
		ID: "q1", Seq: 7, Text: "Will GRFT double?", Outcome: false,
		Status: domain.QuestionStatusActive, ResolvesAt: now.Add(-time.Minute),
	}))

	assert.Equal(t, 1, f.manager.ResolveDue(context.Background(), now, 1))

	events := f.events.All()
	require.Len(t, events, 1)
	assert.Equal(t, "Prediction #7 has resolved NO: Will GRFT double?", events[0].Description)
}

func TestResolveDueMonotonic(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gen := &scriptedGenerator{responses: []string{`{"narrative": "done"}`}}
	f := newFixture(t, DefaultConfig(), gen)

	require.NoError(t, f.questions.Create(context.Background(), domain.Question{
		ID: "q1", Seq: 1, Text: "t", Outcome: true,
		Status: domain.QuestionStatusActive, ResolvesAt: now.Add(-time.Minute),
	}))

	assert.Equal(t, 1, f.manager.ResolveDue(context.Background(), now, 1))
	// A second pass finds nothing due; the resolved status never reverts.
	assert.Equal(t, 0, f.manager.ResolveDue(context.Background(), now.Add(time.Hour), 1))

	q, err := f.questions.GetByID(context.Background(), "q1")
	require.NoError(t, err)
	assert.Equal(t, domain.QuestionStatusResolved, q.Status)
	assert.True(t, q.Outcome)
}

func TestBuildPromptIncludesCast(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gen := &scriptedGenerator{responses: []string{validPayload}}
	f := newFixture(t, DefaultConfig(), gen)

	require.Equal(t, 4, f.manager.CreateDue(context.Background(), now))
	require.NotEmpty(t, gen.prompts)
	assert.Contains(t, gen.prompts[0], "Grift Dynamics")
	assert.Contains(t, gen.prompts[0], "expectedOutcome")
}
