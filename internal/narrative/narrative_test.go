package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

type scriptedGenerator struct {
	responses []string
	errs      []error
	calls     int
}

func (g *scriptedGenerator) GenerateJSON(_ context.Context, _ string, _ domain.GenerateOpts) (json.RawMessage, error) {
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

var (
	testActors = []domain.Actor{
		{ID: "a1", Name: "Dirk Stonkworth", Bio: "hedge fund visionary"},
		{ID: "a2", Name: "Petra Vault", Bio: "banker influencer"},
		{ID: "a3", Name: "Chad Mergerton", Bio: "serial acquirer"},
	}
	testQuestions = []domain.Question{
		{ID: "q1", Seq: 1, Text: "Will the merger close?", Status: domain.QuestionStatusActive},
	}
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() func() time.Time {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestEventGeneratorProducesValidEvents(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"type": "scandal", "description": "Dirk caught shredding documents.", "bias": "no"}`,
	}}
	g := NewEventGenerator(gen, discard(),
		WithEventRand(rand.New(rand.NewSource(1))), WithEventClock(fixedClock()))

	events := g.Generate(context.Background(), 5, testQuestions, testActors)
	require.NotEmpty(t, events)
	assert.LessOrEqual(t, len(events), 3)

	for _, e := range events {
		assert.Equal(t, domain.EventScandal, e.Type)
		assert.Equal(t, "Dirk caught shredding documents.", e.Description)
		assert.Equal(t, domain.BiasNo, e.Bias)
		assert.Equal(t, 5, e.Day)
		assert.NotEmpty(t, e.ID)
		assert.NotEmpty(t, e.ActorIDs)
		assert.True(t, e.Public)
	}
}

func TestEventGeneratorRejectsMalformed(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"unknown type", `{"type": "ipo", "description": "x", "bias": "yes"}`},
		{"missing type", `{"description": "x", "bias": "yes"}`},
		{"empty description", `{"type": "deal", "description": "  ", "bias": "yes"}`},
		{"bad bias", `{"type": "deal", "description": "x", "bias": "maybe"}`},
		{"not json", `"just a string"`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &scriptedGenerator{responses: []string{tc.payload}}
			g := NewEventGenerator(gen, discard(),
				WithEventRand(rand.New(rand.NewSource(1))), WithEventClock(fixedClock()))

			events := g.Generate(context.Background(), 1, testQuestions, testActors)
			assert.Empty(t, events, "malformed payload must be skipped, not defaulted")
		})
	}
}

func TestEventGeneratorFailureSkipsOnlyThatEvent(t *testing.T) {
	valid := `{"type": "deal", "description": "Merger announced.", "bias": "yes"}`
	// Seed 3 yields count=3 for this generator; the middle call fails.
	rng := rand.New(rand.NewSource(3))
	count := 1 + rng.Intn(3)
	if count < 2 {
		t.Skip("seed does not produce a multi-event batch")
	}

	gen := &scriptedGenerator{
		responses: []string{valid, "", valid},
		errs:      []error{nil, errors.New("model overloaded")},
	}
	g := NewEventGenerator(gen, discard(),
		WithEventRand(rand.New(rand.NewSource(3))), WithEventClock(fixedClock()))

	events := g.Generate(context.Background(), 1, nil, testActors)
	assert.Equal(t, count-1, len(events))
}

func TestPostGeneratorHappyPath(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"posts": ["the merger is DEFINITELY happening, source: trust me", "short GRFT", "petra was right again"]}`,
	}}
	g := NewPostGenerator(gen, discard(),
		WithPostRand(rand.New(rand.NewSource(1))), WithPostClock(fixedClock()))

	posts, err := g.Generate(context.Background(), nil, testQuestions, testActors)
	require.NoError(t, err)
	require.Len(t, posts, 3)

	authors := map[string]bool{"a1": true, "a2": true, "a3": true}
	for _, p := range posts {
		assert.NotEmpty(t, p.ID)
		assert.True(t, authors[p.AuthorID], "author must come from the sampled actors")
		assert.NotEmpty(t, p.Body)
		assert.Equal(t, fixedClock()(), p.CreatedAt)
	}
}

func TestPostGeneratorRejectsNonStringEntries(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"posts": ["valid one", 42, {"text": "nested"}, "valid two", null, ""]}`,
	}}
	g := NewPostGenerator(gen, discard(),
		WithPostRand(rand.New(rand.NewSource(1))), WithPostClock(fixedClock()))

	posts, err := g.Generate(context.Background(), nil, nil, testActors)
	require.NoError(t, err)
	require.Len(t, posts, 2, "non-string and empty entries are rejected, not coerced")
	assert.Equal(t, "valid one", posts[0].Body)
	assert.Equal(t, "valid two", posts[1].Body)
}

func TestPostGeneratorMissingArrayIsValidationError(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`{"messages": ["x"]}`}}
	g := NewPostGenerator(gen, discard(), WithPostRand(rand.New(rand.NewSource(1))))

	_, err := g.Generate(context.Background(), nil, nil, testActors)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestPostGeneratorGenerationFailure(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{""}, errs: []error{errors.New("timeout")}}
	g := NewPostGenerator(gen, discard(), WithPostRand(rand.New(rand.NewSource(1))))

	_, err := g.Generate(context.Background(), nil, nil, testActors)
	assert.Error(t, err)
}

func TestPostGeneratorNoActors(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`{"posts": ["x"]}`}}
	g := NewPostGenerator(gen, discard())

	posts, err := g.Generate(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.Zero(t, gen.calls)
}
