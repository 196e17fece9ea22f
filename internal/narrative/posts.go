package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// PostGenerator produces 10-20 actor posts per tick, conditioned on the same
// events and questions the tick just produced.
type PostGenerator struct {
	gen    domain.TextGenerator
	rng    *rand.Rand
	logger *slog.Logger
	now    func() time.Time
}

// PostOption customizes a PostGenerator.
type PostOption func(*PostGenerator)

// WithPostRand injects a deterministic random source, used by tests.
func WithPostRand(rng *rand.Rand) PostOption {
	return func(g *PostGenerator) { g.rng = rng }
}

// WithPostClock injects a clock, used by tests.
func WithPostClock(now func() time.Time) PostOption {
	return func(g *PostGenerator) { g.now = now }
}

// NewPostGenerator creates a PostGenerator.
func NewPostGenerator(gen domain.TextGenerator, logger *slog.Logger, opts ...PostOption) *PostGenerator {
	g := &PostGenerator{
		gen:    gen,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger.With(slog.String("component", "post_generator")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate requests a batch of posts and attributes each to a sampled actor.
// Non-string entries in the response array are rejected, never coerced; a
// failed generation call yields an empty batch for this tick.
func (g *PostGenerator) Generate(ctx context.Context, events []domain.WorldEvent, questions []domain.Question, actors []domain.Actor) ([]domain.Post, error) {
	if len(actors) == 0 {
		return nil, nil
	}

	count := 10 + g.rng.Intn(11)

	raw, err := g.gen.GenerateJSON(ctx, g.buildPrompt(count, events, questions, actors), domain.GenerateOpts{
		Temperature: 1.0,
		MaxTokens:   2000,
		SchemaHint:  `{"posts": [string, ...]}`,
	})
	if err != nil {
		return nil, fmt.Errorf("narrative: generate posts: %w", err)
	}

	var payload struct {
		Posts []json.RawMessage `json:"posts"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("narrative: decode posts payload: %w", err)
	}
	if payload.Posts == nil {
		return nil, domain.NewValidationError("posts", "must be an array of strings")
	}

	now := g.now()
	posts := make([]domain.Post, 0, len(payload.Posts))
	for i, entry := range payload.Posts {
		var body string
		if err := json.Unmarshal(entry, &body); err != nil {
			g.logger.WarnContext(ctx, "rejecting non-string post entry",
				slog.Int("index", i),
			)
			continue
		}
		if strings.TrimSpace(body) == "" {
			continue
		}

		author := actors[g.rng.Intn(len(actors))]
		post := domain.Post{
			ID:        uuid.NewString(),
			AuthorID:  author.ID,
			Body:      strings.TrimSpace(body),
			CreatedAt: now,
		}
		if len(events) > 0 && g.rng.Float64() < 0.5 {
			eid := events[g.rng.Intn(len(events))].ID
			post.EventID = &eid
		}
		if len(questions) > 0 && g.rng.Float64() < 0.3 {
			qid := questions[g.rng.Intn(len(questions))].ID
			post.QuestionID = &qid
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (g *PostGenerator) buildPrompt(count int, events []domain.WorldEvent, questions []domain.Question, actors []domain.Actor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d short social media posts from residents of a satirical corporate world.\n", count)
	if len(events) > 0 {
		b.WriteString("Today's news:\n")
		for _, e := range events {
			fmt.Fprintf(&b, "- [%s] %s\n", e.Type, e.Description)
		}
	}
	if len(questions) > 0 {
		b.WriteString("Open predictions people are arguing about:\n")
		for _, q := range questions {
			fmt.Fprintf(&b, "- %s\n", q.Text)
		}
	}
	b.WriteString("Voices to imitate: ")
	names := make([]string, 0, len(actors))
	for _, a := range actors {
		names = append(names, a.Name)
	}
	b.WriteString(strings.Join(names, ", "))
	b.WriteString("\nRespond as JSON: {\"posts\": [\"...\", ...]}. Every entry must be a plain string.")
	return b.String()
}
