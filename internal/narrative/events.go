// Package narrative produces the game world's story output: world events and
// actor posts, both requested from the text-generation collaborator and
// validated strictly before anything is trusted.
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

var validEventTypes = map[domain.EventType]bool{
	domain.EventAnnouncement: true,
	domain.EventScandal:      true,
	domain.EventMeeting:      true,
	domain.EventRevelation:   true,
	domain.EventDeal:         true,
	domain.EventConflict:     true,
	domain.EventBetrayal:     true,
	domain.EventOpportunity:  true,
}

var validBiases = map[domain.EventBias]bool{
	domain.BiasYes:     true,
	domain.BiasNo:      true,
	domain.BiasNeutral: true,
}

// EventGenerator produces 1-3 world events per tick, each conditioned on the
// active questions and a random sample of actors.
type EventGenerator struct {
	gen    domain.TextGenerator
	rng    *rand.Rand
	logger *slog.Logger
	now    func() time.Time
}

// EventOption customizes an EventGenerator.
type EventOption func(*EventGenerator)

// WithEventRand injects a deterministic random source, used by tests.
func WithEventRand(rng *rand.Rand) EventOption {
	return func(g *EventGenerator) { g.rng = rng }
}

// WithEventClock injects a clock, used by tests.
func WithEventClock(now func() time.Time) EventOption {
	return func(g *EventGenerator) { g.now = now }
}

// NewEventGenerator creates an EventGenerator.
func NewEventGenerator(gen domain.TextGenerator, logger *slog.Logger, opts ...EventOption) *EventGenerator {
	g := &EventGenerator{
		gen:    gen,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger.With(slog.String("component", "event_generator")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// eventPayload is the strict shape expected from a single event generation.
type eventPayload struct {
	Type        *string `json:"type"`
	Description *string `json:"description"`
	Bias        *string `json:"bias"`
}

// Generate requests between one and three events. A generation or validation
// failure skips that single event; the remaining events still go out.
func (g *EventGenerator) Generate(ctx context.Context, day int, questions []domain.Question, actors []domain.Actor) []domain.WorldEvent {
	count := 1 + g.rng.Intn(3)

	events := make([]domain.WorldEvent, 0, count)
	for i := 0; i < count; i++ {
		evt, err := g.generateOne(ctx, day, questions, actors)
		if err != nil {
			g.logger.WarnContext(ctx, "event generation skipped",
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		events = append(events, evt)
	}
	return events
}

func (g *EventGenerator) generateOne(ctx context.Context, day int, questions []domain.Question, actors []domain.Actor) (domain.WorldEvent, error) {
	participants := g.sampleActors(actors, 2)

	var question *domain.Question
	if len(questions) > 0 && g.rng.Float64() < 0.7 {
		q := questions[g.rng.Intn(len(questions))]
		question = &q
	}

	raw, err := g.gen.GenerateJSON(ctx, g.buildPrompt(day, question, participants), domain.GenerateOpts{
		Temperature: 0.9,
		MaxTokens:   300,
		SchemaHint:  `{"type": string, "description": string, "bias": "yes"|"no"|"neutral"}`,
	})
	if err != nil {
		return domain.WorldEvent{}, fmt.Errorf("narrative: generate event: %w", err)
	}

	var payload eventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.WorldEvent{}, fmt.Errorf("narrative: decode event payload: %w", err)
	}
	if payload.Type == nil || !validEventTypes[domain.EventType(*payload.Type)] {
		return domain.WorldEvent{}, domain.NewValidationError("type", "must be a known event type")
	}
	if payload.Description == nil || strings.TrimSpace(*payload.Description) == "" {
		return domain.WorldEvent{}, domain.NewValidationError("description", "must be a non-empty string")
	}
	if payload.Bias == nil || !validBiases[domain.EventBias(*payload.Bias)] {
		return domain.WorldEvent{}, domain.NewValidationError("bias", "must be yes, no, or neutral")
	}

	actorIDs := make([]string, 0, len(participants))
	for _, a := range participants {
		actorIDs = append(actorIDs, a.ID)
	}

	evt := domain.WorldEvent{
		ID:          uuid.NewString(),
		Day:         day,
		Type:        domain.EventType(*payload.Type),
		Description: strings.TrimSpace(*payload.Description),
		ActorIDs:    actorIDs,
		Bias:        domain.EventBias(*payload.Bias),
		Public:      true,
		CreatedAt:   g.now(),
	}
	if question != nil {
		qid := question.ID
		evt.QuestionID = &qid
	}
	return evt, nil
}

func (g *EventGenerator) buildPrompt(day int, question *domain.Question, actors []domain.Actor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Day %d of a satirical corporate world. Invent one news event involving:\n", day)
	for _, a := range actors {
		fmt.Fprintf(&b, "- %s: %s\n", a.Name, a.Bio)
	}
	if question != nil {
		fmt.Fprintf(&b, "The event should hint at the open prediction: %q\n", question.Text)
	}
	b.WriteString(`Respond as JSON: {"type": "announcement|scandal|meeting|revelation|deal|conflict|betrayal|opportunity", "description": "...", "bias": "yes|no|neutral"}`)
	return b.String()
}

func (g *EventGenerator) sampleActors(actors []domain.Actor, n int) []domain.Actor {
	if n >= len(actors) {
		return actors
	}
	idx := g.rng.Perm(len(actors))[:n]
	out := make([]domain.Actor, 0, n)
	for _, i := range idx {
		out = append(out, actors[i])
	}
	return out
}
