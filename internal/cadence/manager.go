// Package cadence decides when the game world spawns new prediction questions
// and when it resolves expired ones. Each time horizon (24h, 3d, 7d, 30d) is
// an independent bucket that alternates between "eligible to create" and
// "cooling down"; buckets live in a fixed array so iteration is deterministic.
package cadence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/babylonsim/internal/amm"
	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// ToleranceWindow is the slack around "now + horizon" used when counting
// questions already scheduled to land at a bucket's horizon. Resolution dates
// are computed continuously rather than snapped to a grid, so exact-timestamp
// bucketing would essentially never match.
const ToleranceWindow = 12 * time.Hour

// BucketConfig is the static configuration for one cadence bucket.
type BucketConfig struct {
	MaxActive   int
	MinInterval time.Duration
}

// Config configures the Manager.
type Config struct {
	Buckets       [domain.CadenceClassCount]BucketConfig
	SeedLiquidity float64
	// SampleActors and SampleCompanies bound how many identities feed a
	// creation prompt.
	SampleActors    int
	SampleCompanies int
}

// DefaultConfig returns the cadence configuration used by the game world.
func DefaultConfig() Config {
	return Config{
		Buckets: [domain.CadenceClassCount]BucketConfig{
			domain.CadenceDay:      {MaxActive: 3, MinInterval: 4 * time.Hour},
			domain.CadenceThreeDay: {MaxActive: 2, MinInterval: 12 * time.Hour},
			domain.CadenceWeek:     {MaxActive: 2, MinInterval: 24 * time.Hour},
			domain.CadenceMonth:    {MaxActive: 1, MinInterval: 3 * 24 * time.Hour},
		},
		SeedLiquidity:   1000,
		SampleActors:    5,
		SampleCompanies: 5,
	}
}

// Manager runs the per-bucket creation/resolution state machine. Bucket state
// is mutated only by the scheduler's own tick, so no locking is required.
type Manager struct {
	cfg       Config
	questions domain.QuestionStore
	markets   domain.MarketStore
	events    domain.EventStore
	actors    domain.ActorStore
	companies domain.CompanyStore
	gen       domain.TextGenerator
	logger    *slog.Logger

	buckets [domain.CadenceClassCount]domain.CadenceBucket
}

// NewManager creates a Manager with one bucket per cadence class.
func NewManager(
	cfg Config,
	questions domain.QuestionStore,
	markets domain.MarketStore,
	events domain.EventStore,
	actors domain.ActorStore,
	companies domain.CompanyStore,
	gen domain.TextGenerator,
	logger *slog.Logger,
) *Manager {
	m := &Manager{
		cfg:       cfg,
		questions: questions,
		markets:   markets,
		events:    events,
		actors:    actors,
		companies: companies,
		gen:       gen,
		logger:    logger.With(slog.String("component", "cadence")),
	}
	for class := domain.CadenceClass(0); class < domain.CadenceClassCount; class++ {
		m.buckets[class] = domain.CadenceBucket{
			Class:       class,
			MaxActive:   cfg.Buckets[class].MaxActive,
			MinInterval: cfg.Buckets[class].MinInterval,
		}
	}
	return m
}

// Buckets returns a snapshot of the bucket runtime state.
func (m *Manager) Buckets() [domain.CadenceClassCount]domain.CadenceBucket {
	return m.buckets
}

// ResolveDue resolves every active question whose resolution date has
// elapsed. A failure on one question is logged and does not block the rest.
// It returns the number of questions resolved.
func (m *Manager) ResolveDue(ctx context.Context, now time.Time, day int) int {
	due, err := m.questions.ListDue(ctx, now)
	if err != nil {
		m.logger.ErrorContext(ctx, "list due questions failed",
			slog.String("error", err.Error()),
		)
		return 0
	}

	resolved := 0
	for _, q := range due {
		if err := m.resolveOne(ctx, q, now, day); err != nil {
			m.logger.ErrorContext(ctx, "resolve question failed",
				slog.String("question_id", q.ID),
				slog.Int64("seq", q.Seq),
				slog.String("error", err.Error()),
			)
			continue
		}
		resolved++
	}
	return resolved
}

// resolveOne emits a resolution event for the question and marks it resolved.
// The narrative comes from the generation collaborator with a deterministic
// fallback, so resolution never depends on generation availability.
func (m *Manager) resolveOne(ctx context.Context, q domain.Question, now time.Time, day int) error {
	narrative := m.resolutionNarrative(ctx, q)

	bias := domain.BiasNo
	if q.Outcome {
		bias = domain.BiasYes
	}

	qid := q.ID
	evt := domain.WorldEvent{
		ID:          uuid.NewString(),
		Day:         day,
		Type:        domain.EventResolution,
		Description: narrative,
		QuestionID:  &qid,
		Bias:        bias,
		Public:      true,
		CreatedAt:   now,
	}
	if err := m.events.Create(ctx, evt); err != nil {
		return fmt.Errorf("cadence: persist resolution event: %w", err)
	}

	if err := m.questions.Resolve(ctx, q.ID, now); err != nil {
		return fmt.Errorf("cadence: mark resolved: %w", err)
	}

	m.logger.InfoContext(ctx, "question resolved",
		slog.String("question_id", q.ID),
		slog.Int64("seq", q.Seq),
		slog.Bool("outcome", q.Outcome),
	)
	return nil
}

// resolutionNarrative asks the generator for a one-line resolution narrative
// and falls back to a deterministic string on any failure.
func (m *Manager) resolutionNarrative(ctx context.Context, q domain.Question) string {
	outcome := "NO"
	if q.Outcome {
		outcome = "YES"
	}
	fallback := fmt.Sprintf("Prediction #%d has resolved %s: %s", q.Seq, outcome, q.Text)

	prompt := fmt.Sprintf(
		"The prediction %q has just resolved %s. Write a single dramatic news blurb announcing the outcome. Respond as JSON: {\"narrative\": \"...\"}",
		q.Text, outcome,
	)
	raw, err := m.gen.GenerateJSON(ctx, prompt, domain.GenerateOpts{Temperature: 0.9, MaxTokens: 200})
	if err != nil {
		m.logger.WarnContext(ctx, "resolution narrative generation failed, using fallback",
			slog.String("question_id", q.ID),
			slog.String("error", err.Error()),
		)
		return fallback
	}

	var payload struct {
		Narrative string `json:"narrative"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || strings.TrimSpace(payload.Narrative) == "" {
		return fallback
	}
	return payload.Narrative
}

// CreateDue walks the buckets in enum order and attempts one creation per
// eligible bucket. Both gates are independent: a bucket whose horizon window
// is saturated or whose cooldown has not elapsed is skipped. It returns the
// number of questions created.
func (m *Manager) CreateDue(ctx context.Context, now time.Time) int {
	created := 0
	for class := domain.CadenceClass(0); class < domain.CadenceClassCount; class++ {
		bucket := &m.buckets[class]

		eligible, err := m.eligible(ctx, bucket, now)
		if err != nil {
			m.logger.ErrorContext(ctx, "eligibility check failed",
				slog.String("bucket", class.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !eligible {
			continue
		}

		if err := m.createOne(ctx, bucket, now); err != nil {
			m.logger.ErrorContext(ctx, "question creation failed",
				slog.String("bucket", class.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		created++
	}
	return created
}

// eligible applies both creation gates for a bucket: the horizon-window
// occupancy cap and the minimum inter-creation interval.
func (m *Manager) eligible(ctx context.Context, bucket *domain.CadenceBucket, now time.Time) (bool, error) {
	if !bucket.LastCreated.IsZero() && now.Sub(bucket.LastCreated) < bucket.MinInterval {
		return false, nil
	}

	target := now.Add(bucket.Class.Horizon())
	count, err := m.questions.CountResolvingWithin(ctx, target.Add(-ToleranceWindow), target.Add(ToleranceWindow))
	if err != nil {
		return false, fmt.Errorf("cadence: count window for %s: %w", bucket.Class, err)
	}
	return count < bucket.MaxActive, nil
}

// questionPayload is the strict shape the generation collaborator must return
// for a creation request. Pointer fields distinguish "missing" from zero.
type questionPayload struct {
	Question        *string `json:"question"`
	ExpectedOutcome *bool   `json:"expectedOutcome"`
}

// createOne generates, validates, and persists a new question for the bucket,
// and seeds its AMM market. The bucket's lastCreated timestamp is only
// advanced after everything succeeded.
func (m *Manager) createOne(ctx context.Context, bucket *domain.CadenceBucket, now time.Time) error {
	prompt, err := m.buildPrompt(ctx, bucket.Class)
	if err != nil {
		return err
	}

	raw, err := m.gen.GenerateJSON(ctx, prompt, domain.GenerateOpts{
		Temperature: 0.8,
		MaxTokens:   300,
		SchemaHint:  `{"question": string, "expectedOutcome": bool}`,
	})
	if err != nil {
		return fmt.Errorf("cadence: generate question: %w", err)
	}

	var payload questionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("cadence: decode question payload: %w", err)
	}
	if payload.Question == nil || strings.TrimSpace(*payload.Question) == "" {
		return domain.NewValidationError("question", "must be a non-empty string")
	}
	if payload.ExpectedOutcome == nil {
		return domain.NewValidationError("expectedOutcome", "must be a boolean")
	}

	seq, err := m.questions.NextSeq(ctx)
	if err != nil {
		return fmt.Errorf("cadence: next sequence: %w", err)
	}

	q := domain.Question{
		ID:         uuid.NewString(),
		Seq:        seq,
		Text:       strings.TrimSpace(*payload.Question),
		Outcome:    *payload.ExpectedOutcome,
		Status:     domain.QuestionStatusActive,
		CreatedAt:  now,
		ResolvesAt: now.Add(bucket.Class.Horizon()),
	}
	if err := m.questions.Create(ctx, q); err != nil {
		return fmt.Errorf("cadence: persist question: %w", err)
	}

	if err := m.seedMarket(ctx, q, now); err != nil {
		// The question stands; the market can be reseeded by the trade path.
		m.logger.WarnContext(ctx, "seed market failed",
			slog.String("question_id", q.ID),
			slog.String("error", err.Error()),
		)
	}

	bucket.LastCreated = now

	m.logger.InfoContext(ctx, "question created",
		slog.String("bucket", bucket.Class.String()),
		slog.String("question_id", q.ID),
		slog.Int64("seq", q.Seq),
		slog.Time("resolves_at", q.ResolvesAt),
	)
	return nil
}

// seedMarket initializes the question's binary market with a 50/50 split of
// the configured seed liquidity.
func (m *Manager) seedMarket(ctx context.Context, q domain.Question, now time.Time) error {
	reserves, err := amm.InitializeMarket(m.cfg.SeedLiquidity)
	if err != nil {
		return err
	}
	return m.markets.Create(ctx, domain.Market{
		ID:         uuid.NewString(),
		QuestionID: q.ID,
		YesShares:  reserves.YesShares,
		NoShares:   reserves.NoShares,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

// buildPrompt assembles a creation prompt from a bounded sample of actors and
// companies so the generated proposition stays grounded in the game world.
func (m *Manager) buildPrompt(ctx context.Context, class domain.CadenceClass) (string, error) {
	actors, err := m.actors.Sample(ctx, m.cfg.SampleActors)
	if err != nil {
		return "", fmt.Errorf("cadence: sample actors: %w", err)
	}

	companies, err := m.companies.List(ctx)
	if err != nil {
		return "", fmt.Errorf("cadence: list companies: %w", err)
	}
	if len(companies) > m.cfg.SampleCompanies {
		companies = companies[:m.cfg.SampleCompanies]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are the game master of a satirical corporate world. Invent one binary prediction that resolves in %s.\n", class)
	b.WriteString("Cast:\n")
	for _, a := range actors {
		fmt.Fprintf(&b, "- %s: %s\n", a.Name, a.Bio)
	}
	b.WriteString("Companies:\n")
	for _, c := range companies {
		fmt.Fprintf(&b, "- %s (%s), trading at %.2f\n", c.Name, c.Ticker, c.CurrentPrice)
	}
	b.WriteString("Respond as JSON: {\"question\": \"...\", \"expectedOutcome\": true|false}. The question must be answerable YES or NO.")
	return b.String(), nil
}
