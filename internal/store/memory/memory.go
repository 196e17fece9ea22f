// Package memory implements the domain store interfaces with in-process maps.
// It backs the demo mode (no Postgres required) and the unit tests of the
// packages that orchestrate stores.
package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// QuestionStore is an in-memory domain.QuestionStore.
type QuestionStore struct {
	mu        sync.Mutex
	questions map[string]domain.Question
	seq       int64
}

// NewQuestionStore creates an empty QuestionStore.
func NewQuestionStore() *QuestionStore {
	return &QuestionStore{questions: make(map[string]domain.Question)}
}

func (s *QuestionStore) Create(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.questions[q.ID] = q
	return nil
}

func (s *QuestionStore) NextSeq(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

func (s *QuestionStore) GetByID(_ context.Context, id string) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrNotFound
	}
	return q, nil
}

func (s *QuestionStore) ListDue(_ context.Context, now time.Time) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []domain.Question
	for _, q := range s.questions {
		if q.IsDue(now) {
			due = append(due, q)
		}
	}
	sortBySeq(due)
	return due, nil
}

func (s *QuestionStore) ListActive(_ context.Context, opts domain.ListOpts) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []domain.Question
	for _, q := range s.questions {
		if q.Status == domain.QuestionStatusActive {
			active = append(active, q)
		}
	}
	sortBySeq(active)
	if opts.Limit > 0 && len(active) > opts.Limit {
		active = active[:opts.Limit]
	}
	return active, nil
}

func (s *QuestionStore) CountResolvingWithin(_ context.Context, from, until time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, q := range s.questions {
		if q.Status != domain.QuestionStatusActive {
			continue
		}
		if !q.ResolvesAt.Before(from) && !q.ResolvesAt.After(until) {
			count++
		}
	}
	return count, nil
}

func (s *QuestionStore) Resolve(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if q.Status != domain.QuestionStatusActive {
		return domain.ErrResolved
	}
	q.Status = domain.QuestionStatusResolved
	q.ResolvedAt = &at
	s.questions[id] = q
	return nil
}

func (s *QuestionStore) CountActive(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, q := range s.questions {
		if q.Status == domain.QuestionStatusActive {
			count++
		}
	}
	return count, nil
}

func (s *QuestionStore) ListResolvedBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Question
	for _, q := range s.questions {
		if q.Status == domain.QuestionStatusResolved && q.ResolvedAt != nil && q.ResolvedAt.Before(cutoff) {
			out = append(out, q)
		}
	}
	sortBySeq(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *QuestionStore) DeleteResolvedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, q := range s.questions {
		if q.Status == domain.QuestionStatusResolved && q.ResolvedAt != nil && q.ResolvedAt.Before(cutoff) {
			delete(s.questions, id)
			deleted++
		}
	}
	return deleted, nil
}

func sortBySeq(qs []domain.Question) {
	sort.Slice(qs, func(i, j int) bool { return qs[i].Seq < qs[j].Seq })
}

// EventStore is an in-memory domain.EventStore.
type EventStore struct {
	mu     sync.Mutex
	events []domain.WorldEvent
}

// NewEventStore creates an empty EventStore.
func NewEventStore() *EventStore {
	return &EventStore{}
}

func (s *EventStore) Create(_ context.Context, e domain.WorldEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *EventStore) ListRecent(_ context.Context, limit int) ([]domain.WorldEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.events)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.WorldEvent, limit)
	copy(out, s.events[n-limit:])
	return out, nil
}

func (s *EventStore) ListByDay(_ context.Context, day int) ([]domain.WorldEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.WorldEvent
	for _, e := range s.events {
		if e.Day == day {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every stored event, oldest first.
func (s *EventStore) All() []domain.WorldEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.WorldEvent, len(s.events))
	copy(out, s.events)
	return out
}

// PostStore is an in-memory domain.PostStore.
type PostStore struct {
	mu    sync.Mutex
	posts []domain.Post
}

// NewPostStore creates an empty PostStore.
func NewPostStore() *PostStore {
	return &PostStore{}
}

func (s *PostStore) CreateBatch(_ context.Context, posts []domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, posts...)
	return nil
}

func (s *PostStore) ListRecent(_ context.Context, limit int) ([]domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.posts)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.Post, limit)
	copy(out, s.posts[n-limit:])
	return out, nil
}

// CompanyStore is an in-memory domain.CompanyStore.
type CompanyStore struct {
	mu        sync.Mutex
	companies map[string]domain.Company
	order     []string
	ticks     []domain.PriceTick
	nextTick  int64
}

// NewCompanyStore creates a CompanyStore seeded with the given companies.
func NewCompanyStore(companies ...domain.Company) *CompanyStore {
	s := &CompanyStore{companies: make(map[string]domain.Company)}
	for _, c := range companies {
		s.companies[c.ID] = c
		s.order = append(s.order, c.ID)
	}
	return s
}

func (s *CompanyStore) List(_ context.Context) ([]domain.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Company, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.companies[id])
	}
	return out, nil
}

func (s *CompanyStore) GetByID(_ context.Context, id string) (domain.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[id]
	if !ok {
		return domain.Company{}, domain.ErrNotFound
	}
	return c, nil
}

func (s *CompanyStore) UpdatePrice(_ context.Context, id string, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.CurrentPrice = price
	c.UpdatedAt = time.Now()
	s.companies[id] = c
	return nil
}

func (s *CompanyStore) RecordTick(_ context.Context, tick domain.PriceTick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTick++
	tick.ID = s.nextTick
	s.ticks = append(s.ticks, tick)
	return nil
}

func (s *CompanyStore) ListTicks(_ context.Context, companyID string, opts domain.ListOpts) ([]domain.PriceTick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PriceTick
	for _, t := range s.ticks {
		if t.CompanyID == companyID {
			out = append(out, t)
		}
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[len(out)-opts.Limit:]
	}
	return out, nil
}

func (s *CompanyStore) ListTicksBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.PriceTick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PriceTick
	for _, t := range s.ticks {
		if t.CreatedAt.Before(cutoff) {
			out = append(out, t)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *CompanyStore) DeleteTicksBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.ticks[:0]
	var deleted int64
	for _, t := range s.ticks {
		if t.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, t)
	}
	s.ticks = kept
	return deleted, nil
}

// MarketStore is an in-memory domain.MarketStore.
type MarketStore struct {
	mu      sync.Mutex
	markets map[string]domain.Market // keyed by question ID
}

// NewMarketStore creates an empty MarketStore.
func NewMarketStore() *MarketStore {
	return &MarketStore{markets: make(map[string]domain.Market)}
}

func (s *MarketStore) Create(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[m.QuestionID]; ok {
		return domain.ErrAlreadyExists
	}
	s.markets[m.QuestionID] = m
	return nil
}

func (s *MarketStore) GetByQuestion(_ context.Context, questionID string) (domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[questionID]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *MarketStore) UpdateReserves(_ context.Context, id string, yes, no float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for qid, m := range s.markets {
		if m.ID == id {
			m.YesShares = yes
			m.NoShares = no
			m.UpdatedAt = time.Now()
			s.markets[qid] = m
			return nil
		}
	}
	return domain.ErrNotFound
}

// ActorStore is an in-memory domain.ActorStore.
type ActorStore struct {
	actors []domain.Actor
	rng    *rand.Rand
}

// NewActorStore creates an ActorStore over a fixed directory.
func NewActorStore(actors []domain.Actor) *ActorStore {
	return &ActorStore{
		actors: actors,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *ActorStore) List(_ context.Context) ([]domain.Actor, error) {
	out := make([]domain.Actor, len(s.actors))
	copy(out, s.actors)
	return out, nil
}

func (s *ActorStore) Sample(_ context.Context, n int) ([]domain.Actor, error) {
	if n >= len(s.actors) {
		out := make([]domain.Actor, len(s.actors))
		copy(out, s.actors)
		return out, nil
	}
	idx := s.rng.Perm(len(s.actors))[:n]
	out := make([]domain.Actor, 0, n)
	for _, i := range idx {
		out = append(out, s.actors[i])
	}
	return out, nil
}

// GameStateStore is an in-memory domain.GameStateStore.
type GameStateStore struct {
	mu    sync.Mutex
	state *domain.GameState
}

// NewGameStateStore creates an empty GameStateStore.
func NewGameStateStore() *GameStateStore {
	return &GameStateStore{}
}

func (s *GameStateStore) Get(_ context.Context) (domain.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return domain.GameState{}, domain.ErrNotFound
	}
	return *s.state, nil
}

func (s *GameStateStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		s.state = &domain.GameState{Day: 1, UpdatedAt: time.Now()}
	}
	return nil
}

func (s *GameStateStore) Update(_ context.Context, state domain.GameState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state.UpdatedAt = time.Now()
	s.state = &state
	return nil
}

// Ping always succeeds; the in-memory store has no connectivity to verify.
func (s *GameStateStore) Ping(_ context.Context) error {
	return nil
}

// Compile-time interface checks.
var (
	_ domain.QuestionStore  = (*QuestionStore)(nil)
	_ domain.EventStore     = (*EventStore)(nil)
	_ domain.PostStore      = (*PostStore)(nil)
	_ domain.CompanyStore   = (*CompanyStore)(nil)
	_ domain.MarketStore    = (*MarketStore)(nil)
	_ domain.ActorStore     = (*ActorStore)(nil)
	_ domain.GameStateStore = (*GameStateStore)(nil)
	_ domain.Pinger         = (*GameStateStore)(nil)
)
