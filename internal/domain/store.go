package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// QuestionStore persists prediction questions.
type QuestionStore interface {
	Create(ctx context.Context, q Question) error
	// NextSeq returns the next strictly increasing sequence number.
	NextSeq(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id string) (Question, error)
	// ListDue returns active questions whose resolution date has elapsed.
	ListDue(ctx context.Context, now time.Time) ([]Question, error)
	ListActive(ctx context.Context, opts ListOpts) ([]Question, error)
	// CountResolvingWithin counts active questions whose resolution date falls
	// inside [from, until].
	CountResolvingWithin(ctx context.Context, from, until time.Time) (int, error)
	// Resolve marks an active question resolved at the given time. It returns
	// ErrResolved if the question is no longer active.
	Resolve(ctx context.Context, id string, at time.Time) error
	CountActive(ctx context.Context) (int, error)
	// ListResolvedBefore returns resolved questions older than the cutoff, for
	// cold-storage archival.
	ListResolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]Question, error)
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventStore persists world events.
type EventStore interface {
	Create(ctx context.Context, e WorldEvent) error
	ListRecent(ctx context.Context, limit int) ([]WorldEvent, error)
	ListByDay(ctx context.Context, day int) ([]WorldEvent, error)
}

// PostStore persists generated posts.
type PostStore interface {
	CreateBatch(ctx context.Context, posts []Post) error
	ListRecent(ctx context.Context, limit int) ([]Post, error)
}

// CompanyStore persists tradable companies and their price history.
type CompanyStore interface {
	List(ctx context.Context) ([]Company, error)
	GetByID(ctx context.Context, id string) (Company, error)
	UpdatePrice(ctx context.Context, id string, price float64) error
	RecordTick(ctx context.Context, tick PriceTick) error
	ListTicks(ctx context.Context, companyID string, opts ListOpts) ([]PriceTick, error)
	// ListTicksBefore returns price history older than the cutoff, for archival.
	ListTicksBefore(ctx context.Context, cutoff time.Time, limit int) ([]PriceTick, error)
	DeleteTicksBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MarketStore persists binary market reserves.
type MarketStore interface {
	Create(ctx context.Context, m Market) error
	GetByQuestion(ctx context.Context, questionID string) (Market, error)
	UpdateReserves(ctx context.Context, id string, yes, no float64) error
}

// ActorStore is the read-only actor directory.
type ActorStore interface {
	List(ctx context.Context) ([]Actor, error)
	Sample(ctx context.Context, n int) ([]Actor, error)
}

// GameStateStore persists the singleton game-state checkpoint.
type GameStateStore interface {
	Get(ctx context.Context) (GameState, error)
	// Init creates the singleton row if absent; it is idempotent.
	Init(ctx context.Context) error
	Update(ctx context.Context, s GameState) error
}

// Pinger verifies persistence connectivity during engine initialization.
type Pinger interface {
	Ping(ctx context.Context) error
}
