package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

var _ domain.EventStore = (*EventStore)(nil)

const eventCols = `id, day, type, description, actor_ids, question_id, bias, public, created_at`

// Create inserts a single world event.
func (s *EventStore) Create(ctx context.Context, e domain.WorldEvent) error {
	const query = `
		INSERT INTO events (id, day, type, description, actor_ids, question_id, bias, public, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		e.ID, e.Day, string(e.Type), e.Description, e.ActorIDs,
		e.QuestionID, string(e.Bias), e.Public, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create event %s: %w", e.ID, err)
	}
	return nil
}

// ListRecent returns the most recently created events, newest first.
func (s *EventStore) ListRecent(ctx context.Context, limit int) ([]domain.WorldEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+eventCols+` FROM events ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// ListByDay returns every event recorded for a simulation day.
func (s *EventStore) ListByDay(ctx context.Context, day int) ([]domain.WorldEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+eventCols+` FROM events WHERE day = $1 ORDER BY created_at ASC`, day)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events for day %d: %w", day, err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

func collectEvents(rows pgx.Rows) ([]domain.WorldEvent, error) {
	var events []domain.WorldEvent
	for rows.Next() {
		var e domain.WorldEvent
		var typ, bias string
		if err := rows.Scan(
			&e.ID, &e.Day, &typ, &e.Description, &e.ActorIDs,
			&e.QuestionID, &bias, &e.Public, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		e.Type = domain.EventType(typ)
		e.Bias = domain.EventBias(bias)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: event rows: %w", err)
	}
	return events, nil
}
