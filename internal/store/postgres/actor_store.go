package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// ActorStore implements domain.ActorStore using PostgreSQL. The actor
// directory is seeded by migrations and read-only at runtime.
type ActorStore struct {
	pool *pgxpool.Pool
}

// NewActorStore creates a new ActorStore backed by the given pool.
func NewActorStore(pool *pgxpool.Pool) *ActorStore {
	return &ActorStore{pool: pool}
}

var _ domain.ActorStore = (*ActorStore)(nil)

// List returns every actor ordered by name.
func (s *ActorStore) List(ctx context.Context) ([]domain.Actor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, bio FROM actors ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list actors: %w", err)
	}
	defer rows.Close()

	return collectActors(rows)
}

// Sample returns up to n actors drawn uniformly at random.
func (s *ActorStore) Sample(ctx context.Context, n int) ([]domain.Actor, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, bio FROM actors ORDER BY random() LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("postgres: sample actors: %w", err)
	}
	defer rows.Close()

	return collectActors(rows)
}

func collectActors(rows pgx.Rows) ([]domain.Actor, error) {
	var actors []domain.Actor
	for rows.Next() {
		var a domain.Actor
		if err := rows.Scan(&a.ID, &a.Name, &a.Bio); err != nil {
			return nil, fmt.Errorf("postgres: scan actor: %w", err)
		}
		actors = append(actors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: actor rows: %w", err)
	}
	return actors, nil
}
