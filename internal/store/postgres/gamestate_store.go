package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// GameStateStore implements domain.GameStateStore using PostgreSQL. The game
// state lives in a singleton row keyed by id = 1.
type GameStateStore struct {
	pool *pgxpool.Pool
}

// NewGameStateStore creates a new GameStateStore backed by the given pool.
func NewGameStateStore(pool *pgxpool.Pool) *GameStateStore {
	return &GameStateStore{pool: pool}
}

var _ domain.GameStateStore = (*GameStateStore)(nil)

// Get returns the singleton game state, or domain.ErrNotFound if the row was
// never initialized.
func (s *GameStateStore) Get(ctx context.Context) (domain.GameState, error) {
	var gs domain.GameState
	err := s.pool.QueryRow(ctx,
		`SELECT day, last_tick_at, active_questions, running, updated_at
		 FROM game_state WHERE id = 1`,
	).Scan(&gs.Day, &gs.LastTickAt, &gs.ActiveQuestions, &gs.Running, &gs.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.GameState{}, domain.ErrNotFound
		}
		return domain.GameState{}, fmt.Errorf("postgres: get game state: %w", err)
	}
	return gs, nil
}

// Init creates the singleton row if it does not already exist.
func (s *GameStateStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO game_state (id, day, last_tick_at, active_questions, running, updated_at)
		 VALUES (1, 1, NOW(), 0, FALSE, NOW())
		 ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("postgres: init game state: %w", err)
	}
	return nil
}

// Update overwrites the singleton game state checkpoint.
func (s *GameStateStore) Update(ctx context.Context, gs domain.GameState) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE game_state SET
			day = $1, last_tick_at = $2, active_questions = $3,
			running = $4, updated_at = NOW()
		 WHERE id = 1`,
		gs.Day, gs.LastTickAt, gs.ActiveQuestions, gs.Running)
	if err != nil {
		return fmt.Errorf("postgres: update game state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
