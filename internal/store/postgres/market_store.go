package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

var _ domain.MarketStore = (*MarketStore)(nil)

// Create inserts a new market.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (id, question_id, yes_shares, no_shares, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.QuestionID, m.YesShares, m.NoShares, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: create market %s: %w", m.ID, err)
	}
	return nil
}

// GetByQuestion retrieves the market tied to a question.
func (s *MarketStore) GetByQuestion(ctx context.Context, questionID string) (domain.Market, error) {
	var m domain.Market
	err := s.pool.QueryRow(ctx,
		`SELECT id, question_id, yes_shares, no_shares, created_at, updated_at
		 FROM markets WHERE question_id = $1`, questionID,
	).Scan(&m.ID, &m.QuestionID, &m.YesShares, &m.NoShares, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market for question %s: %w", questionID, err)
	}
	return m, nil
}

// UpdateReserves replaces a market's share reserves.
func (s *MarketStore) UpdateReserves(ctx context.Context, id string, yes, no float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets SET yes_shares = $2, no_shares = $3, updated_at = NOW() WHERE id = $1`,
		id, yes, no)
	if err != nil {
		return fmt.Errorf("postgres: update market reserves %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
