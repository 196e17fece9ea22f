package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// CompanyStore implements domain.CompanyStore using PostgreSQL.
type CompanyStore struct {
	pool *pgxpool.Pool
}

// NewCompanyStore creates a new CompanyStore backed by the given pool.
func NewCompanyStore(pool *pgxpool.Pool) *CompanyStore {
	return &CompanyStore{pool: pool}
}

var _ domain.CompanyStore = (*CompanyStore)(nil)

const companyCols = `id, name, ticker, current_price, initial_price, updated_at`

// List returns every company ordered by ticker.
func (s *CompanyStore) List(ctx context.Context) ([]domain.Company, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+companyCols+` FROM companies ORDER BY ticker ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list companies: %w", err)
	}
	defer rows.Close()

	var companies []domain.Company
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Ticker, &c.CurrentPrice, &c.InitialPrice, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan company: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: company rows: %w", err)
	}
	return companies, nil
}

// GetByID retrieves a company by its primary key.
func (s *CompanyStore) GetByID(ctx context.Context, id string) (domain.Company, error) {
	var c domain.Company
	err := s.pool.QueryRow(ctx,
		`SELECT `+companyCols+` FROM companies WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Ticker, &c.CurrentPrice, &c.InitialPrice, &c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Company{}, domain.ErrNotFound
		}
		return domain.Company{}, fmt.Errorf("postgres: get company %s: %w", id, err)
	}
	return c, nil
}

// UpdatePrice sets a company's current price.
func (s *CompanyStore) UpdatePrice(ctx context.Context, id string, price float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE companies SET current_price = $2, updated_at = NOW() WHERE id = $1`,
		id, price)
	if err != nil {
		return fmt.Errorf("postgres: update company price %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordTick appends one price history entry.
func (s *CompanyStore) RecordTick(ctx context.Context, tick domain.PriceTick) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO price_ticks (company_id, price, delta, change_pct, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		tick.CompanyID, tick.Price, tick.Delta, tick.ChangePct, tick.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: record price tick for %s: %w", tick.CompanyID, err)
	}
	return nil
}

const tickCols = `id, company_id, price, delta, change_pct, created_at`

// ListTicks returns a company's price history, newest first, with pagination.
func (s *CompanyStore) ListTicks(ctx context.Context, companyID string, opts domain.ListOpts) ([]domain.PriceTick, error) {
	query := `SELECT ` + tickCols + ` FROM price_ticks WHERE company_id = $1`
	args := []any{companyID}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list price ticks for %s: %w", companyID, err)
	}
	defer rows.Close()

	return collectTicks(rows)
}

// ListTicksBefore returns price history older than the cutoff, for archival.
func (s *CompanyStore) ListTicksBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.PriceTick, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tickCols+` FROM price_ticks
		 WHERE created_at < $1 ORDER BY created_at ASC LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list old price ticks: %w", err)
	}
	defer rows.Close()

	return collectTicks(rows)
}

// DeleteTicksBefore removes price history older than the cutoff and returns
// the number of rows deleted.
func (s *CompanyStore) DeleteTicksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM price_ticks WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete old price ticks: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectTicks(rows pgx.Rows) ([]domain.PriceTick, error) {
	var ticks []domain.PriceTick
	for rows.Next() {
		var t domain.PriceTick
		if err := rows.Scan(&t.ID, &t.CompanyID, &t.Price, &t.Delta, &t.ChangePct, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan price tick: %w", err)
		}
		ticks = append(ticks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: price tick rows: %w", err)
	}
	return ticks, nil
}
