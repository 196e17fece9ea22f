package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// QuestionStore implements domain.QuestionStore using PostgreSQL.
type QuestionStore struct {
	pool *pgxpool.Pool
}

// NewQuestionStore creates a new QuestionStore backed by the given pool.
func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

var _ domain.QuestionStore = (*QuestionStore)(nil)

const questionCols = `id, seq, text, outcome, status, created_at, resolves_at, resolved_at`

// Create inserts a new question.
func (s *QuestionStore) Create(ctx context.Context, q domain.Question) error {
	const query = `
		INSERT INTO questions (id, seq, text, outcome, status, created_at, resolves_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		q.ID, q.Seq, q.Text, q.Outcome, string(q.Status),
		q.CreatedAt, q.ResolvesAt, q.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create question %s: %w", q.ID, err)
	}
	return nil
}

// NextSeq returns the next value of the question numbering sequence.
func (s *QuestionStore) NextSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.pool.QueryRow(ctx, `SELECT nextval('question_seq')`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("postgres: next question seq: %w", err)
	}
	return seq, nil
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var q domain.Question
	var status string
	err := row.Scan(
		&q.ID, &q.Seq, &q.Text, &q.Outcome, &status,
		&q.CreatedAt, &q.ResolvesAt, &q.ResolvedAt,
	)
	if err != nil {
		return domain.Question{}, err
	}
	q.Status = domain.QuestionStatus(status)
	return q, nil
}

// GetByID retrieves a question by its primary key.
func (s *QuestionStore) GetByID(ctx context.Context, id string) (domain.Question, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+questionCols+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Question{}, domain.ErrNotFound
		}
		return domain.Question{}, fmt.Errorf("postgres: get question %s: %w", id, err)
	}
	return q, nil
}

// ListDue returns active questions whose resolution date has elapsed, oldest
// resolution first.
func (s *QuestionStore) ListDue(ctx context.Context, now time.Time) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+questionCols+` FROM questions
		 WHERE status = 'active' AND resolves_at <= $1
		 ORDER BY resolves_at ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("postgres: list due questions: %w", err)
	}
	defer rows.Close()

	return collectQuestions(rows)
}

// ListActive returns active questions, newest first, with pagination.
func (s *QuestionStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Question, error) {
	query := `SELECT ` + questionCols + ` FROM questions WHERE status = 'active'`
	args := []any{}
	argIdx := 1

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
		return nil, fmt.Errorf("postgres: list active questions: %w", err)
	}
	defer rows.Close()

	return collectQuestions(rows)
}

// CountResolvingWithin counts active questions whose resolution date falls
// inside [from, until].
func (s *QuestionStore) CountResolvingWithin(ctx context.Context, from, until time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions
		 WHERE status = 'active' AND resolves_at >= $1 AND resolves_at <= $2`,
		from, until,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count resolving questions: %w", err)
	}
	return count, nil
}

// Resolve marks an active question resolved at the given time. Returns
// domain.ErrResolved when the question exists but is no longer active, and
// domain.ErrNotFound when it does not exist.
func (s *QuestionStore) Resolve(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE questions SET status = 'resolved', resolved_at = $2
		 WHERE id = $1 AND status = 'active'`, id, at)
	if err != nil {
		return fmt.Errorf("postgres: resolve question %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM questions WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: resolve question %s: %w", id, err)
		}
		if exists {
			return domain.ErrResolved
		}
		return domain.ErrNotFound
	}
	return nil
}

// CountActive returns the number of active questions.
func (s *QuestionStore) CountActive(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE status = 'active'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count active questions: %w", err)
	}
	return count, nil
}

// ListResolvedBefore returns resolved questions older than the cutoff, for
// cold-storage archival.
func (s *QuestionStore) ListResolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+questionCols+` FROM questions
		 WHERE status = 'resolved' AND resolved_at < $1
		 ORDER BY resolved_at ASC
		 LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list resolved questions: %w", err)
	}
	defer rows.Close()

	return collectQuestions(rows)
}

// DeleteResolvedBefore removes resolved questions older than the cutoff and
// returns the number of rows deleted.
func (s *QuestionStore) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM questions WHERE status = 'resolved' AND resolved_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete resolved questions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectQuestions(rows pgx.Rows) ([]domain.Question, error) {
	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		var status string
		if err := rows.Scan(
			&q.ID, &q.Seq, &q.Text, &q.Outcome, &status,
			&q.CreatedAt, &q.ResolvesAt, &q.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan question: %w", err)
		}
		q.Status = domain.QuestionStatus(status)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: question rows: %w", err)
	}
	return questions, nil
}
