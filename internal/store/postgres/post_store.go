package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// PostStore implements domain.PostStore using PostgreSQL.
type PostStore struct {
	pool *pgxpool.Pool
}

// NewPostStore creates a new PostStore backed by the given pool.
func NewPostStore(pool *pgxpool.Pool) *PostStore {
	return &PostStore{pool: pool}
}

var _ domain.PostStore = (*PostStore)(nil)

// CreateBatch bulk-inserts posts in a single batch round trip.
func (s *PostStore) CreateBatch(ctx context.Context, posts []domain.Post) error {
	if len(posts) == 0 {
		return nil
	}

	const query = `
		INSERT INTO posts (id, author_id, body, event_id, question_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	batch := &pgx.Batch{}
	for _, p := range posts {
		batch.Queue(query, p.ID, p.AuthorID, p.Body, p.EventID, p.QuestionID, p.CreatedAt)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range posts {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert post batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListRecent returns the most recently created posts, newest first.
func (s *PostStore) ListRecent(ctx context.Context, limit int) ([]domain.Post, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, author_id, body, event_id, question_id, created_at
		 FROM posts ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Body, &p.EventID, &p.QuestionID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: post rows: %w", err)
	}
	return posts, nil
}
