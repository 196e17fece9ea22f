package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// archiveBatchSize bounds how many rows one archive pass reads at a time.
const archiveBatchSize = 10000

// ---------------------------------------------------------------------------
// Narrow store interfaces required by the archiver. The Postgres stores
// satisfy these implicitly through their ListTicksBefore / ListResolvedBefore
// methods; the archiver never needs the full store surface.
// ---------------------------------------------------------------------------

// TickArchiveStore provides the price-history slice of domain.CompanyStore
// the archiver needs.
type TickArchiveStore interface {
	ListTicksBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.PriceTick, error)
	DeleteTicksBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// QuestionArchiveStore provides the resolved-question slice of
// domain.QuestionStore the archiver needs.
type QuestionArchiveStore interface {
	ListResolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Question, error)
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ArchiveImpl implements domain.Archiver by reading old simulation records,
// serializing them to JSONL, uploading the result to object storage, and
// deleting the archived rows from the primary store. Rows are deleted only
// after the upload has succeeded.
type ArchiveImpl struct {
	writer    domain.BlobWriter
	ticks     TickArchiveStore
	questions QuestionArchiveStore
	log       *slog.Logger
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, ticks TickArchiveStore, questions QuestionArchiveStore, log *slog.Logger) *ArchiveImpl {
	return &ArchiveImpl{
		writer:    writer,
		ticks:     ticks,
		questions: questions,
		log:       log,
	}
}

var _ domain.Archiver = (*ArchiveImpl)(nil)

// ArchivePriceTicks moves price history older than the cutoff to
// archive/price_ticks/YYYY-MM.jsonl and returns the number of rows removed
// from the primary store.
func (a *ArchiveImpl) ArchivePriceTicks(ctx context.Context, before time.Time) (int64, error) {
	ticks, err := a.ticks.ListTicksBefore(ctx, before, archiveBatchSize)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive price ticks query: %w", err)
	}
	if len(ticks) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(ticks)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive price ticks marshal: %w", err)
	}

	path := archivePath("price_ticks", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive price ticks upload: %w", err)
	}

	// Delete only what was uploaded: the batch is the oldest slice, so the
	// newest uploaded timestamp bounds the delete.
	cutoff := ticks[len(ticks)-1].CreatedAt.Add(time.Nanosecond)
	deleted, err := a.ticks.DeleteTicksBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive price ticks delete: %w", err)
	}

	a.log.Info("archived price ticks",
		slog.String("path", path),
		slog.Int("uploaded", len(ticks)),
		slog.Int64("deleted", deleted))

	return deleted, nil
}

// ArchiveResolvedQuestions moves resolved questions older than the cutoff to
// archive/questions/YYYY-MM.jsonl and returns the number of rows removed from
// the primary store.
func (a *ArchiveImpl) ArchiveResolvedQuestions(ctx context.Context, before time.Time) (int64, error) {
	questions, err := a.questions.ListResolvedBefore(ctx, before, archiveBatchSize)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive questions query: %w", err)
	}
	if len(questions) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(questions)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive questions marshal: %w", err)
	}

	path := archivePath("questions", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive questions upload: %w", err)
	}

	last := questions[len(questions)-1]
	cutoff := before
	if last.ResolvedAt != nil {
		cutoff = last.ResolvedAt.Add(time.Nanosecond)
	}
	deleted, err := a.questions.DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive questions delete: %w", err)
	}

	a.log.Info("archived resolved questions",
		slog.String("path", path),
		slog.Int("uploaded", len(questions)),
		slog.Int64("deleted", deleted))

	return deleted, nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/price_ticks/2026-08.jsonl
//	archive/questions/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
