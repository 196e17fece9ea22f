package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

type capturingWriter struct {
	path        string
	contentType string
	body        []byte
	err         error
}

func (w *capturingWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if w.err != nil {
		return w.err
	}
	w.path = path
	w.contentType = contentType
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.body = b
	return nil
}

type fakeTickStore struct {
	ticks   []domain.PriceTick
	deleted []time.Time
}

func (s *fakeTickStore) ListTicksBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.PriceTick, error) {
	var out []domain.PriceTick
	for _, t := range s.ticks {
		if t.CreatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeTickStore) DeleteTicksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.deleted = append(s.deleted, cutoff)
	var n int64
	for _, t := range s.ticks {
		if t.CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

type fakeQuestionStore struct {
	questions []domain.Question
}

func (s *fakeQuestionStore) ListResolvedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Question, error) {
	var out []domain.Question
	for _, q := range s.questions {
		if q.ResolvedAt != nil && q.ResolvedAt.Before(cutoff) && len(out) < limit {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *fakeQuestionStore) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for _, q := range s.questions {
		if q.ResolvedAt != nil && q.ResolvedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestArchivePriceTicks(t *testing.T) {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	ticks := &fakeTickStore{ticks: []domain.PriceTick{
		{ID: 1, CompanyID: "co-vane", Price: 100, Delta: 1, ChangePct: 1, CreatedAt: base},
		{ID: 2, CompanyID: "co-vane", Price: 101, Delta: 1, ChangePct: 0.99, CreatedAt: base.Add(time.Hour)},
		{ID: 3, CompanyID: "co-voss", Price: 50, Delta: -0.5, ChangePct: -0.99, CreatedAt: base.Add(48 * time.Hour)},
	}}
	w := &capturingWriter{}
	a := NewArchiver(w, ticks, &fakeQuestionStore{}, testLogger())

	before := base.Add(24 * time.Hour)
	n, err := a.ArchivePriceTicks(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.Equal(t, "archive/price_ticks/2026-05.jsonl", w.path)
	assert.Equal(t, "application/x-ndjson", w.contentType)

	// The upload is newline-delimited JSON with one record per line.
	var lines int
	sc := bufio.NewScanner(bytes.NewReader(w.body))
	for sc.Scan() {
		var rec domain.PriceTick
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		lines++
	}
	assert.Equal(t, 2, lines)

	// Deletion is bounded by the newest uploaded row, not the caller cutoff.
	require.Len(t, ticks.deleted, 1)
	assert.True(t, ticks.deleted[0].After(base.Add(time.Hour)))
	assert.False(t, ticks.deleted[0].After(before))
}

func TestArchivePriceTicksEmpty(t *testing.T) {
	w := &capturingWriter{}
	a := NewArchiver(w, &fakeTickStore{}, &fakeQuestionStore{}, testLogger())

	n, err := a.ArchivePriceTicks(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, w.path, "nothing should be uploaded for an empty batch")
}

func TestArchivePriceTicksUploadFailureKeepsRows(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	ticks := &fakeTickStore{ticks: []domain.PriceTick{
		{ID: 1, CompanyID: "co-vane", Price: 100, CreatedAt: base},
	}}
	w := &capturingWriter{err: errors.New("bucket gone")}
	a := NewArchiver(w, ticks, &fakeQuestionStore{}, testLogger())

	_, err := a.ArchivePriceTicks(context.Background(), time.Now())
	require.Error(t, err)
	assert.Empty(t, ticks.deleted, "rows must not be deleted when the upload fails")
}

func TestArchiveResolvedQuestions(t *testing.T) {
	resolvedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	qs := &fakeQuestionStore{questions: []domain.Question{
		{ID: "q1", Seq: 1, Text: "old", Status: domain.QuestionStatusResolved, ResolvedAt: &resolvedAt},
	}}
	w := &capturingWriter{}
	a := NewArchiver(w, &fakeTickStore{}, qs, testLogger())

	n, err := a.ArchiveResolvedQuestions(context.Background(), resolvedAt.Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, "archive/questions/2026-04.jsonl", w.path)
}
