package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/babylonsim/internal/domain"
	"github.com/alanyoungcy/babylonsim/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedQuestion(t *testing.T, qs *memory.QuestionStore, ms *memory.MarketStore, id string, resolved bool) domain.Question {
	t.Helper()
	now := time.Now().UTC()
	seq, err := qs.NextSeq(context.Background())
	require.NoError(t, err)

	q := domain.Question{
		ID:         id,
		Seq:        seq,
		Text:       "Will Vane Holdings announce a merger this week?",
		Outcome:    true,
		Status:     domain.QuestionStatusActive,
		CreatedAt:  now,
		ResolvesAt: now.Add(24 * time.Hour),
	}
	require.NoError(t, qs.Create(context.Background(), q))
	require.NoError(t, ms.Create(context.Background(), domain.Market{
		ID:         "m-" + id,
		QuestionID: id,
		YesShares:  500,
		NoShares:   500,
		CreatedAt:  now,
		UpdatedAt:  now,
	}))

	if resolved {
		require.NoError(t, qs.Resolve(context.Background(), id, now))
		q.Status = domain.QuestionStatusResolved
	}
	return q
}

func TestListQuestions(t *testing.T) {
	qs := memory.NewQuestionStore()
	ms := memory.NewMarketStore()
	seedQuestion(t, qs, ms, "q1", false)
	seedQuestion(t, qs, ms, "q2", false)

	h := NewQuestionHandler(qs, ms, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/questions", nil)
	rec := httptest.NewRecorder()
	h.ListQuestions(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Questions []questionView `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Questions, 2)

	for _, v := range body.Questions {
		assert.Nil(t, v.Outcome, "active questions must not expose the outcome")
		require.NotNil(t, v.YesPrice)
		assert.InDelta(t, 0.5, *v.YesPrice, 1e-9, "fresh markets price at even odds")
	}
}

func TestGetQuestionResolvedExposesOutcome(t *testing.T) {
	qs := memory.NewQuestionStore()
	ms := memory.NewMarketStore()
	seedQuestion(t, qs, ms, "q1", true)

	h := NewQuestionHandler(qs, ms, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/questions/q1", nil)
	req.SetPathValue("id", "q1")
	rec := httptest.NewRecorder()
	h.GetQuestion(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var v questionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	require.NotNil(t, v.Outcome)
	assert.True(t, *v.Outcome)
}

func TestGetQuestionNotFound(t *testing.T) {
	h := NewQuestionHandler(memory.NewQuestionStore(), memory.NewMarketStore(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/questions/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	h.GetQuestion(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarketBuyUpdatesReserves(t *testing.T) {
	qs := memory.NewQuestionStore()
	ms := memory.NewMarketStore()
	seedQuestion(t, qs, ms, "q1", false)

	h := NewMarketHandler(ms, testLogger())

	body, _ := json.Marshal(buyRequest{Side: "yes", Amount: 100})
	req := httptest.NewRequest(http.MethodPost, "/api/markets/q1/buy", bytes.NewReader(body))
	req.SetPathValue("question_id", "q1")
	rec := httptest.NewRecorder()
	h.Buy(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var quote struct {
		SharesBought float64 `json:"shares_bought"`
		NewYesShares float64 `json:"new_yes_shares"`
		NewNoShares  float64 `json:"new_no_shares"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))

	// Depositing 100 into the YES reserve of a 500/500 pool.
	assert.InDelta(t, 600, quote.NewYesShares, 1e-6)
	assert.InDelta(t, 500.0*500.0/600.0, quote.NewNoShares, 1e-6)
	assert.Greater(t, quote.SharesBought, 0.0)

	// Persisted reserves match the quote.
	m, err := ms.GetByQuestion(context.Background(), "q1")
	require.NoError(t, err)
	assert.InDelta(t, quote.NewYesShares, m.YesShares, 1e-9)
	assert.InDelta(t, quote.NewNoShares, m.NoShares, 1e-9)
}

func TestMarketBuyRejectsBadInput(t *testing.T) {
	qs := memory.NewQuestionStore()
	ms := memory.NewMarketStore()
	seedQuestion(t, qs, ms, "q1", false)
	h := NewMarketHandler(ms, testLogger())

	cases := []struct {
		name string
		body string
	}{
		{"bad side", `{"side":"maybe","amount":10}`},
		{"zero amount", `{"side":"yes","amount":0}`},
		{"negative amount", `{"side":"no","amount":-5}`},
		{"not json", `nope`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/markets/q1/buy", bytes.NewReader([]byte(tc.body)))
			req.SetPathValue("question_id", "q1")
			rec := httptest.NewRecorder()
			h.Buy(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListCompanies(t *testing.T) {
	cs := memory.NewCompanyStore(domain.Company{
		ID: "co-vane", Name: "Vane Holdings", Ticker: "VANE",
		CurrentPrice: 142.5, InitialPrice: 142.5,
	})
	h := NewCompanyHandler(cs, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/companies", nil)
	rec := httptest.NewRecorder()
	h.ListCompanies(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Companies []domain.Company `json:"companies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Companies, 1)
	assert.Equal(t, "VANE", body.Companies[0].Ticker)
}

func TestListEventsByDayValidation(t *testing.T) {
	h := NewFeedHandler(memory.NewEventStore(), memory.NewPostStore(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/events?day=zero", nil)
	rec := httptest.NewRecorder()
	h.ListEvents(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}
