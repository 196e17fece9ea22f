package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/babylonsim/internal/amm"
	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// QuestionHandler serves prediction-question endpoints.
type QuestionHandler struct {
	questions domain.QuestionStore
	markets   domain.MarketStore
	logger    *slog.Logger
}

// NewQuestionHandler creates a QuestionHandler.
func NewQuestionHandler(questions domain.QuestionStore, markets domain.MarketStore, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questions: questions,
		markets:   markets,
		logger:    logHandler(logger, "questions"),
	}
}

// questionView is the API representation of a question. The predetermined
// outcome is deliberately omitted for active questions so clients cannot
// peek at the settlement.
type questionView struct {
	ID         string     `json:"id"`
	Seq        int64      `json:"seq"`
	Text       string     `json:"text"`
	Status     string     `json:"status"`
	Outcome    *bool      `json:"outcome,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvesAt time.Time  `json:"resolves_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	YesPrice   *float64   `json:"yes_price,omitempty"`
	NoPrice    *float64   `json:"no_price,omitempty"`
}

func (h *QuestionHandler) view(r *http.Request, q domain.Question) questionView {
	v := questionView{
		ID:         q.ID,
		Seq:        q.Seq,
		Text:       q.Text,
		Status:     string(q.Status),
		CreatedAt:  q.CreatedAt,
		ResolvesAt: q.ResolvesAt,
		ResolvedAt: q.ResolvedAt,
	}
	if q.Status == domain.QuestionStatusResolved {
		outcome := q.Outcome
		v.Outcome = &outcome
	}

	m, err := h.markets.GetByQuestion(r.Context(), q.ID)
	if err == nil {
		if yes, perr := amm.Price(domain.SideYes, m.YesShares, m.NoShares); perr == nil {
			no := 1 - yes
			v.YesPrice = &yes
			v.NoPrice = &no
		}
	}
	return v
}

// ListQuestions returns active questions with their current market odds.
// GET /api/questions
func (h *QuestionHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	questions, err := h.questions.ListActive(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list questions failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list questions")
		return
	}

	views := make([]questionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, h.view(r, q))
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": views})
}

// GetQuestion returns a single question by ID.
// GET /api/questions/{id}
func (h *QuestionHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	q, err := h.questions.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "question not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get question failed",
			slog.String("question_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get question")
		return
	}

	writeJSON(w, http.StatusOK, h.view(r, q))
}
