package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/babylonsim/internal/amm"
	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// MarketHandler serves binary-market endpoints.
type MarketHandler struct {
	markets domain.MarketStore
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets domain.MarketStore, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logHandler(logger, "markets"),
	}
}

// marketView is the API representation of a market and its implied odds.
type marketView struct {
	ID         string  `json:"id"`
	QuestionID string  `json:"question_id"`
	YesShares  float64 `json:"yes_shares"`
	NoShares   float64 `json:"no_shares"`
	YesPrice   float64 `json:"yes_price"`
	NoPrice    float64 `json:"no_price"`
}

func buildMarketView(m domain.Market) (marketView, error) {
	yes, err := amm.Price(domain.SideYes, m.YesShares, m.NoShares)
	if err != nil {
		return marketView{}, err
	}
	return marketView{
		ID:         m.ID,
		QuestionID: m.QuestionID,
		YesShares:  m.YesShares,
		NoShares:   m.NoShares,
		YesPrice:   yes,
		NoPrice:    1 - yes,
	}, nil
}

// GetMarket returns the market tied to a question.
// GET /api/markets/{question_id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	questionID := pathParam(r, "question_id")

	m, err := h.markets.GetByQuestion(r.Context(), questionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get market failed",
			slog.String("question_id", questionID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get market")
		return
	}

	view, err := buildMarketView(m)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "market has invalid reserves")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// buyRequest is the body for a market buy.
type buyRequest struct {
	Side   string  `json:"side"`
	Amount float64 `json:"amount"`
}

// Buy executes a constant-product buy against the market and persists the
// updated reserves.
// POST /api/markets/{question_id}/buy
func (h *MarketHandler) Buy(w http.ResponseWriter, r *http.Request) {
	questionID := pathParam(r, "question_id")

	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	side := domain.Side(req.Side)
	if side != domain.SideYes && side != domain.SideNo {
		writeError(w, http.StatusBadRequest, "side must be \"yes\" or \"no\"")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	m, err := h.markets.GetByQuestion(r.Context(), questionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get market failed",
			slog.String("question_id", questionID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get market")
		return
	}

	quote, err := amm.Buy(m.YesShares, m.NoShares, side, req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.markets.UpdateReserves(r.Context(), m.ID, quote.NewYesShares, quote.NewNoShares); err != nil {
		h.logger.ErrorContext(r.Context(), "update reserves failed",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to update market")
		return
	}

	writeJSON(w, http.StatusOK, quote)
}
