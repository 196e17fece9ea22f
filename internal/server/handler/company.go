package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// CompanyHandler serves company and price-history endpoints.
type CompanyHandler struct {
	companies domain.CompanyStore
	cache     domain.PriceCache // optional
	logger    *slog.Logger
}

// NewCompanyHandler creates a CompanyHandler. cache may be nil; when present
// it serves the latest prices without touching the database.
func NewCompanyHandler(companies domain.CompanyStore, cache domain.PriceCache, logger *slog.Logger) *CompanyHandler {
	return &CompanyHandler{
		companies: companies,
		cache:     cache,
		logger:    logHandler(logger, "companies"),
	}
}

// ListCompanies returns every company with its current price. When the price
// cache is available, cached values override the persisted snapshot.
// GET /api/companies
func (h *CompanyHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companies.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list companies failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list companies")
		return
	}

	if h.cache != nil && len(companies) > 0 {
		ids := make([]string, 0, len(companies))
		for _, c := range companies {
			ids = append(ids, c.ID)
		}
		if cached, err := h.cache.GetPrices(r.Context(), ids); err == nil {
			for i := range companies {
				if p, ok := cached[companies[i].ID]; ok {
					companies[i].CurrentPrice = p
				}
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"companies": companies})
}

// GetCompany returns a single company.
// GET /api/companies/{id}
func (h *CompanyHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	c, err := h.companies.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "company not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get company failed",
			slog.String("company_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get company")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// ListTicks returns a company's price history.
// GET /api/companies/{id}/ticks
func (h *CompanyHandler) ListTicks(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	opts := parseListOpts(r)

	ticks, err := h.companies.ListTicks(r.Context(), id, opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list price ticks failed",
			slog.String("company_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list price history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ticks": ticks})
}
