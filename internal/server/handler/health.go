package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	pinger domain.Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler. pinger may be nil, in which case
// the check reports liveness only.
func NewHealthHandler(pinger domain.Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{pinger: pinger, logger: logger}
}

// HealthCheck responds with a JSON status. When a pinger is configured the
// store connection is verified too and a failure downgrades the status.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "health check store ping failed",
				slog.String("error", err.Error()),
			)
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
