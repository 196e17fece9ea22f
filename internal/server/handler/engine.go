package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/babylonsim/internal/engine"
)

// EngineHandler exposes the tick scheduler's status and manual controls.
type EngineHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewEngineHandler creates an EngineHandler.
func NewEngineHandler(eng *engine.Engine, logger *slog.Logger) *EngineHandler {
	return &EngineHandler{
		engine: eng,
		logger: logHandler(logger, "engine"),
	}
}

// GetStatus returns the engine's runtime snapshot.
// GET /api/engine/status
func (h *EngineHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Status())
}

// TriggerTick runs one tick immediately. If a scheduled tick is already in
// flight the call is still accepted; the overlap guard skips the extra pass.
// POST /api/engine/tick
func (h *EngineHandler) TriggerTick(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "manual tick triggered")
	h.engine.Tick(r.Context())
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "tick executed",
		"state":  h.engine.Status(),
	})
}
