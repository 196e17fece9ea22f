package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/babylonsim/internal/domain"
)

// FeedHandler serves the narrative feed: world events and posts.
type FeedHandler struct {
	events domain.EventStore
	posts  domain.PostStore
	logger *slog.Logger
}

// NewFeedHandler creates a FeedHandler.
func NewFeedHandler(events domain.EventStore, posts domain.PostStore, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{
		events: events,
		posts:  posts,
		logger: logHandler(logger, "feed"),
	}
}

// ListEvents returns recent world events, or all events for a given day when
// the "day" query parameter is set.
// GET /api/events
func (h *FeedHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if v := r.URL.Query().Get("day"); v != "" {
		day, err := strconv.Atoi(v)
		if err != nil || day < 1 {
			writeError(w, http.StatusBadRequest, "day must be a positive integer")
			return
		}
		events, err := h.events.ListByDay(r.Context(), day)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "list events by day failed",
				slog.Int("day", day),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to list events")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": events})
		return
	}

	opts := parseListOpts(r)
	events, err := h.events.ListRecent(r.Context(), opts.Limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list recent events failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// ListPosts returns recent posts.
// GET /api/posts
func (h *FeedHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	posts, err := h.posts.ListRecent(r.Context(), opts.Limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list posts failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}
