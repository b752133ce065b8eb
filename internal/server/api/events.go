package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/angika/internal/store"
)

const defaultEventLimit = 50

// EventHandler serves the trigger event log at /api/events.
type EventHandler struct {
	store *store.Store
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{store: s}
}

type eventResponse struct {
	ID        string `json:"id"`
	Channel   string `json:"channel"`
	CreatedAt string `json:"createdAt"`
}

// ServeHTTP handles GET (list recent) and DELETE (prune old) requests.
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodDelete:
		h.prune(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// list handles GET /api/events?limit=N, newest first.
func (h *EventHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := h.store.Events().ListRecent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{
			ID:        e.ID,
			Channel:   e.Channel,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

// prune handles DELETE /api/events?before=RFC3339 and removes events
// older than the cutoff.
func (h *EventHandler) prune(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("before")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "before query parameter is required")
		return
	}
	cutoff, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "before must be an RFC 3339 timestamp")
		return
	}

	removed, err := h.store.Events().Prune(cutoff)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to prune events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}
