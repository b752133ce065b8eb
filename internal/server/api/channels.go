// Package api provides the JSON HTTP handlers for the tracking adapter's
// control surface: gesture channel bindings and the trigger event log.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/angika/internal/store"
)

// ChannelHandler serves /api/channels and /api/channels/{name}.
type ChannelHandler struct {
	store *store.Store

	// known lists the channel names the adapter evaluates, so the list
	// endpoint can report channels that have no stored row yet.
	known []string
}

// NewChannelHandler creates a ChannelHandler. known is the full set of
// channel names the adapter evaluates.
func NewChannelHandler(s *store.Store, known []string) *ChannelHandler {
	return &ChannelHandler{store: s, known: known}
}

type channelResponse struct {
	Name       string          `json:"name"`
	Enabled    bool            `json:"enabled"`
	PluginName string          `json:"pluginName,omitempty"`
	ActionName string          `json:"actionName,omitempty"`
	Config     json.RawMessage `json:"config,omitempty"`
	UpdatedAt  string          `json:"updatedAt,omitempty"`
}

type updateChannelRequest struct {
	Enabled    *bool           `json:"enabled"`
	PluginName *string         `json:"pluginName"`
	ActionName *string         `json:"actionName"`
	Config     json.RawMessage `json:"config"`
}

func channelToResponse(c *store.Channel) channelResponse {
	resp := channelResponse{
		Name:       c.Name,
		Enabled:    c.Enabled,
		PluginName: c.PluginName,
		ActionName: c.ActionName,
		Config:     c.Config,
	}
	if !c.UpdatedAt.IsZero() {
		resp.UpdatedAt = c.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

// ServeHTTP routes collection and item requests.
func (h *ChannelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/channels")
	name = strings.Trim(name, "/")

	if name == "" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.list(w)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, name)
	case http.MethodPut:
		h.update(w, r, name)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// list returns every known channel. Channels with no stored row appear
// with their defaults: enabled and unbound.
func (h *ChannelHandler) list(w http.ResponseWriter) {
	stored, err := h.store.Channels().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list channels")
		return
	}
	byName := make(map[string]*store.Channel, len(stored))
	for _, c := range stored {
		byName[c.Name] = c
	}

	channels := make([]channelResponse, 0, len(h.known))
	for _, name := range h.known {
		if c, ok := byName[name]; ok {
			channels = append(channels, channelToResponse(c))
			continue
		}
		channels = append(channels, channelResponse{Name: name, Enabled: true})
	}

	writeJSON(w, http.StatusOK, map[string]any{"channels": channels})
}

func (h *ChannelHandler) isKnown(name string) bool {
	for _, n := range h.known {
		if n == name {
			return true
		}
	}
	return false
}

func (h *ChannelHandler) get(w http.ResponseWriter, name string) {
	c, err := h.store.Channels().Get(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if h.isKnown(name) {
				writeJSON(w, http.StatusOK, channelResponse{Name: name, Enabled: true})
				return
			}
			writeError(w, http.StatusNotFound, "channel not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get channel")
		return
	}
	writeJSON(w, http.StatusOK, channelToResponse(c))
}

// update upserts a channel binding. Absent fields keep their current
// values.
func (h *ChannelHandler) update(w http.ResponseWriter, r *http.Request, name string) {
	if !h.isKnown(name) {
		writeError(w, http.StatusNotFound, "channel not found")
		return
	}

	var req updateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Config) > 0 && !json.Valid(req.Config) {
		writeError(w, http.StatusBadRequest, "config must be valid JSON")
		return
	}

	current, err := h.store.Channels().Get(name)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "failed to get channel")
			return
		}
		current = &store.Channel{Name: name, Enabled: true}
	}

	if req.Enabled != nil {
		current.Enabled = *req.Enabled
	}
	if req.PluginName != nil {
		current.PluginName = *req.PluginName
	}
	if req.ActionName != nil {
		current.ActionName = *req.ActionName
	}
	if len(req.Config) > 0 {
		current.Config = req.Config
	}

	if err := h.store.Channels().Upsert(current); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update channel")
		return
	}
	writeJSON(w, http.StatusOK, channelToResponse(current))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
