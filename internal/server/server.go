// Package server exposes the tracking adapter over HTTP: status and joint
// queries, channel and event management, the MJPEG color stream and a
// live joints WebSocket feed.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/angika/internal/adapter"
	"github.com/ayusman/angika/internal/joint"
	"github.com/ayusman/angika/internal/server/api"
	"github.com/ayusman/angika/internal/store"
)

// Config holds the server configuration. Adapter is required; Store
// enables the channel and event endpoints, StaticDir the bundled UI.
type Config struct {
	StaticDir string
	Store     *store.Store
	Adapter   *adapter.Adapter
}

// Server is the HTTP control surface for the tracking adapter.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/joints", s.handleJoints)
	s.mux.HandleFunc("/api/camera", s.handleCamera)

	if s.config.Store != nil {
		channels := api.NewChannelHandler(s.config.Store, s.config.Adapter.ChannelNames())
		s.mux.Handle("/api/channels", channels)
		s.mux.Handle("/api/channels/", channels)
		s.mux.Handle("/api/events", api.NewEventHandler(s.config.Store))
	}

	s.mux.Handle("/api/stream", NewStreamHandler(s.config.Adapter.Session()))
	s.mux.Handle("/api/joints/live", NewJointsFeedHandler(s.config.Adapter.Session()))

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session := s.config.Adapter.Session()
	width, height := session.ImageSize()
	writeJSON(w, http.StatusOK, map[string]any{
		"state":           session.State().String(),
		"deviceStatus":    session.DeviceStatus().String(),
		"initialized":     session.IsInitialized(),
		"skeletonTracked": session.IsSkeletonTracked(),
		"cameraEnabled":   session.CameraEnabled(),
		"frameSequence":   session.FrameSequence(),
		"imageWidth":      width,
		"imageHeight":     height,
	})
}

type jointResponse struct {
	Role        string     `json:"role"`
	Position    joint.Vec3 `json:"position"`
	Orientation joint.Quat `json:"orientation"`
	State       string     `json:"state"`
	Image       [2]float64 `json:"image"`
}

// handleJoints returns the current joint samples with their image-space
// projections. Unprojectable joints carry the (-1,-1) sentinel.
func (s *Server) handleJoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session := s.config.Adapter.Session()
	tracked := session.TrackedJoints()
	joints := make([]jointResponse, 0, len(tracked))
	for _, tj := range tracked {
		x, y := session.MapCoordinate(tj.Position)
		joints = append(joints, jointResponse{
			Role:        tj.Role.String(),
			Position:    tj.Position,
			Orientation: tj.Orientation,
			State:       tj.State.String(),
			Image:       [2]float64{x, y},
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tracked": session.IsSkeletonTracked(),
		"joints":  joints,
	})
}

type cameraRequest struct {
	Enabled bool `json:"enabled"`
}

// handleCamera reads or toggles color capture. The toggle is persisted
// when a store is configured.
func (s *Server) handleCamera(w http.ResponseWriter, r *http.Request) {
	session := s.config.Adapter.Session()

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"enabled": session.CameraEnabled()})
	case http.MethodPut:
		var req cameraRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		session.SetCameraEnabled(req.Enabled)
		if s.config.Store != nil {
			s.config.Store.Settings().SetBool(store.SettingCameraEnabled, req.Enabled)
		}
		writeJSON(w, http.StatusOK, map[string]any{"enabled": req.Enabled})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
