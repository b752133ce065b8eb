package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/angika/internal/joint"
	"github.com/ayusman/angika/internal/sensor"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local UI only
	},
}

const feedInterval = 66 * time.Millisecond // ~15 FPS

// JointsFeedHandler broadcasts the live joint snapshot over WebSocket.
type JointsFeedHandler struct {
	session *sensor.Session
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

// NewJointsFeedHandler creates the handler and starts its broadcast loop.
func NewJointsFeedHandler(session *sensor.Session) *JointsFeedHandler {
	h := &JointsFeedHandler{
		session: session,
		clients: make(map[*websocket.Conn]bool),
	}
	go h.broadcast()
	return h
}

// ServeHTTP upgrades the connection and keeps it registered until the
// client goes away.
func (h *JointsFeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

type feedJoint struct {
	Role     string     `json:"role"`
	Position joint.Vec3 `json:"position"`
	State    string     `json:"state"`
	Image    [2]float64 `json:"image"`
}

// broadcast pushes joint frames to every client. Only new snapshots are
// sent; a stalled acquisition loop produces a quiet feed, not repeats.
func (h *JointsFeedHandler) broadcast() {
	ticker := time.NewTicker(feedInterval)
	defer ticker.Stop()

	var lastSeq uint64
	for range ticker.C {
		h.mu.RLock()
		idle := len(h.clients) == 0
		h.mu.RUnlock()
		if idle {
			continue
		}

		seq := h.session.FrameSequence()
		if seq == lastSeq {
			continue
		}
		lastSeq = seq

		tracked := h.session.TrackedJoints()
		joints := make([]feedJoint, 0, len(tracked))
		for _, tj := range tracked {
			x, y := h.session.MapCoordinate(tj.Position)
			joints = append(joints, feedJoint{
				Role:     tj.Role.String(),
				Position: tj.Position,
				State:    tj.State.String(),
				Image:    [2]float64{x, y},
			})
		}

		msg, _ := json.Marshal(map[string]any{
			"tracked":   h.session.IsSkeletonTracked(),
			"joints":    joints,
			"timestamp": time.Now().UnixMilli(),
		})

		h.mu.RLock()
		for conn := range h.clients {
			conn.WriteMessage(websocket.TextMessage, msg)
		}
		h.mu.RUnlock()
	}
}
