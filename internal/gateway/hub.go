// Package gateway delivers pipeline events to connected clients. Sessions
// attach over a websocket keyed by user id; events reach every replica's
// sessions through a Redis pub/sub bridge.
package gateway

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 45 * time.Second
	maxMessageSize = 512
)

// Event is the frame sent to clients.
type Event struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Hub tracks the websocket sessions per user and broadcasts events to them.
// Delivery is best-effort: no session, no error.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*session]struct{}

	upgrader websocket.Upgrader
	log      zerolog.Logger
}

type session struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub constructs an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]map[*session]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Token auth happens upstream; the gateway itself is origin
			// agnostic.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// ServeWS upgrades the connection and subscribes it under the userId query
// parameter.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	s := &session{conn: conn, send: make(chan []byte, 16)}
	h.add(userID, s)
	h.log.Debug().Str("user_id", userID).Msg("session connected")

	go s.writePump()
	go func() {
		s.readPump()
		h.remove(userID, s)
		h.log.Debug().Str("user_id", userID).Msg("session disconnected")
	}()
}

// Emit sends the event to every session of the user. Sessions that cannot
// keep up are dropped rather than blocking the pipeline.
func (h *Hub) Emit(userID string, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error().Err(err).Msg("marshal gateway event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.sessions[userID] {
		select {
		case s.send <- data:
		default:
			h.log.Warn().Str("user_id", userID).Msg("session send buffer full, dropping event")
		}
	}
}

// Sessions reports how many sessions a user currently has.
func (h *Hub) Sessions(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

func (h *Hub) add(userID string, s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.sessions[userID]
	if !ok {
		set = make(map[*session]struct{})
		h.sessions[userID] = set
	}
	set[s] = struct{}{}
}

func (h *Hub) remove(userID string, s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.sessions[userID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.sessions, userID)
		}
	}
	close(s.send)
}

// readPump consumes client frames until the peer goes away. Clients are not
// expected to send anything meaningful; this exists to process control frames
// and detect closes.
func (s *session) readPump() {
	defer s.conn.Close()
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the session's single writer goroutine.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case data, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
