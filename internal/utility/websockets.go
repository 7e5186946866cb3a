package utility

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Upgrader upgrades /ws requests. The page is served from the same origin.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeWait = 5 * time.Second

// StatusEvent tells the UI that a model call started or finished.
type StatusEvent struct {
	Feature string `json:"feature"`
	State   string `json:"state"` // "pending" or "complete"
	OK      *bool  `json:"ok,omitempty"`
}

// Hub holds one status socket per session: Map[SessionID] -> Connection
type Hub struct {
	mu      sync.Mutex
	clients map[string]*websocket.Conn
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*websocket.Conn)}
}

// RegisterClient attaches conn to a session, closing any socket it replaces.
func (h *Hub) RegisterClient(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[sessionID]; ok && old != conn {
		old.Close()
	}
	h.clients[sessionID] = conn
	log.Debug().Str("session_id", sessionID).Msg("WebSocket Client Connected")
}

// UnregisterClient drops the session's socket if it is still conn.
func (h *Hub) UnregisterClient(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.clients[sessionID]; ok && current == conn {
		delete(h.clients, sessionID)
		log.Debug().Str("session_id", sessionID).Msg("WebSocket Client Disconnected")
	}
}

// Notify pushes an event to the session's socket, if any.
func (h *Hub) Notify(sessionID string, event StatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.clients[sessionID]
	if !ok {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(event); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to send WS message, removing client")
		conn.Close()
		delete(h.clients, sessionID)
	}
}
