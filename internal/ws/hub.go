// Package ws pushes JSON notification frames to connected users.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/finvault/walletd/internal/logger"
)

// Hub tracks open connections per user. A user may hold several
// connections (multiple tabs), every one receives each frame.
type Hub struct {
	logger logger.Logger

	mu    sync.Mutex
	conns map[uuid.UUID]map[*websocket.Conn]struct{}
}

func NewHub(l logger.Logger) *Hub {
	return &Hub{
		logger: l,
		conns:  make(map[uuid.UUID]map[*websocket.Conn]struct{}),
	}
}

func (h *Hub) Register(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[userID][conn] = struct{}{}
}

func (h *Hub) Unregister(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns[userID], conn)
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

// Push sends v as one JSON frame to every connection of the user.
// Dead connections are dropped on write failure. Missing no one is
// fine here: the socket is a best-effort mirror of the event stream.
func (h *Hub) Push(userID uuid.UUID, v any) {
	frame, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("Failed to marshal notification frame", "user_id", userID, "error", err)
		return
	}

	// Writes happen under the hub lock: gorilla connections do not
	// allow concurrent writers
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns[userID] {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			h.logger.Debug("Dropping dead websocket connection", "user_id", userID, "error", err)
			_ = conn.Close()
			delete(h.conns[userID], conn)
		}
	}
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

// ConnectionCount reports open connections for the user
func (h *Hub) ConnectionCount(userID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.conns[userID])
}
