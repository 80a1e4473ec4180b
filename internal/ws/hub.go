// Package ws broadcasts message state changes to connected dashboard
// clients over websockets.
package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"alert-dispatch-service/internal/delivery"
	"alert-dispatch-service/internal/logging"
)

// Hub tracks open connections and fans delivery events out to them.
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]bool
	logger *logging.Logger
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{conns: make(map[*websocket.Conn]bool), logger: logger}
}

// Add registers a connection.
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = true
	h.logger.Infof("websocket client connected (total: %d)", len(h.conns))
}

// Remove drops a connection.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[conn] {
		delete(h.conns, conn)
		h.logger.Infof("websocket client disconnected (remaining: %d)", len(h.conns))
	}
}

// Publish sends a state event to every client, dropping the ones whose
// writes fail. Implements delivery.EventSink.
func (h *Hub) Publish(ev delivery.StateEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.Errorf("websocket write failed, dropping client: %v", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}
