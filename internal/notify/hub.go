package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub pushes turn resolutions to websocket subscribers, keyed by game.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[int]map[*websocket.Conn]bool
	logger      *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[int]map[*websocket.Conn]bool),
		logger:      logger,
	}
}

func (h *Hub) Subscribe(gameID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[gameID] == nil {
		h.subscribers[gameID] = make(map[*websocket.Conn]bool)
	}
	h.subscribers[gameID][conn] = true

	h.logger.Debug("Websocket subscriber added",
		"component", "notify_hub",
		"game_id", gameID,
		"subscribers", len(h.subscribers[gameID]))
}

func (h *Hub) Unsubscribe(gameID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns := h.subscribers[gameID]; conns != nil {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.subscribers, gameID)
		}
	}
}

// TurnResolved writes the resolution to every subscriber of the game.
// Connections that fail to take the write are dropped from the hub; the
// read loop owning the connection handles the actual close.
func (h *Hub) TurnResolved(ctx context.Context, resolution TurnResolution) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subscribers[resolution.GameID]))
	for conn := range h.subscribers[resolution.GameID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	var failed []*websocket.Conn
	for _, conn := range conns {
		if err := conn.WriteJSON(resolution); err != nil {
			h.logger.Warn("Failed to push turn resolution to subscriber",
				"component", "notify_hub",
				"game_id", resolution.GameID,
				"error", err)
			failed = append(failed, conn)
		}
	}

	for _, conn := range failed {
		h.Unsubscribe(resolution.GameID, conn)
	}
}
