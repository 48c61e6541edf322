package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"starfall-server/internal/notify"
	"starfall-server/internal/shared/config"
	"starfall-server/internal/shared/errors"
	"starfall-server/internal/shared/response"
)

// SubscribeHandler upgrades the connection to a websocket and streams turn
// resolution notifications for one game.
type SubscribeHandler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
}

func NewSubscribeHandler(hub *notify.Hub) *SubscribeHandler {
	frontend := config.GlobalConfig.Frontend.URL

	return &SubscribeHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == frontend
			},
		},
	}
}

func (h *SubscribeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "subscribe")

	gameIDStr := r.PathValue("id")
	gameID, err := strconv.Atoi(gameIDStr)
	if err != nil || gameID <= 0 {
		response.Error(w, r, logger, errors.Validation("invalid game ID format"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", "error", err)
		return
	}

	h.hub.Subscribe(gameID, conn)
	logger.Debug("Websocket subscriber connected", "game_id", gameID)

	// The read loop only exists to notice the peer going away; subscribers
	// never send anything we act on.
	go func() {
		defer func() {
			h.hub.Unsubscribe(gameID, conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
