package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"starfall-server/internal/game"
	"starfall-server/internal/galaxy"
	"starfall-server/internal/middleware"
	"starfall-server/internal/player"
	"starfall-server/internal/shared/errors"
	"starfall-server/internal/shared/response"
)

type GameHandler struct {
	service *game.Service
}

func NewGameHandler(service *game.Service) *GameHandler {
	return &GameHandler{service: service}
}

type createGameRequest struct {
	game.GameConfig
	Topology galaxy.Topology `json:"topology"`
}

func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "create_game")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req createGameRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.Validation("invalid JSON in request body"))
		return
	}

	if claims := middleware.GetUserFromContext(r); claims != nil && req.OwnerUserID == nil {
		req.OwnerUserID = &claims.UserID
	}

	createdGame, err := h.service.CreateGame(ctx, req.GameConfig, req.Topology)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, createdGame)
}

func (h *GameHandler) GetGames(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_games")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	games, err := h.service.GetAllGames(ctx)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if games == nil {
		games = []game.Game{}
	}

	response.JSON(w, http.StatusOK, games)
}

func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_game")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID, err := pathID(r, "id")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	g, err := h.service.GetGameByID(ctx, gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.JSON(w, http.StatusOK, g)
}

type joinGameRequest struct {
	Name     string            `json:"name"`
	Color    string            `json:"color"`
	Country  string            `json:"country"`
	Type     player.PlayerType `json:"type"`
	Metadata player.Metadata   `json:"metadata"`
}

func (h *GameHandler) JoinGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "join_game")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID, err := pathID(r, "id")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var req joinGameRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.Validation("invalid JSON in request body"))
		return
	}
	if req.Type == "" {
		req.Type = player.PlayerTypeHuman
	}

	var userID *int
	if claims := middleware.GetUserFromContext(r); claims != nil {
		userID = &claims.UserID
	}

	p, err := h.service.JoinGame(ctx, gameID, userID, req.Name, req.Color, req.Country, req.Type, req.Metadata)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, p)
}

func (h *GameHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "start_game")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID, err := pathID(r, "id")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	g, err := h.service.StartGame(ctx, gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.JSON(w, http.StatusOK, g)
}

// DeleteGame removes a game and everything cascading from it. Routed behind
// the admin middleware.
func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "delete_game")

	if r.Method != http.MethodDelete {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID, err := pathID(r, "id")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if err := h.service.DeleteGame(ctx, gameID); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func pathID(r *http.Request, name string) (int, error) {
	raw := r.PathValue(name)
	if raw == "" {
		return 0, errors.Validationf("%s is required", name)
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, errors.Validationf("invalid %s format", name)
	}
	return id, nil
}
