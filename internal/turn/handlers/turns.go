package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"starfall-server/internal/middleware"
	"starfall-server/internal/player"
	"starfall-server/internal/shared/errors"
	"starfall-server/internal/shared/response"
	"starfall-server/internal/turn"
)

type TurnHandler struct {
	turns   *turn.Service
	players *player.Service
}

func NewTurnHandler(turns *turn.Service, players *player.Service) *TurnHandler {
	return &TurnHandler{turns: turns, players: players}
}

type endTurnRequest struct {
	PlayerID int `json:"player_id"`
}

// EndTurn finalizes the player's drafts and marks them waiting. The response
// says whether that ended the whole turn.
func (h *TurnHandler) EndTurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "end_turn")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID, err := pathID(r, "id")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var req endTurnRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.Validation("invalid JSON in request body"))
		return
	}
	if req.PlayerID <= 0 {
		response.Error(w, r, logger, errors.Validation("player_id is required"))
		return
	}

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}
	p, err := h.players.GetPlayerByUserAndGame(ctx, gameID, claims.UserID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if p == nil || p.ID != req.PlayerID {
		response.Error(w, r, logger, errors.Forbidden("player does not belong to the authenticated user"))
		return
	}

	result, err := h.turns.EndPlayerTurn(ctx, gameID, req.PlayerID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}

func (h *TurnHandler) GetOpenTurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_open_turn")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID, err := pathID(r, "id")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	open, err := h.turns.GetOpenTurn(ctx, gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.JSON(w, http.StatusOK, open)
}

func (h *TurnHandler) ListTurns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "list_turns")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID, err := pathID(r, "id")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	turns, err := h.turns.ListTurns(ctx, gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if turns == nil {
		turns = []turn.Turn{}
	}

	response.JSON(w, http.StatusOK, turns)
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
