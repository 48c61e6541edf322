package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"starfall-server/internal/galaxy"
	"starfall-server/internal/middleware"
	"starfall-server/internal/player"
	"starfall-server/internal/shared/errors"
	"starfall-server/internal/shared/response"
)

type StarHandler struct {
	service *galaxy.Service
	players *player.Service
}

func NewStarHandler(service *galaxy.Service, players *player.Service) *StarHandler {
	return &StarHandler{service: service, players: players}
}

type mapResponse struct {
	Stars     []galaxy.Star      `json:"stars"`
	Wormholes []galaxy.Wormhole  `json:"wormholes"`
	States    []galaxy.StarState `json:"states"`
}

// GetMap returns the game's full map: stars, wormholes, and per-star state.
func (h *StarHandler) GetMap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_map")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID, err := pathID(r, "id")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	stars, err := h.service.GetStarsByGame(ctx, gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	wormholes, err := h.service.GetWormholesByGame(ctx, gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	states, err := h.service.ListStarStates(ctx, gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.JSON(w, http.StatusOK, mapResponse{
		Stars:     stars,
		Wormholes: wormholes,
		States:    states,
	})
}

func (h *StarHandler) StandingOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "standing_orders")

	gameID, err := pathID(r, "id")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	starID, err := pathID(r, "starID")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		standing, err := h.service.GetStandingOrders(ctx, gameID, starID)
		if err != nil {
			response.Error(w, r, logger, err)
			return
		}
		response.JSON(w, http.StatusOK, standing)

	case http.MethodPut:
		if err := h.authorizeOwner(r, gameID, starID); err != nil {
			response.Error(w, r, logger, err)
			return
		}
		var standing galaxy.StandingOrders
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		if err := json.NewDecoder(r.Body).Decode(&standing); err != nil {
			response.Error(w, r, logger, errors.Validation("invalid JSON in request body"))
			return
		}
		if err := h.service.SetStandingOrders(ctx, gameID, starID, standing); err != nil {
			response.Error(w, r, logger, err)
			return
		}
		response.JSON(w, http.StatusOK, standing)

	case http.MethodDelete:
		if err := h.authorizeOwner(r, gameID, starID); err != nil {
			response.Error(w, r, logger, err)
			return
		}
		if err := h.service.ClearStandingOrders(ctx, gameID, starID); err != nil {
			response.Error(w, r, logger, err)
			return
		}
		response.JSON(w, http.StatusOK, map[string]string{"status": "cleared"})

	default:
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
	}
}

// authorizeOwner rejects standing-order changes from anyone but the star's
// current owner.
func (h *StarHandler) authorizeOwner(r *http.Request, gameID, starID int) error {
	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		return errors.Unauthorized("authentication required")
	}

	ctx := r.Context()
	p, err := h.players.GetPlayerByUserAndGame(ctx, gameID, claims.UserID)
	if err != nil {
		return err
	}
	if p == nil {
		return errors.Forbidden("you are not a player in this game")
	}

	state, err := h.service.GetStarState(ctx, gameID, starID)
	if err != nil {
		return err
	}
	if state.OwnerID == nil || *state.OwnerID != p.ID {
		return errors.Forbidden("only the star's current owner may change standing orders")
	}
	return nil
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
