package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"starfall-server/internal/event"
	"starfall-server/internal/shared/errors"
	"starfall-server/internal/shared/response"
)

type EventHandler struct {
	repo *event.Repository
}

func NewEventHandler(repo *event.Repository) *EventHandler {
	return &EventHandler{repo: repo}
}

// ListTurnEvents returns a turn's events in seq order. With player_id set it
// narrows to events attributed to that player.
func (h *EventHandler) ListTurnEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "list_turn_events")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID, err := pathID(r, "id")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	turnID, err := pathID(r, "turnID")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var events []event.Event
	if raw := r.URL.Query().Get("player_id"); raw != "" {
		playerID, convErr := strconv.Atoi(raw)
		if convErr != nil || playerID <= 0 {
			response.Error(w, r, logger, errors.Validation("invalid player_id format"))
			return
		}
		events, err = h.repo.ListByPlayerTurn(ctx, gameID, turnID, playerID)
	} else {
		events, err = h.repo.ListByTurn(ctx, gameID, turnID)
	}
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if events == nil {
		events = []event.Event{}
	}

	response.JSON(w, http.StatusOK, events)
}

const defaultKindLimit = 50

// ListGameEvents returns a game's most recent events of one kind, newest
// first. The kind query parameter is required; limit defaults to 50.
func (h *EventHandler) ListGameEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "list_game_events")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID, err := pathID(r, "id")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	kind := event.Kind(r.URL.Query().Get("kind"))
	if kind == "" {
		response.Error(w, r, logger, errors.Validation("kind is required"))
		return
	}

	limit := defaultKindLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			response.Error(w, r, logger, errors.Validation("invalid limit format"))
			return
		}
	}

	events, err := h.repo.ListByKind(ctx, gameID, kind, limit)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if events == nil {
		events = []event.Event{}
	}

	response.JSON(w, http.StatusOK, events)
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
