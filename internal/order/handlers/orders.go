package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"starfall-server/internal/middleware"
	"starfall-server/internal/order"
	"starfall-server/internal/player"
	"starfall-server/internal/shared/errors"
	"starfall-server/internal/shared/response"
	"starfall-server/internal/turn"
)

// OrderHandler exposes draft authoring against the game's open turn.
// Clients address orders by their own client_order_id; the server resolves
// which turn is open so a request never has to carry a turn ID.
type OrderHandler struct {
	orders  *order.Service
	turns   *turn.Service
	players *player.Service
}

func NewOrderHandler(orders *order.Service, turns *turn.Service, players *player.Service) *OrderHandler {
	return &OrderHandler{orders: orders, turns: turns, players: players}
}

// authorizePlayer checks that the requested player belongs to the
// authenticated user. Drafts are private until the turn resolves, so acting
// on or reading another player's orders is forbidden.
func (h *OrderHandler) authorizePlayer(r *http.Request, gameID, playerID int) error {
	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		return errors.Unauthorized("authentication required")
	}
	p, err := h.players.GetPlayerByUserAndGame(r.Context(), gameID, claims.UserID)
	if err != nil {
		return err
	}
	if p == nil || p.ID != playerID {
		return errors.Forbidden("player does not belong to the authenticated user")
	}
	return nil
}

type draftRequest struct {
	PlayerID      int             `json:"player_id"`
	ClientOrderID string          `json:"client_order_id"`
	Type          order.Type      `json:"type"`
	Payload       json.RawMessage `json:"payload"`
}

func (req *draftRequest) decode(r *http.Request, w http.ResponseWriter) (order.Payload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return nil, errors.Validation("invalid JSON in request body")
	}
	if req.PlayerID <= 0 {
		return nil, errors.Validation("player_id is required")
	}
	payload, err := order.DecodePayload(req.Type, req.Payload)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (h *OrderHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "create_draft")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID, err := pathID(r, "id")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var req draftRequest
	payload, err := req.decode(r, w)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if req.ClientOrderID == "" {
		response.Error(w, r, logger, errors.Validation("client_order_id is required"))
		return
	}
	if err := h.authorizePlayer(r, gameID, req.PlayerID); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	open, err := h.turns.GetOpenTurn(ctx, gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	o, err := h.orders.CreateDraft(ctx, gameID, open.ID, req.PlayerID, req.ClientOrderID, payload)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.JSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) EditDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "edit_draft")

	if r.Method != http.MethodPut {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID, err := pathID(r, "id")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	clientOrderID := r.PathValue("clientOrderID")
	if clientOrderID == "" {
		response.Error(w, r, logger, errors.Validation("client order ID is required"))
		return
	}

	var req draftRequest
	payload, err := req.decode(r, w)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if err := h.authorizePlayer(r, gameID, req.PlayerID); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	open, err := h.turns.GetOpenTurn(ctx, gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	o, err := h.orders.EditDraft(ctx, gameID, open.ID, req.PlayerID, clientOrderID, payload)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.JSON(w, http.StatusOK, o)
}

func (h *OrderHandler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "delete_draft")

	if r.Method != http.MethodDelete {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID, err := pathID(r, "id")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	clientOrderID := r.PathValue("clientOrderID")
	if clientOrderID == "" {
		response.Error(w, r, logger, errors.Validation("client order ID is required"))
		return
	}
	playerID, err := queryID(r, "player_id")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if err := h.authorizePlayer(r, gameID, playerID); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	open, err := h.turns.GetOpenTurn(ctx, gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if err := h.orders.DeleteDraft(ctx, gameID, open.ID, playerID, clientOrderID); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *OrderHandler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "list_drafts")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	gameID, err := pathID(r, "id")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	playerID, err := queryID(r, "player_id")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if err := h.authorizePlayer(r, gameID, playerID); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	open, err := h.turns.GetOpenTurn(ctx, gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	drafts, err := h.orders.ListLatestDrafts(ctx, open.ID, playerID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if drafts == nil {
		drafts = []order.Order{}
	}

	response.JSON(w, http.StatusOK, drafts)
}

func (h *OrderHandler) ListFinals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "list_finals")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	turnID, err := pathID(r, "turnID")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	playerID := optionalQueryID(r, "player_id")

	finals, err := h.orders.ListFinalsByTurn(ctx, turnID, playerID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if finals == nil {
		finals = []order.Order{}
	}

	response.JSON(w, http.StatusOK, finals)
}

func (h *OrderHandler) ListDraftsForStar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "list_drafts_for_star")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

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
	playerID := optionalQueryID(r, "player_id")
	if playerID != nil {
		if err := h.authorizePlayer(r, gameID, *playerID); err != nil {
			response.Error(w, r, logger, err)
			return
		}
	} else {
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
		if p == nil {
			response.Error(w, r, logger, errors.Forbidden("you are not a player in this game"))
			return
		}
		playerID = &p.ID
	}

	open, err := h.turns.GetOpenTurn(ctx, gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	drafts, err := h.orders.ListDraftsForStar(ctx, open.ID, starID, playerID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if drafts == nil {
		drafts = []order.Order{}
	}

	response.JSON(w, http.StatusOK, drafts)
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

func queryID(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errors.Validationf("%s is required", name)
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, errors.Validationf("invalid %s format", name)
	}
	return id, nil
}

func optionalQueryID(r *http.Request, name string) *int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}
