package server

import (
	"log/slog"
	"net/http"

	"starfall-server/internal/event"
	eventHandlers "starfall-server/internal/event/handlers"
	"starfall-server/internal/galaxy"
	galaxyHandlers "starfall-server/internal/galaxy/handlers"
	"starfall-server/internal/game"
	gameHandlers "starfall-server/internal/game/handlers"
	"starfall-server/internal/middleware"
	"starfall-server/internal/notify"
	"starfall-server/internal/order"
	orderHandlers "starfall-server/internal/order/handlers"
	"starfall-server/internal/player"
	serverHandlers "starfall-server/internal/server/handlers"
	"starfall-server/internal/shared/database"
	"starfall-server/internal/turn"
	turnHandlers "starfall-server/internal/turn/handlers"
)

type Routes struct {
	db            *database.DB
	gameService   *game.Service
	galaxyService *galaxy.Service
	orderService  *order.Service
	turnService   *turn.Service
	playerService *player.Service
	eventRepo     *event.Repository
	hub           *notify.Hub
	logger        *slog.Logger
}

func NewRoutes(
	db *database.DB,
	gameService *game.Service,
	galaxyService *galaxy.Service,
	orderService *order.Service,
	turnService *turn.Service,
	playerService *player.Service,
	eventRepo *event.Repository,
	hub *notify.Hub,
	logger *slog.Logger,
) *Routes {
	return &Routes{
		db:            db,
		gameService:   gameService,
		galaxyService: galaxyService,
		orderService:  orderService,
		turnService:   turnService,
		playerService: playerService,
		eventRepo:     eventRepo,
		hub:           hub,
		logger:        logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := slog.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.db)
	subscribeHandler := serverHandlers.NewSubscribeHandler(r.hub)
	gameHandler := gameHandlers.NewGameHandler(r.gameService)
	starHandler := galaxyHandlers.NewStarHandler(r.galaxyService, r.playerService)
	orderHandler := orderHandlers.NewOrderHandler(r.orderService, r.turnService, r.playerService)
	turnHandler := turnHandlers.NewTurnHandler(r.turnService, r.playerService)
	eventHandler := eventHandlers.NewEventHandler(r.eventRepo)

	// Public endpoints
	mux.Handle("/api/server/health", healthHandler)
	mux.HandleFunc("/api/games", gameHandler.GetGames)
	mux.HandleFunc("/api/games/{id}", gameHandler.GetGame)
	mux.HandleFunc("/api/games/{id}/map", starHandler.GetMap)
	mux.HandleFunc("/api/games/{id}/turns", turnHandler.ListTurns)
	mux.HandleFunc("/api/games/{id}/turns/open", turnHandler.GetOpenTurn)
	mux.HandleFunc("/api/games/{id}/turns/{turnID}/events", eventHandler.ListTurnEvents)
	mux.HandleFunc("/api/games/{id}/turns/{turnID}/orders", orderHandler.ListFinals)
	mux.HandleFunc("/api/games/{id}/events", eventHandler.ListGameEvents)
	mux.Handle("/api/games/{id}/subscribe", subscribeHandler)

	// Protected endpoints (authenticated users)
	mux.Handle("/api/games/create", middleware.JWTMiddleware(http.HandlerFunc(gameHandler.CreateGame)))
	mux.Handle("/api/games/{id}/join", middleware.JWTMiddleware(http.HandlerFunc(gameHandler.JoinGame)))
	mux.Handle("/api/games/{id}/start", middleware.JWTMiddleware(http.HandlerFunc(gameHandler.StartGame)))
	mux.Handle("POST /api/games/{id}/orders", middleware.JWTMiddleware(http.HandlerFunc(orderHandler.CreateDraft)))
	mux.Handle("GET /api/games/{id}/orders", middleware.JWTMiddleware(http.HandlerFunc(orderHandler.ListDrafts)))
	mux.Handle("PUT /api/games/{id}/orders/{clientOrderID}", middleware.JWTMiddleware(http.HandlerFunc(orderHandler.EditDraft)))
	mux.Handle("DELETE /api/games/{id}/orders/{clientOrderID}", middleware.JWTMiddleware(http.HandlerFunc(orderHandler.DeleteDraft)))
	mux.Handle("/api/games/{id}/stars/{starID}/orders", middleware.JWTMiddleware(http.HandlerFunc(orderHandler.ListDraftsForStar)))
	mux.Handle("/api/games/{id}/stars/{starID}/standing-orders", middleware.JWTMiddleware(http.HandlerFunc(starHandler.StandingOrders)))
	mux.Handle("/api/games/{id}/end-turn", middleware.JWTMiddleware(http.HandlerFunc(turnHandler.EndTurn)))

	// Admin endpoints
	mux.Handle("DELETE /api/games/{id}", middleware.RequireAdmin(http.HandlerFunc(gameHandler.DeleteGame)))

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/api/games", "/api/games/{id}/map", "/api/games/{id}/turns", "/api/games/{id}/subscribe"},
		"protected_endpoints", []string{"/api/games/{id}/orders", "/api/games/{id}/end-turn", "/api/games/{id}/stars/{starID}/standing-orders"},
	)

	return mux
}
