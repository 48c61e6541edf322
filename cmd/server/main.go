package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"starfall-server/internal/ai"
	"starfall-server/internal/event"
	"starfall-server/internal/galaxy"
	"starfall-server/internal/game"
	"starfall-server/internal/middleware"
	"starfall-server/internal/notify"
	"starfall-server/internal/order"
	"starfall-server/internal/player"
	"starfall-server/internal/resolution"
	"starfall-server/internal/server"
	"starfall-server/internal/ship"
	"starfall-server/internal/shared/config"
	"starfall-server/internal/shared/database"
	"starfall-server/internal/shared/logger"
	"starfall-server/internal/shared/redis"
	"starfall-server/internal/turn"
)

// turnEnderAdapter lets the AI executor end player turns without depending
// on the turn service's result type.
type turnEnderAdapter struct {
	turns *turn.Service
}

func (a turnEnderAdapter) EndPlayerTurn(ctx context.Context, gameID, playerID int) error {
	_, err := a.turns.EndPlayerTurn(ctx, gameID, playerID)
	return err
}

func main() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init()
	log := slog.With("component", "main")

	db, err := database.Connect()
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(config.GlobalConfig.Database.MigrationsPath); err != nil {
		log.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := redis.Connect()
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Repositories
	gameRepo := game.NewRepository(db, slog.Default())
	playerRepo := player.NewRepository(db, slog.Default())
	galaxyRepo := galaxy.NewRepository(db, slog.Default())
	shipRepo := ship.NewRepository(db, slog.Default())
	orderRepo := order.NewRepository(db, slog.Default())
	turnRepo := turn.NewRepository(db, slog.Default())
	eventRepo := event.NewRepository(db, slog.Default())

	// Notification sinks
	hub := notify.NewHub(slog.Default())
	sinks := notify.Multi{hub}
	if redisClient != nil {
		sinks = append(sinks, notify.NewRedisNotifier(redisClient, slog.Default()))
	}

	// Services
	galaxyService := galaxy.NewService(galaxyRepo, slog.Default())
	playerService := player.NewService(playerRepo, slog.Default())
	orderService := order.NewService(orderRepo, slog.Default())
	engine := resolution.NewEngine(db, orderService, galaxyRepo, shipRepo, eventRepo, slog.Default())
	materializer := turn.NewMaterializer(galaxyRepo, orderService, slog.Default())
	turnService := turn.NewService(db, turnRepo, orderService, playerRepo, eventRepo, engine, materializer, sinks, slog.Default())
	gameService := game.NewService(db, gameRepo, galaxyRepo, playerService, turnService, slog.Default())

	// AI
	if config.GlobalConfig.AI.Enabled {
		registry := ai.NewRegistry()
		ai.RegisterBuiltins(registry)
		executor := ai.NewExecutor(orderService, playerRepo, galaxyRepo, shipRepo, registry, turnEnderAdapter{turnService}, slog.Default())
		turnService.SetAIRunner(executor)
	}

	routes := server.NewRoutes(db, gameService, galaxyService, orderService, turnService, playerService, eventRepo, hub, slog.Default())
	mux := routes.Setup()

	rateLimiter := middleware.NewRateLimiter()
	corsMiddleware := middleware.NewCORS()
	handler := corsMiddleware.Middleware(rateLimiter.Middleware(mux))

	cfg := config.GlobalConfig.Server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", "error", err)
	}
	log.Info("Server stopped")
}
