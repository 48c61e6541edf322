package ai

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"starfall-server/internal/galaxy"
	"starfall-server/internal/order"
	"starfall-server/internal/player"
	"starfall-server/internal/shared/config"
	"starfall-server/internal/shared/errors"
	"starfall-server/internal/ship"
)

// TurnEnder ends a player's turn. Satisfied by an adapter over the turn
// service so this package stays independent of turn advancement.
type TurnEnder interface {
	EndPlayerTurn(ctx context.Context, gameID, playerID int) error
}

// Executor takes turns for AI players: it builds each one's world view,
// asks the player's strategy for orders, submits them as drafts, and ends
// the player's turn. Players are paced by a rate limiter so a game full of
// AI players cannot saturate the database.
type Executor struct {
	orders     *order.Service
	playerRepo *player.Repository
	galaxyRepo *galaxy.Repository
	shipRepo   *ship.Repository
	registry   *Registry
	turnEnder  TurnEnder
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func NewExecutor(
	orders *order.Service,
	playerRepo *player.Repository,
	galaxyRepo *galaxy.Repository,
	shipRepo *ship.Repository,
	registry *Registry,
	turnEnder TurnEnder,
	logger *slog.Logger,
) *Executor {
	cfg := config.GlobalConfig.AI

	return &Executor{
		orders:     orders,
		playerRepo: playerRepo,
		galaxyRepo: galaxyRepo,
		shipRepo:   shipRepo,
		registry:   registry,
		turnEnder:  turnEnder,
		limiter:    rate.NewLimiter(rate.Limit(cfg.PlayersPerSecond), cfg.Burst),
		logger:     logger,
	}
}

// RunGameTurn plays every active AI player of the game on the given turn.
// A failing player is logged and skipped; the humans in the game must not
// notice a broken strategy.
func (e *Executor) RunGameTurn(ctx context.Context, gameID, turnID int) {
	logger := e.logger.With(
		"component", "ai_executor",
		"operation", "run_game_turn",
		"game_id", gameID,
		"turn_id", turnID,
	)

	players, err := e.playerRepo.GetPlayersByGame(ctx, gameID)
	if err != nil {
		logger.Error("Failed to list players", "error", err)
		return
	}

	for i := range players {
		p := &players[i]
		if p.Type != player.PlayerTypeAI || p.Status != player.PlayerStatusActive {
			continue
		}

		if err := e.limiter.Wait(ctx); err != nil {
			logger.Warn("AI pacing interrupted", "error", err)
			return
		}

		if err := e.playTurn(ctx, gameID, turnID, p); err != nil {
			logger.Error("AI player failed to take turn",
				"player_id", p.ID,
				"strategy", p.Metadata.Strategy,
				"error", err)
		}
	}
}

func (e *Executor) playTurn(ctx context.Context, gameID, turnID int, p *player.Player) error {
	strategy, err := e.registry.Create(p.Metadata.Strategy, p.Metadata.StrategyConfig)
	if err != nil {
		return err
	}

	view, err := e.buildWorldView(ctx, gameID, turnID, p.ID)
	if err != nil {
		return err
	}

	planned, err := strategy.PlanTurn(view)
	if err != nil {
		return fmt.Errorf("strategy %s failed to plan: %w", strategy.Name(), err)
	}

	for _, po := range planned {
		_, err := e.orders.CreateDraft(ctx, gameID, turnID, p.ID, po.ClientOrderID, po.Payload)
		if err != nil {
			if errors.GetType(err) == errors.ErrorTypeConflict {
				// A standing order already claimed this slot; the strategy's
				// plan replaces it.
				if _, err := e.orders.EditDraft(ctx, gameID, turnID, p.ID, po.ClientOrderID, po.Payload); err != nil {
					return err
				}
				continue
			}
			return err
		}
	}

	e.logger.Debug("AI player planned turn",
		"component", "ai_executor",
		"player_id", p.ID,
		"strategy", strategy.Name(),
		"orders", len(planned))

	return e.turnEnder.EndPlayerTurn(ctx, gameID, p.ID)
}

func (e *Executor) buildWorldView(ctx context.Context, gameID, turnID, playerID int) (*WorldView, error) {
	stars, err := e.galaxyRepo.GetStarsByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	states, err := e.galaxyRepo.ListStarStates(ctx, gameID)
	if err != nil {
		return nil, err
	}
	wormholes, err := e.galaxyRepo.GetWormholesByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	ships, err := e.shipRepo.GetShipsByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	return &WorldView{
		GameID:    gameID,
		TurnID:    turnID,
		PlayerID:  playerID,
		Stars:     stars,
		States:    states,
		Wormholes: wormholes,
		Ships:     ships,
	}, nil
}
