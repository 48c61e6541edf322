package player

import (
	"context"
	"fmt"
	"log/slog"

	"starfall-server/internal/shared/errors"
)

type Service struct {
	repo   *Repository
	logger *slog.Logger
}

func NewService(repo *Repository, logger *slog.Logger) *Service {
	logger.Debug("Initializing player service")

	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetPlayerByID(ctx context.Context, playerID int) (*Player, error) {
	return s.repo.GetPlayerByID(ctx, playerID)
}

func (s *Service) GetPlayersByGame(ctx context.Context, gameID int) ([]Player, error) {
	return s.repo.GetPlayersByGame(ctx, gameID)
}

func (s *Service) GetPlayerByUserAndGame(ctx context.Context, gameID, userID int) (*Player, error) {
	return s.repo.GetPlayerByUserAndGame(ctx, gameID, userID)
}

// AddPlayer validates and creates a participant. AI players must name a
// strategy in their metadata so the turn executor can run them.
func (s *Service) AddPlayer(ctx context.Context, gameID int, userID *int, name, color, country string, playerType PlayerType, metadata Metadata) (*Player, error) {
	logger := s.logger.With(
		"component", "player_service",
		"operation", "add_player",
		"game_id", gameID,
		"name", name,
		"type", playerType,
	)
	logger.Debug("Adding player to game")

	if name == "" {
		return nil, errors.Validation("player name is required")
	}
	if !playerType.IsValid() {
		return nil, errors.Validationf("invalid player type %q", playerType)
	}
	if playerType == PlayerTypeAI && metadata.Strategy == "" {
		return nil, errors.Validation("AI players must name a strategy")
	}
	if playerType == PlayerTypeHuman && userID == nil {
		return nil, errors.Validation("human players must reference a user")
	}

	p, err := s.repo.CreatePlayer(ctx, gameID, userID, name, color, country, playerType, metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to add player: %w", err)
	}

	logger.Info("Player added", "player_id", p.ID)
	return p, nil
}
