package galaxy

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
	logger.Debug("Initializing galaxy service")

	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetStarsByGame(ctx context.Context, gameID int) ([]Star, error) {
	return s.repo.GetStarsByGame(ctx, gameID)
}

func (s *Service) GetWormholesByGame(ctx context.Context, gameID int) ([]Wormhole, error) {
	return s.repo.GetWormholesByGame(ctx, gameID)
}

func (s *Service) ListStarStates(ctx context.Context, gameID int) ([]StarState, error) {
	return s.repo.ListStarStates(ctx, gameID)
}

func (s *Service) GetStarState(ctx context.Context, gameID, starID int) (*StarState, error) {
	state, err := s.repo.GetStarState(ctx, gameID, starID)
	if err != nil {
		return nil, fmt.Errorf("failed to load star state: %w", err)
	}
	if state == nil {
		return nil, errors.NotFoundf("star %d not found in game %d", starID, gameID)
	}
	return state, nil
}

// SetStandingOrders validates and stores a star's default order template.
// Ownership is the caller's concern: the boundary must check that the caller
// is the star's current owner before invoking this.
func (s *Service) SetStandingOrders(ctx context.Context, gameID, starID int, standing StandingOrders) error {
	logger := s.logger.With(
		"component", "galaxy_service",
		"operation", "set_standing_orders",
		"game_id", gameID,
		"star_id", starID,
	)
	logger.Debug("Setting standing orders")

	if err := ValidateStandingOrders(standing); err != nil {
		return err
	}

	state, err := s.repo.GetStarState(ctx, gameID, starID)
	if err != nil {
		return fmt.Errorf("failed to load star state: %w", err)
	}
	if state == nil {
		return errors.NotFoundf("star %d not found in game %d", starID, gameID)
	}

	state.Details.StandingOrders = &standing
	if err := s.repo.UpdateDetails(ctx, gameID, starID, state.Details); err != nil {
		logger.Error("Failed to store standing orders", "error", err)
		return fmt.Errorf("failed to store standing orders: %w", err)
	}

	logger.Info("Standing orders set",
		"has_industry", standing.Industry != nil,
		"has_move", standing.Move != nil)
	return nil
}

func (s *Service) GetStandingOrders(ctx context.Context, gameID, starID int) (*StandingOrders, error) {
	state, err := s.repo.GetStarState(ctx, gameID, starID)
	if err != nil {
		return nil, fmt.Errorf("failed to load star state: %w", err)
	}
	if state == nil {
		return nil, errors.NotFoundf("star %d not found in game %d", starID, gameID)
	}
	return state.Details.StandingOrders, nil
}

func (s *Service) ClearStandingOrders(ctx context.Context, gameID, starID int) error {
	logger := s.logger.With(
		"component", "galaxy_service",
		"operation", "clear_standing_orders",
		"game_id", gameID,
		"star_id", starID,
	)
	logger.Debug("Clearing standing orders")

	state, err := s.repo.GetStarState(ctx, gameID, starID)
	if err != nil {
		return fmt.Errorf("failed to load star state: %w", err)
	}
	if state == nil {
		return errors.NotFoundf("star %d not found in game %d", starID, gameID)
	}

	if state.Details.StandingOrders == nil {
		logger.Debug("No standing orders to clear")
		return nil
	}

	state.Details.StandingOrders = nil
	if err := s.repo.UpdateDetails(ctx, gameID, starID, state.Details); err != nil {
		logger.Error("Failed to clear standing orders", "error", err)
		return fmt.Errorf("failed to clear standing orders: %w", err)
	}

	logger.Info("Standing orders cleared")
	return nil
}

// ValidateStandingOrders rejects industry templates whose percentages exceed
// 100 in total or carry negative allocations.
func ValidateStandingOrders(standing StandingOrders) error {
	if standing.Industry != nil {
		t := standing.Industry
		if t.Expand < 0 || t.Research < 0 || t.Build < 0 {
			return errors.Validation("standing order percentages must not be negative")
		}
		if total := t.PercentTotal(); total > 100 {
			return errors.Validationf("standing order percentages sum to %d, must not exceed 100", total)
		}
	}
	if standing.Move != nil && standing.Move.DestinationStarID <= 0 {
		return errors.Validation("standing move order requires a destination star")
	}
	return nil
}
