package order

import (
	"context"
	"fmt"
	"log/slog"

	"starfall-server/internal/shared/errors"
)

// Service owns draft lifecycle rules on top of the revisioned repository.
// Callers resolve the open turn themselves; the order store is a leaf and
// never reaches into the turn ledger.
type Service struct {
	repo   *Repository
	logger *slog.Logger
}

func NewService(repo *Repository, logger *slog.Logger) *Service {
	logger.Debug("Initializing order service")

	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// CreateDraft starts a new logical order at revision 1.
func (s *Service) CreateDraft(ctx context.Context, gameID, turnID, playerID int, clientOrderID string, payload Payload) (*Order, error) {
	logger := s.logger.With(
		"component", "order_service",
		"operation", "create_draft",
		"game_id", gameID,
		"turn_id", turnID,
		"player_id", playerID,
		"client_order_id", clientOrderID,
	)
	logger.Debug("Creating draft order")

	if clientOrderID == "" {
		return nil, errors.Validation("client order id is required")
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	latest, err := s.repo.GetLatestRevision(ctx, turnID, playerID, clientOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing revisions: %w", err)
	}
	if latest != nil && !latest.IsDeleted {
		return nil, errors.Conflictf("order %q already exists for this turn", clientOrderID)
	}

	revision := 1
	if latest != nil {
		// Re-creating a deleted order continues its revision history.
		revision = latest.Revision + 1
	}

	raw, err := EncodePayload(payload)
	if err != nil {
		return nil, err
	}

	o, err := s.repo.InsertRevision(ctx, gameID, turnID, playerID, clientOrderID, revision, payload.Type(), raw, false)
	if err != nil {
		return nil, err
	}

	logger.Info("Draft order created", "order_type", payload.Type(), "revision", o.Revision)
	return o, nil
}

// EditDraft appends a new revision of an existing logical order.
func (s *Service) EditDraft(ctx context.Context, gameID, turnID, playerID int, clientOrderID string, payload Payload) (*Order, error) {
	logger := s.logger.With(
		"component", "order_service",
		"operation", "edit_draft",
		"game_id", gameID,
		"turn_id", turnID,
		"player_id", playerID,
		"client_order_id", clientOrderID,
	)
	logger.Debug("Editing draft order")

	if err := payload.Validate(); err != nil {
		return nil, err
	}

	latest, err := s.repo.GetLatestRevision(ctx, turnID, playerID, clientOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing revisions: %w", err)
	}
	if latest == nil || latest.IsDeleted {
		return nil, errors.NotFoundf("order %q not found for this turn", clientOrderID)
	}

	raw, err := EncodePayload(payload)
	if err != nil {
		return nil, err
	}

	o, err := s.repo.InsertRevision(ctx, gameID, turnID, playerID, clientOrderID, latest.Revision+1, payload.Type(), raw, false)
	if err != nil {
		return nil, err
	}

	logger.Info("Draft order edited", "order_type", payload.Type(), "revision", o.Revision)
	return o, nil
}

// DeleteDraft appends a tombstone revision, copying the last known type and
// payload forward for audit continuity.
func (s *Service) DeleteDraft(ctx context.Context, gameID, turnID, playerID int, clientOrderID string) error {
	logger := s.logger.With(
		"component", "order_service",
		"operation", "delete_draft",
		"game_id", gameID,
		"turn_id", turnID,
		"player_id", playerID,
		"client_order_id", clientOrderID,
	)
	logger.Debug("Deleting draft order")

	latest, err := s.repo.GetLatestRevision(ctx, turnID, playerID, clientOrderID)
	if err != nil {
		return fmt.Errorf("failed to load existing revisions: %w", err)
	}
	if latest == nil || latest.IsDeleted {
		return errors.NotFoundf("order %q not found for this turn", clientOrderID)
	}

	_, err = s.repo.InsertRevision(ctx, gameID, turnID, playerID, clientOrderID, latest.Revision+1, latest.Type, latest.Payload, true)
	if err != nil {
		return err
	}

	logger.Info("Draft order deleted", "revision", latest.Revision+1)
	return nil
}

// ListLatestDrafts returns the player's current drafts for the turn.
func (s *Service) ListLatestDrafts(ctx context.Context, turnID, playerID int) ([]Order, error) {
	return s.repo.ListLatestDrafts(ctx, turnID, playerID)
}

// FinalizeTurn stamps the player's current drafts as the immutable final set
// the resolution engine will consume.
func (s *Service) FinalizeTurn(ctx context.Context, turnID, playerID int) ([]Order, error) {
	return s.repo.FinalizePlayerTurn(ctx, turnID, playerID)
}

// ListFinalsByTurn returns a turn's final orders, optionally player-scoped.
func (s *Service) ListFinalsByTurn(ctx context.Context, turnID int, playerID *int) ([]Order, error) {
	return s.repo.ListFinalsByTurn(ctx, turnID, playerID)
}

// ListDraftsForStar returns current drafts acting from a star, optionally
// player-scoped.
func (s *Service) ListDraftsForStar(ctx context.Context, turnID, starID int, playerID *int) ([]Order, error) {
	return s.repo.ListDraftsForStar(ctx, turnID, starID, playerID)
}
