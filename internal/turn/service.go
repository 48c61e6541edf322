package turn

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"starfall-server/internal/event"
	"starfall-server/internal/notify"
	"starfall-server/internal/order"
	"starfall-server/internal/player"
	"starfall-server/internal/resolution"
	"starfall-server/internal/shared/database"
	"starfall-server/internal/shared/errors"
)

// AIRunner takes turns for every AI player of a game. The concrete runner
// lives elsewhere and is attached after construction to keep the dependency
// between turn advancement and AI execution one-directional.
type AIRunner interface {
	RunGameTurn(ctx context.Context, gameID, turnID int)
}

// Service owns the turn lifecycle: opening turns, tracking player readiness,
// and advancing the game when the last player finishes.
type Service struct {
	db           *database.DB
	repo         *Repository
	orders       *order.Service
	playerRepo   *player.Repository
	eventRepo    *event.Repository
	engine       *resolution.Engine
	materializer *Materializer
	notifier     notify.Notifier
	aiRunner     AIRunner
	logger       *slog.Logger
}

func NewService(
	db *database.DB,
	repo *Repository,
	orders *order.Service,
	playerRepo *player.Repository,
	eventRepo *event.Repository,
	engine *resolution.Engine,
	materializer *Materializer,
	notifier notify.Notifier,
	logger *slog.Logger,
) *Service {
	logger.Debug("Initializing turn service")

	if notifier == nil {
		notifier = notify.Nop{}
	}

	return &Service{
		db:           db,
		repo:         repo,
		orders:       orders,
		playerRepo:   playerRepo,
		eventRepo:    eventRepo,
		engine:       engine,
		materializer: materializer,
		notifier:     notifier,
		logger:       logger,
	}
}

// SetAIRunner attaches the AI executor. Called once during wiring, before
// the service handles requests.
func (s *Service) SetAIRunner(runner AIRunner) {
	s.aiRunner = runner
}

// OpenTurn opens the given turn number, records the opening event,
// materializes standing orders into drafts, and kicks off AI players. Safe
// to call twice with the same number.
func (s *Service) OpenTurn(ctx context.Context, gameID, number int) (*Turn, error) {
	logger := s.logger.With(
		"component", "turn_service",
		"operation", "open_turn",
		"game_id", gameID,
		"number", number,
	)

	t, err := s.repo.OpenTurn(ctx, nil, gameID, number)
	if err != nil {
		return nil, err
	}

	_, err = s.eventRepo.Append(ctx, nil, gameID, t.ID, nil, event.KindTurnOpened, map[string]interface{}{
		"number": t.Number,
	})
	if err != nil {
		return nil, err
	}

	if err := s.materializer.Run(ctx, gameID, t.ID); err != nil {
		// Players can still author orders by hand, so the turn stays open.
		logger.Error("Failed to materialize standing orders", "error", err)
	}

	if s.aiRunner != nil {
		go s.aiRunner.RunGameTurn(context.WithoutCancel(ctx), gameID, t.ID)
	}

	return t, nil
}

func (s *Service) GetOpenTurn(ctx context.Context, gameID int) (*Turn, error) {
	t, err := s.repo.GetOpenTurn(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.NotFoundf("game %d has no open turn", gameID)
	}
	return t, nil
}

func (s *Service) GetTurnByID(ctx context.Context, turnID int) (*Turn, error) {
	t, err := s.repo.GetTurnByID(ctx, turnID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.NotFoundf("turn %d not found", turnID)
	}
	return t, nil
}

func (s *Service) ListTurns(ctx context.Context, gameID int) ([]Turn, error) {
	return s.repo.ListTurns(ctx, gameID)
}

// EndTurnResult reports what ending a player's turn did.
type EndTurnResult struct {
	Turn         *Turn `json:"turn"`
	Finalized    int   `json:"finalized_orders"`
	TurnResolved bool  `json:"turn_resolved"`
	NewTurn      *Turn `json:"new_turn,omitempty"`
}

// EndPlayerTurn finalizes the player's drafts, marks the player waiting, and
// when that player was the last one still due, resolves the turn and opens
// the next one. Readiness and the last-to-finish check happen in a single
// statement, so concurrent calls elect exactly one resolver.
func (s *Service) EndPlayerTurn(ctx context.Context, gameID, playerID int) (*EndTurnResult, error) {
	logger := s.logger.With(
		"component", "turn_service",
		"operation", "end_player_turn",
		"game_id", gameID,
		"player_id", playerID,
	)
	logger.Info("Ending player turn")

	p, err := s.playerRepo.GetPlayerByID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if p == nil || p.GameID != gameID {
		return nil, errors.NotFoundf("player %d not found in game %d", playerID, gameID)
	}
	switch p.Status {
	case player.PlayerStatusActive:
	case player.PlayerStatusWaiting:
		return nil, errors.Conflictf("player %d already ended their turn", playerID)
	default:
		return nil, errors.Forbidden("player is not participating in this game")
	}

	current, err := s.repo.GetOpenTurn(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, errors.Conflictf("game %d has no open turn", gameID)
	}

	finals, err := s.orders.FinalizeTurn(ctx, current.ID, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize orders: %w", err)
	}

	_, err = s.eventRepo.Append(ctx, nil, gameID, current.ID, &playerID, event.KindPlayerFinished, map[string]interface{}{
		"finalized_orders": len(finals),
	})
	if err != nil {
		return nil, err
	}

	flipped, lastToFinish, err := s.playerRepo.MarkWaitingAndCheck(ctx, gameID, playerID)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, errors.Conflictf("player %d already ended their turn", playerID)
	}

	result := &EndTurnResult{
		Turn:      current,
		Finalized: len(finals),
	}
	if !lastToFinish {
		logger.Info("Player waiting, turn still open", "finalized_orders", len(finals))
		return result, nil
	}

	newTurn, err := s.advance(ctx, gameID, current, logger)
	if err != nil {
		return nil, err
	}
	if newTurn != nil {
		result.TurnResolved = true
		result.NewTurn = newTurn
	}
	return result, nil
}

// advance resolves the current turn and opens the next one. Only the caller
// that wins MarkResolving runs the resolution; losers return without error.
func (s *Service) advance(ctx context.Context, gameID int, current *Turn, logger *slog.Logger) (*Turn, error) {
	claimed, err := s.repo.MarkResolving(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		logger.Info("Turn already being resolved elsewhere", "turn_id", current.ID)
		return nil, nil
	}

	started := time.Now()
	res, err := s.engine.ResolveTurn(ctx, gameID, current.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve turn %d: %w", current.ID, err)
	}

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logger.Error("Failed to rollback transaction", "error", err)
		}
	}()

	if err := s.repo.CloseTurn(ctx, tx, current.ID); err != nil {
		return nil, err
	}

	if _, err := s.playerRepo.ResetStatuses(ctx, tx, gameID); err != nil {
		return nil, err
	}

	_, err = s.eventRepo.Append(ctx, tx, gameID, current.ID, nil, event.KindTurnResolved, map[string]interface{}{
		"number":         current.Number,
		"applied_orders": res.Applied,
		"failed_orders":  len(res.Errors),
		"duration_ms":    time.Since(started).Milliseconds(),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit turn close: %w", err)
	}

	newTurn, err := s.OpenTurn(ctx, gameID, current.Number+1)
	if err != nil {
		return nil, err
	}

	note := notify.TurnResolution{
		GameID:             gameID,
		PreviousTurnID:     current.ID,
		PreviousTurnNumber: current.Number,
		NewTurnID:          newTurn.ID,
		NewTurnNumber:      newTurn.Number,
	}
	go s.notifier.TurnResolved(context.WithoutCancel(ctx), note)

	logger.Info("Turn advanced",
		"closed_turn", current.Number,
		"new_turn", newTurn.Number,
		"applied_orders", res.Applied,
		"failed_orders", len(res.Errors))
	return newTurn, nil
}
