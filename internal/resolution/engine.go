package resolution

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"

	"starfall-server/internal/event"
	"starfall-server/internal/galaxy"
	"starfall-server/internal/order"
	"starfall-server/internal/ship"
	"starfall-server/internal/shared/database"
)

// Engine deterministically applies a turn's final orders against persisted
// star and ship state. It runs in ordered phases: build, then expansion,
// then movement. Resolution is best-effort: a failing order is recorded and
// skipped, never aborting the batch, but each single order's mutation is
// wrapped in its own transaction so a half-applied order cannot occur.
type Engine struct {
	db         *database.DB
	orders     *order.Service
	galaxyRepo *galaxy.Repository
	shipRepo   *ship.Repository
	eventRepo  *event.Repository
	logger     *slog.Logger
}

func NewEngine(
	db *database.DB,
	orders *order.Service,
	galaxyRepo *galaxy.Repository,
	shipRepo *ship.Repository,
	eventRepo *event.Repository,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		db:         db,
		orders:     orders,
		galaxyRepo: galaxyRepo,
		shipRepo:   shipRepo,
		eventRepo:  eventRepo,
		logger:     logger,
	}
}

// OrderError records one order that could not be applied.
type OrderError struct {
	OrderID       int    `json:"order_id"`
	ClientOrderID string `json:"client_order_id"`
	PlayerID      int    `json:"player_id"`
	Err           error  `json:"-"`
	Message       string `json:"message"`
}

// Result summarizes a resolution run.
type Result struct {
	GameID  int          `json:"game_id"`
	TurnID  int          `json:"turn_id"`
	Applied int          `json:"applied"`
	Errors  []OrderError `json:"errors,omitempty"`
}

// ResolveTurn consumes every final order of the turn and applies them in
// phase order. Call this only once all players are waiting; the turn ledger
// owns that trigger.
func (e *Engine) ResolveTurn(ctx context.Context, gameID, turnID int) (*Result, error) {
	logger := e.logger.With(
		"component", "resolution_engine",
		"operation", "resolve_turn",
		"game_id", gameID,
		"turn_id", turnID,
	)
	logger.Info("Resolving turn")

	finals, err := e.orders.ListFinalsByTurn(ctx, turnID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load final orders: %w", err)
	}

	result := &Result{GameID: gameID, TurnID: turnID}

	e.runBuildPhase(ctx, finals, result, logger)
	e.runExpansionPhase(ctx, finals, result, logger)
	e.runMovementPhase(ctx, finals, result, logger)

	logger.Info("Turn resolved",
		"final_orders", len(finals),
		"applied", result.Applied,
		"errors", len(result.Errors))
	return result, nil
}

func (e *Engine) recordError(result *Result, o *order.Order, err error, logger *slog.Logger) {
	logger.Warn("Order failed during resolution",
		"order_id", o.ID,
		"client_order_id", o.ClientOrderID,
		"player_id", o.PlayerID,
		"order_type", o.Type,
		"error", err)
	result.Errors = append(result.Errors, OrderError{
		OrderID:       o.ID,
		ClientOrderID: o.ClientOrderID,
		PlayerID:      o.PlayerID,
		Err:           err,
		Message:       err.Error(),
	})
}

// runBuildPhase turns build orders into ships. The ship cost equals the
// star's technology level; requests the star cannot afford are capped, and
// zero-affordability orders are silently skipped.
func (e *Engine) runBuildPhase(ctx context.Context, finals []order.Order, result *Result, logger *slog.Logger) {
	logger.Debug("Running build phase")

	for i := range finals {
		o := &finals[i]

		var starID, requested int
		switch o.Type {
		case order.TypeBuild:
			payload, err := o.Decode()
			if err != nil {
				e.recordError(result, o, err, logger)
				continue
			}
			p := payload.(order.BuildPayload)
			starID, requested = p.StarID, p.Ships
		case order.TypeAutoBuild:
			payload, err := o.Decode()
			if err != nil {
				e.recordError(result, o, err, logger)
				continue
			}
			p := payload.(order.AutoBuildPayload)
			if p.Build <= 0 {
				continue
			}
			if err := e.applyAutoBuildShips(ctx, o, p, result, logger); err != nil {
				e.recordError(result, o, err, logger)
			}
			continue
		default:
			continue
		}

		if err := e.applyBuild(ctx, o, starID, requested, logger); err != nil {
			e.recordError(result, o, err, logger)
			continue
		}
		result.Applied++
	}
}

func (e *Engine) applyBuild(ctx context.Context, o *order.Order, starID, requested int, logger *slog.Logger) error {
	tx, err := e.db.BeginTxContext(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logger.Error("Failed to rollback transaction", "error", err)
		}
	}()

	state, err := e.galaxyRepo.GetStarStateForUpdate(ctx, tx, o.GameID, starID)
	if err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("star %d has no state in game %d", starID, o.GameID)
	}

	shipCost := state.Technology
	shipsToBuild := shipsAffordable(state.Available, shipCost, requested)
	if shipsToBuild == 0 {
		// Not affordable this turn; intended game behavior, not an error.
		logger.Debug("Build order skipped, nothing affordable",
			"order_id", o.ID, "star_id", starID, "available", state.Available)
		return nil
	}

	if _, err := e.shipRepo.CreateShips(ctx, tx, o.GameID, o.PlayerID, starID, shipsToBuild, shipCost, shipCost); err != nil {
		return err
	}

	newAvailable := round2(state.Available - float64(shipsToBuild)*shipCost)
	if err := e.galaxyRepo.UpdateEconomy(ctx, tx, state.ID, newAvailable, state.Industry, state.Technology); err != nil {
		return err
	}

	_, err = e.eventRepo.Append(ctx, tx, o.GameID, o.TurnID, &o.PlayerID, event.KindShipsBuilt, map[string]interface{}{
		"star_id":     starID,
		"ships_built": shipsToBuild,
		"ship_cost":   shipCost,
		"requested":   requested,
		"available":   newAvailable,
	})
	if err != nil {
		return err
	}

	return tx.Commit()
}

// applyAutoBuildShips converts an auto build order's build budget into ships
// at the star's current technology cost, bounded by both the budget and the
// star's remaining points.
func (e *Engine) applyAutoBuildShips(ctx context.Context, o *order.Order, p order.AutoBuildPayload, result *Result, logger *slog.Logger) error {
	tx, err := e.db.BeginTxContext(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logger.Error("Failed to rollback transaction", "error", err)
		}
	}()

	state, err := e.galaxyRepo.GetStarStateForUpdate(ctx, tx, o.GameID, p.StarID)
	if err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("star %d has no state in game %d", p.StarID, o.GameID)
	}

	budget := math.Min(p.Build, state.Available)
	shipCost := state.Technology
	if shipCost <= 0 {
		return nil
	}
	shipsToBuild := int(math.Floor(budget / shipCost))
	if shipsToBuild == 0 {
		logger.Debug("Auto build order skipped, nothing affordable",
			"order_id", o.ID, "star_id", p.StarID, "budget", budget)
		return nil
	}

	if _, err := e.shipRepo.CreateShips(ctx, tx, o.GameID, o.PlayerID, p.StarID, shipsToBuild, shipCost, shipCost); err != nil {
		return err
	}

	newAvailable := round2(state.Available - float64(shipsToBuild)*shipCost)
	if err := e.galaxyRepo.UpdateEconomy(ctx, tx, state.ID, newAvailable, state.Industry, state.Technology); err != nil {
		return err
	}

	_, err = e.eventRepo.Append(ctx, tx, o.GameID, o.TurnID, &o.PlayerID, event.KindShipsBuilt, map[string]interface{}{
		"star_id":             p.StarID,
		"ships_built":         shipsToBuild,
		"ship_cost":           shipCost,
		"available":           newAvailable,
		"from_standing_order": p.FromStandingOrder,
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	result.Applied++
	return nil
}

// runExpansionPhase spends expand and research amounts. Spend is capped at
// the star's available points; growth follows the diminishing-returns curve.
func (e *Engine) runExpansionPhase(ctx context.Context, finals []order.Order, result *Result, logger *slog.Logger) {
	logger.Debug("Running expansion phase")

	for i := range finals {
		o := &finals[i]
		if o.Type != order.TypeAutoBuild {
			continue
		}

		payload, err := o.Decode()
		if err != nil {
			e.recordError(result, o, err, logger)
			continue
		}
		p := payload.(order.AutoBuildPayload)
		if p.Expand <= 0 && p.Research <= 0 {
			continue
		}

		if err := e.applyExpansion(ctx, o, p, logger); err != nil {
			e.recordError(result, o, err, logger)
			continue
		}
		result.Applied++
	}
}

func (e *Engine) applyExpansion(ctx context.Context, o *order.Order, p order.AutoBuildPayload, logger *slog.Logger) error {
	tx, err := e.db.BeginTxContext(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logger.Error("Failed to rollback transaction", "error", err)
		}
	}()

	state, err := e.galaxyRepo.GetStarStateForUpdate(ctx, tx, o.GameID, p.StarID)
	if err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("star %d has no state in game %d", p.StarID, o.GameID)
	}

	available := state.Available
	industry := state.Industry
	technology := state.Technology

	if p.Expand > 0 {
		spend := math.Min(p.Expand, available)
		if spend > 0 {
			industry = grow(industry, spend)
			available = round2(available - spend)

			_, err = e.eventRepo.Append(ctx, tx, o.GameID, o.TurnID, &o.PlayerID, event.KindIndustryExpanded, map[string]interface{}{
				"star_id":   p.StarID,
				"spent":     spend,
				"industry":  industry,
				"available": available,
			})
			if err != nil {
				return err
			}
		}
	}

	if p.Research > 0 {
		spend := math.Min(p.Research, available)
		if spend > 0 {
			technology = grow(technology, spend)
			available = round2(available - spend)

			_, err = e.eventRepo.Append(ctx, tx, o.GameID, o.TurnID, &o.PlayerID, event.KindResearchAdvanced, map[string]interface{}{
				"star_id":    p.StarID,
				"spent":      spend,
				"technology": technology,
				"available":  available,
			})
			if err != nil {
				return err
			}
		}
	}

	if available == state.Available && industry == state.Industry && technology == state.Technology {
		// Nothing to spend; zero-spend expansion is a no-op, not an error.
		return nil
	}

	if err := e.galaxyRepo.UpdateEconomy(ctx, tx, state.ID, available, industry, technology); err != nil {
		return err
	}

	return tx.Commit()
}

// runMovementPhase relocates ships. An empty ship selection means every
// active ship the player has at the source star at this moment, which is why
// selection resolution is deferred to here rather than snapshotted at order
// time. Ships arriving at an enemy star simply relocate; combat is out of
// scope.
func (e *Engine) runMovementPhase(ctx context.Context, finals []order.Order, result *Result, logger *slog.Logger) {
	logger.Debug("Running movement phase")

	for i := range finals {
		o := &finals[i]

		var fromStarID, toStarID int
		var shipIDs []int
		switch o.Type {
		case order.TypeMove:
			payload, err := o.Decode()
			if err != nil {
				e.recordError(result, o, err, logger)
				continue
			}
			p := payload.(order.MovePayload)
			fromStarID, toStarID, shipIDs = p.FromStarID, p.ToStarID, p.ShipIDs
		case order.TypeAutoMove:
			payload, err := o.Decode()
			if err != nil {
				e.recordError(result, o, err, logger)
				continue
			}
			p := payload.(order.AutoMovePayload)
			fromStarID, toStarID = p.FromStarID, p.ToStarID
		default:
			continue
		}

		if err := e.applyMove(ctx, o, fromStarID, toStarID, shipIDs, logger); err != nil {
			e.recordError(result, o, err, logger)
			continue
		}
		result.Applied++
	}
}

func (e *Engine) applyMove(ctx context.Context, o *order.Order, fromStarID, toStarID int, shipIDs []int, logger *slog.Logger) error {
	tx, err := e.db.BeginTxContext(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logger.Error("Failed to rollback transaction", "error", err)
		}
	}()

	destination, err := e.galaxyRepo.GetStarStateForUpdate(ctx, tx, o.GameID, toStarID)
	if err != nil {
		return err
	}
	if destination == nil {
		return fmt.Errorf("destination star %d has no state in game %d", toStarID, o.GameID)
	}

	var moved int
	if len(shipIDs) == 0 {
		moved, err = e.shipRepo.MoveAllShipsAtStar(ctx, tx, o.GameID, o.PlayerID, fromStarID, toStarID)
	} else {
		moved, err = e.shipRepo.MoveShips(ctx, tx, o.GameID, o.PlayerID, fromStarID, toStarID, shipIDs)
	}
	if err != nil {
		return err
	}

	if moved == 0 {
		// No fleet at the source; skip quietly like an unaffordable build.
		logger.Debug("Move order skipped, no ships at source",
			"order_id", o.ID, "from_star_id", fromStarID)
		return nil
	}

	_, err = e.eventRepo.Append(ctx, tx, o.GameID, o.TurnID, &o.PlayerID, event.KindShipsMoved, map[string]interface{}{
		"from_star_id": fromStarID,
		"to_star_id":   toStarID,
		"ships_moved":  moved,
	})
	if err != nil {
		return err
	}

	return tx.Commit()
}
