package ship

import (
	"context"
	"fmt"
	"log/slog"

	"starfall-server/internal/shared/database"

	"github.com/lib/pq"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing ship repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) getExecutor(tx *database.Tx) database.Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

// CreateShips inserts count identical ships at a star. New ships spawn with
// hp and power equal to the building star's technology level.
func (r *Repository) CreateShips(ctx context.Context, tx *database.Tx, gameID, ownerID, starID, count int, hp, power float64) ([]int, error) {
	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "ship_repository",
		"operation", "create_ships",
		"game_id", gameID,
		"owner_id", ownerID,
		"star_id", starID,
		"count", count,
	)
	logger.Debug("Creating ships")

	query := `
		INSERT INTO ships (game_id, owner_id, star_id, hp, power, status)
		SELECT $1, $2, $3, $4, $5, 'active'
		FROM generate_series(1, $6)
		RETURNING id`

	rows, err := exec.QueryContext(ctx, query, gameID, ownerID, starID, hp, power, count)
	if err != nil {
		logger.Error("Failed to create ships", "error", err)
		return nil, fmt.Errorf("failed to create ships: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			logger.Error("Failed to scan ship id", "error", err)
			return nil, fmt.Errorf("failed to scan ship id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating ship ids: %w", err)
	}

	logger.Debug("Ships created", "ship_ids", ids)
	return ids, nil
}

func (r *Repository) listShips(ctx context.Context, query string, args ...interface{}) ([]Ship, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ships: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Error("Failed to close rows", "error", err)
		}
	}()

	var ships []Ship
	for rows.Next() {
		var s Ship
		err := rows.Scan(
			&s.ID,
			&s.GameID,
			&s.OwnerID,
			&s.StarID,
			&s.HP,
			&s.Power,
			&s.Status,
			&s.Details,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ship: %w", err)
		}
		ships = append(ships, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ships: %w", err)
	}
	return ships, nil
}

const shipColumns = `id, game_id, owner_id, star_id, hp, power, status, details, created_at`

func (r *Repository) GetShipsByGame(ctx context.Context, gameID int) ([]Ship, error) {
	logger := r.logger.With("component", "ship_repository", "operation", "get_ships_by_game", "game_id", gameID)
	logger.Debug("Getting ships by game")

	query := `SELECT ` + shipColumns + ` FROM ships WHERE game_id = $1 AND status = 'active' ORDER BY id`
	ships, err := r.listShips(ctx, query, gameID)
	if err != nil {
		logger.Error("Failed to list ships", "error", err)
		return nil, err
	}

	logger.Debug("Ships retrieved", "count", len(ships))
	return ships, nil
}

func (r *Repository) GetShipsAtStar(ctx context.Context, gameID, starID int) ([]Ship, error) {
	logger := r.logger.With("component", "ship_repository", "operation", "get_ships_at_star", "game_id", gameID, "star_id", starID)
	logger.Debug("Getting ships at star")

	query := `SELECT ` + shipColumns + ` FROM ships WHERE game_id = $1 AND star_id = $2 AND status = 'active' ORDER BY id`
	ships, err := r.listShips(ctx, query, gameID, starID)
	if err != nil {
		logger.Error("Failed to list ships", "error", err)
		return nil, err
	}

	logger.Debug("Ships retrieved", "count", len(ships))
	return ships, nil
}

// MoveShips relocates an explicit ship selection to a destination star. Only
// active ships owned by the given player at the source star are moved; the
// returned count says how many actually matched.
func (r *Repository) MoveShips(ctx context.Context, tx *database.Tx, gameID, ownerID, fromStarID, toStarID int, shipIDs []int) (int, error) {
	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "ship_repository",
		"operation", "move_ships",
		"game_id", gameID,
		"owner_id", ownerID,
		"from_star_id", fromStarID,
		"to_star_id", toStarID,
		"requested", len(shipIDs),
	)
	logger.Debug("Moving selected ships")

	query := `
		UPDATE ships
		SET star_id = $1
		WHERE game_id = $2 AND owner_id = $3 AND star_id = $4 AND status = 'active'
		  AND id = ANY($5)`

	result, err := exec.ExecContext(ctx, query, toStarID, gameID, ownerID, fromStarID, pq.Array(shipIDs))
	if err != nil {
		logger.Error("Failed to move ships", "error", err)
		return 0, fmt.Errorf("failed to move ships: %w", err)
	}

	moved, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	logger.Debug("Ships moved", "moved", moved)
	return int(moved), nil
}

// MoveAllShipsAtStar relocates every active ship the player has at the
// source star. Used when an order carries an empty ship selection, which is
// resolved against the fleet present at resolution time.
func (r *Repository) MoveAllShipsAtStar(ctx context.Context, tx *database.Tx, gameID, ownerID, fromStarID, toStarID int) (int, error) {
	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "ship_repository",
		"operation", "move_all_ships",
		"game_id", gameID,
		"owner_id", ownerID,
		"from_star_id", fromStarID,
		"to_star_id", toStarID,
	)
	logger.Debug("Moving all ships at star")

	query := `
		UPDATE ships
		SET star_id = $1
		WHERE game_id = $2 AND owner_id = $3 AND star_id = $4 AND status = 'active'`

	result, err := exec.ExecContext(ctx, query, toStarID, gameID, ownerID, fromStarID)
	if err != nil {
		logger.Error("Failed to move ships", "error", err)
		return 0, fmt.Errorf("failed to move ships: %w", err)
	}

	moved, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	logger.Debug("Ships moved", "moved", moved)
	return int(moved), nil
}
