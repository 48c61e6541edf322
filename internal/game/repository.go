package game

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"starfall-server/internal/shared/database"
	"starfall-server/internal/shared/errors"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing game repository")

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

const gameColumns = `id, owner_user_id, name, status, map_seed, map_size, map_density, params, created_at, updated_at`

func scanGame(scanner interface {
	Scan(dest ...interface{}) error
}) (*Game, error) {
	var g Game
	err := scanner.Scan(
		&g.ID,
		&g.OwnerUserID,
		&g.Name,
		&g.Status,
		&g.MapSeed,
		&g.MapSize,
		&g.MapDensity,
		&g.Params,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *Repository) CreateGame(ctx context.Context, config GameConfig, tx *database.Tx) (*Game, error) {
	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "game_repository",
		"operation", "create_game",
		"name", config.Name,
	)
	logger.Info("Creating new game")

	params := config.Params
	if len(params) == 0 {
		params = []byte("{}")
	}

	query := `
		INSERT INTO games (owner_user_id, name, status, map_seed, map_size, map_density, params)
		VALUES ($1, $2, 'lobby', $3, $4, $5, $6)
		RETURNING ` + gameColumns

	g, err := scanGame(exec.QueryRowContext(ctx, query,
		config.OwnerUserID, config.Name, config.MapSeed, config.MapSize, config.MapDensity, []byte(params)))
	if err != nil {
		logger.Error("Failed to create game", "error", err)
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	logger.Info("Game created successfully", "game_id", g.ID)
	return g, nil
}

func (r *Repository) GetGameByID(ctx context.Context, gameID int) (*Game, error) {
	logger := r.logger.With("component", "game_repository", "operation", "get_game", "game_id", gameID)
	logger.Debug("Getting game by ID")

	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	g, err := scanGame(r.db.QueryRowContext(ctx, query, gameID))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("Game not found")
			return nil, nil
		}
		logger.Error("Database error getting game", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	logger.Debug("Game retrieved", "name", g.Name, "status", g.Status)
	return g, nil
}

func (r *Repository) GetAllGames(ctx context.Context) ([]Game, error) {
	logger := r.logger.With("component", "game_repository", "operation", "get_all_games")
	logger.Debug("Getting all games")

	query := `SELECT ` + gameColumns + ` FROM games ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Failed to query games", "error", err)
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var games []Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			logger.Error("Failed to scan game row", "error", err)
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, *g)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	logger.Debug("Games retrieved", "count", len(games))
	return games, nil
}

// TransitionStatus is a guarded update that only fires when the game is in
// the expected prior state, so duplicate triggers are safe no-ops.
func (r *Repository) TransitionStatus(ctx context.Context, gameID int, from, to GameStatus) (bool, error) {
	logger := r.logger.With(
		"component", "game_repository",
		"operation", "transition_status",
		"game_id", gameID,
		"from", from,
		"to", to,
	)
	logger.Debug("Transitioning game status")

	query := `UPDATE games SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, to, gameID, from)
	if err != nil {
		logger.Error("Failed to transition game status", "error", err)
		return false, fmt.Errorf("failed to transition game status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	transitioned := rowsAffected == 1
	logger.Debug("Game status transition attempted", "transitioned", transitioned)
	return transitioned, nil
}

func (r *Repository) DeleteGame(ctx context.Context, gameID int) error {
	logger := r.logger.With("component", "game_repository", "operation", "delete_game", "game_id", gameID)
	logger.Info("Deleting game and all related data")

	result, err := r.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, gameID)
	if err != nil {
		logger.Error("Failed to delete game", "error", err)
		return fmt.Errorf("failed to delete game: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		logger.Warn("Game not found for deletion")
		return errors.NotFoundf("game %d not found", gameID)
	}

	logger.Info("Game deleted successfully")
	return nil
}
