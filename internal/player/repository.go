package player

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"starfall-server/internal/shared/database"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing player repository")

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

const playerColumns = `id, game_id, user_id, name, color, country, status, type, metadata, created_at, updated_at`

func scanPlayer(scanner interface {
	Scan(dest ...interface{}) error
}) (*Player, error) {
	var p Player
	var metadata []byte
	err := scanner.Scan(
		&p.ID,
		&p.GameID,
		&p.UserID,
		&p.Name,
		&p.Color,
		&p.Country,
		&p.Status,
		&p.Type,
		&metadata,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal player metadata: %w", err)
		}
	}
	return &p, nil
}

func (r *Repository) CreatePlayer(ctx context.Context, gameID int, userID *int, name, color, country string, playerType PlayerType, metadata Metadata) (*Player, error) {
	logger := r.logger.With(
		"component", "player_repository",
		"operation", "create_player",
		"game_id", gameID,
		"name", name,
		"type", playerType,
	)
	logger.Info("Creating player")

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		logger.Error("Failed to marshal player metadata", "error", err)
		return nil, fmt.Errorf("failed to marshal player metadata: %w", err)
	}

	query := `
		INSERT INTO players (game_id, user_id, name, color, country, status, type, metadata)
		VALUES ($1, $2, $3, $4, $5, 'active', $6, $7)
		RETURNING ` + playerColumns

	p, err := scanPlayer(r.db.QueryRowContext(ctx, query, gameID, userID, name, color, country, playerType, metadataJSON))
	if err != nil {
		logger.Error("Failed to create player", "error", err)
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	logger.Info("Player created successfully", "player_id", p.ID)
	return p, nil
}

func (r *Repository) GetPlayerByID(ctx context.Context, playerID int) (*Player, error) {
	logger := r.logger.With("component", "player_repository", "operation", "get_player", "player_id", playerID)
	logger.Debug("Getting player by ID")

	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	p, err := scanPlayer(r.db.QueryRowContext(ctx, query, playerID))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("Player not found")
			return nil, nil
		}
		logger.Error("Database error getting player", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return p, nil
}

// GetPlayerByUserAndGame finds the player a user controls in a game, or nil
// when the user has not joined it.
func (r *Repository) GetPlayerByUserAndGame(ctx context.Context, gameID, userID int) (*Player, error) {
	logger := r.logger.With("component", "player_repository", "operation", "get_player_by_user", "game_id", gameID, "user_id", userID)
	logger.Debug("Getting player by user and game")

	query := `SELECT ` + playerColumns + ` FROM players WHERE game_id = $1 AND user_id = $2`

	p, err := scanPlayer(r.db.QueryRowContext(ctx, query, gameID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("Player not found for user")
			return nil, nil
		}
		logger.Error("Database error getting player", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return p, nil
}

func (r *Repository) GetPlayersByGame(ctx context.Context, gameID int) ([]Player, error) {
	logger := r.logger.With("component", "player_repository", "operation", "get_players_by_game", "game_id", gameID)
	logger.Debug("Getting players by game")

	query := `SELECT ` + playerColumns + ` FROM players WHERE game_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, gameID)
	if err != nil {
		logger.Error("Failed to query players", "error", err)
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var players []Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			logger.Error("Failed to scan player row", "error", err)
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, *p)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	logger.Debug("Players retrieved", "count", len(players))
	return players, nil
}

// MarkWaitingAndCheck flips one player from active to waiting and reports
// whether that flip completed the set of waiting players. Flip and count run
// in one transaction behind a per-game advisory lock: concurrent end-turn
// calls queue on the lock, so each caller's count sees every earlier flip
// committed and exactly one caller observes lastToFinish=true. Without the
// lock two simultaneous last finishers each see the other still active and
// neither would trigger resolution.
func (r *Repository) MarkWaitingAndCheck(ctx context.Context, gameID, playerID int) (flipped bool, lastToFinish bool, err error) {
	logger := r.logger.With(
		"component", "player_repository",
		"operation", "mark_waiting_and_check",
		"game_id", gameID,
		"player_id", playerID,
	)
	logger.Debug("Marking player waiting")

	tx, err := r.db.BeginTxContext(ctx)
	if err != nil {
		return false, false, err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logger.Error("Failed to rollback transaction", "error", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, gameID); err != nil {
		logger.Error("Failed to acquire game readiness lock", "error", err)
		return false, false, fmt.Errorf("failed to acquire game readiness lock: %w", err)
	}

	flipQuery := `
		UPDATE players
		SET status = 'waiting', updated_at = NOW()
		WHERE id = $1 AND game_id = $2 AND status = 'active'`

	result, err := tx.ExecContext(ctx, flipQuery, playerID, gameID)
	if err != nil {
		logger.Error("Failed to mark player waiting", "error", err)
		return false, false, fmt.Errorf("failed to mark player waiting: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	flipped = rowsAffected == 1

	remainingQuery := `
		SELECT COUNT(*) FROM players
		WHERE game_id = $1
		  AND status NOT IN ('waiting', 'suspended', 'ejected')`

	var remaining int
	if err := tx.QueryRowContext(ctx, remainingQuery, gameID).Scan(&remaining); err != nil {
		logger.Error("Failed to count remaining players", "error", err)
		return false, false, fmt.Errorf("failed to count remaining players: %w", err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit readiness update", "error", err)
		return false, false, fmt.Errorf("failed to commit readiness update: %w", err)
	}

	lastToFinish = flipped && remaining == 0

	logger.Debug("Player readiness updated",
		"flipped", flipped,
		"remaining_active", remaining,
		"last_to_finish", lastToFinish)
	return flipped, lastToFinish, nil
}

// ResetStatuses returns every waiting player of a game to active. Runs when
// a new turn opens.
func (r *Repository) ResetStatuses(ctx context.Context, tx *database.Tx, gameID int) (int, error) {
	exec := r.getExecutor(tx)

	logger := r.logger.With("component", "player_repository", "operation", "reset_statuses", "game_id", gameID)
	logger.Debug("Resetting player statuses")

	query := `
		UPDATE players
		SET status = 'active', updated_at = NOW()
		WHERE game_id = $1 AND status = 'waiting'`

	result, err := exec.ExecContext(ctx, query, gameID)
	if err != nil {
		logger.Error("Failed to reset player statuses", "error", err)
		return 0, fmt.Errorf("failed to reset player statuses: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	logger.Debug("Player statuses reset", "count", rowsAffected)
	return int(rowsAffected), nil
}
