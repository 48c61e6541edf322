package turn

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"starfall-server/internal/shared/database"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing turn repository")

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

const turnColumns = `id, game_id, number, status, opened_at, closed_at`

func scanTurn(scanner interface {
	Scan(dest ...interface{}) error
}) (*Turn, error) {
	var t Turn
	err := scanner.Scan(
		&t.ID,
		&t.GameID,
		&t.Number,
		&t.Status,
		&t.OpenedAt,
		&t.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// OpenTurn opens the given turn number, or returns the existing row when the
// number is already open. The unique (game_id, number) constraint makes the
// call idempotent under concurrent advancers.
func (r *Repository) OpenTurn(ctx context.Context, tx *database.Tx, gameID, number int) (*Turn, error) {
	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "turn_repository",
		"operation", "open_turn",
		"game_id", gameID,
		"number", number,
	)

	insert := `
		INSERT INTO turns (game_id, number, status)
		VALUES ($1, $2, 'open')
		ON CONFLICT (game_id, number) DO NOTHING`

	if _, err := exec.ExecContext(ctx, insert, gameID, number); err != nil {
		logger.Error("Failed to open turn", "error", err)
		return nil, fmt.Errorf("failed to open turn %d: %w", number, err)
	}

	query := `SELECT ` + turnColumns + ` FROM turns WHERE game_id = $1 AND number = $2`
	t, err := scanTurn(exec.QueryRowContext(ctx, query, gameID, number))
	if err != nil {
		logger.Error("Failed to read opened turn", "error", err)
		return nil, fmt.Errorf("failed to read turn %d: %w", number, err)
	}

	logger.Info("Turn open", "turn_id", t.ID, "status", t.Status)
	return t, nil
}

// GetOpenTurn returns the game's currently open turn, or nil when none is.
func (r *Repository) GetOpenTurn(ctx context.Context, gameID int) (*Turn, error) {
	query := `SELECT ` + turnColumns + ` FROM turns WHERE game_id = $1 AND status = 'open' ORDER BY number DESC LIMIT 1`

	t, err := scanTurn(r.db.QueryRowContext(ctx, query, gameID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get open turn", "game_id", gameID, "error", err)
		return nil, fmt.Errorf("failed to get open turn: %w", err)
	}
	return t, nil
}

func (r *Repository) GetTurnByID(ctx context.Context, turnID int) (*Turn, error) {
	query := `SELECT ` + turnColumns + ` FROM turns WHERE id = $1`

	t, err := scanTurn(r.db.QueryRowContext(ctx, query, turnID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error("Failed to get turn", "turn_id", turnID, "error", err)
		return nil, fmt.Errorf("failed to get turn %d: %w", turnID, err)
	}
	return t, nil
}

func (r *Repository) ListTurns(ctx context.Context, gameID int) ([]Turn, error) {
	query := `SELECT ` + turnColumns + ` FROM turns WHERE game_id = $1 ORDER BY number ASC`

	rows, err := r.db.QueryContext(ctx, query, gameID)
	if err != nil {
		r.logger.Error("Failed to list turns", "game_id", gameID, "error", err)
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, *t)
	}
	return turns, rows.Err()
}

// MarkResolving moves an open turn into resolving. Returns false when the
// turn was not open, which means another advancer got there first.
func (r *Repository) MarkResolving(ctx context.Context, turnID int) (bool, error) {
	logger := r.logger.With(
		"component", "turn_repository",
		"operation", "mark_resolving",
		"turn_id", turnID,
	)

	query := `UPDATE turns SET status = 'resolving' WHERE id = $1 AND status = 'open'`

	result, err := r.db.ExecContext(ctx, query, turnID)
	if err != nil {
		logger.Error("Failed to mark turn resolving", "error", err)
		return false, fmt.Errorf("failed to mark turn resolving: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		logger.Warn("Turn was not open, resolution already claimed")
		return false, nil
	}

	logger.Info("Turn marked resolving")
	return true, nil
}

// CloseTurn moves a resolving turn into closed and stamps closed_at.
func (r *Repository) CloseTurn(ctx context.Context, tx *database.Tx, turnID int) error {
	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "turn_repository",
		"operation", "close_turn",
		"turn_id", turnID,
	)

	query := `UPDATE turns SET status = 'closed', closed_at = NOW() WHERE id = $1 AND status = 'resolving'`

	result, err := exec.ExecContext(ctx, query, turnID)
	if err != nil {
		logger.Error("Failed to close turn", "error", err)
		return fmt.Errorf("failed to close turn: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("turn %d is not resolving, cannot close", turnID)
	}

	logger.Info("Turn closed")
	return nil
}
