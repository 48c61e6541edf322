package order

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
	logger.Debug("Initializing order repository")

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

const orderColumns = `id, game_id, turn_id, player_id, client_order_id, revision, order_type, payload, is_deleted, is_final, finalized_at, created_at`

func scanOrder(scanner interface {
	Scan(dest ...interface{}) error
}) (*Order, error) {
	var o Order
	err := scanner.Scan(
		&o.ID,
		&o.GameID,
		&o.TurnID,
		&o.PlayerID,
		&o.ClientOrderID,
		&o.Revision,
		&o.Type,
		&o.Payload,
		&o.IsDeleted,
		&o.IsFinal,
		&o.FinalizedAt,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// InsertRevision appends a new revision row for a logical order. Rows are
// never updated in place; edits and deletes both go through here.
func (r *Repository) InsertRevision(ctx context.Context, gameID, turnID, playerID int, clientOrderID string, revision int, orderType Type, payload json.RawMessage, isDeleted bool) (*Order, error) {
	logger := r.logger.With(
		"component", "order_repository",
		"operation", "insert_revision",
		"game_id", gameID,
		"turn_id", turnID,
		"player_id", playerID,
		"client_order_id", clientOrderID,
		"revision", revision,
		"order_type", orderType,
		"is_deleted", isDeleted,
	)
	logger.Debug("Inserting order revision")

	query := `
		INSERT INTO orders (game_id, turn_id, player_id, client_order_id, revision, order_type, payload, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + orderColumns

	o, err := scanOrder(r.db.QueryRowContext(ctx, query,
		gameID, turnID, playerID, clientOrderID, revision, orderType, payload, isDeleted))
	if err != nil {
		logger.Error("Failed to insert order revision", "error", err)
		return nil, fmt.Errorf("failed to insert order revision: %w", err)
	}

	logger.Debug("Order revision inserted", "order_id", o.ID)
	return o, nil
}

// GetLatestRevision returns the highest draft revision of a logical order,
// including tombstones, or nil when no revision exists.
func (r *Repository) GetLatestRevision(ctx context.Context, turnID, playerID int, clientOrderID string) (*Order, error) {
	logger := r.logger.With(
		"component", "order_repository",
		"operation", "get_latest_revision",
		"turn_id", turnID,
		"player_id", playerID,
		"client_order_id", clientOrderID,
	)
	logger.Debug("Getting latest order revision")

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE turn_id = $1 AND player_id = $2 AND client_order_id = $3 AND NOT is_final
		ORDER BY revision DESC
		LIMIT 1`

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, turnID, playerID, clientOrderID))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No revision found")
			return nil, nil
		}
		logger.Error("Database error getting latest revision", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return o, nil
}

func (r *Repository) listOrders(ctx context.Context, query string, args ...interface{}) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Error("Failed to close rows", "error", err)
		}
	}()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

// ListLatestDrafts returns, for each logical order of the player's turn, the
// highest non-deleted draft revision.
func (r *Repository) ListLatestDrafts(ctx context.Context, turnID, playerID int) ([]Order, error) {
	logger := r.logger.With(
		"component", "order_repository",
		"operation", "list_latest_drafts",
		"turn_id", turnID,
		"player_id", playerID,
	)
	logger.Debug("Listing latest drafts")

	query := `
		SELECT ` + orderColumns + ` FROM (
			SELECT DISTINCT ON (client_order_id) *
			FROM orders
			WHERE turn_id = $1 AND player_id = $2 AND NOT is_final
			ORDER BY client_order_id, revision DESC
		) latest
		WHERE NOT is_deleted
		ORDER BY client_order_id`

	orders, err := r.listOrders(ctx, query, turnID, playerID)
	if err != nil {
		logger.Error("Failed to list latest drafts", "error", err)
		return nil, err
	}

	logger.Debug("Latest drafts retrieved", "count", len(orders))
	return orders, nil
}

// FinalizePlayerTurn atomically replaces the player's final orders for the
// turn with immutable copies of the current non-deleted drafts. Clearing the
// stale finals and stamping the fresh ones happens in one transaction so a
// concurrent reader never observes zero finals mid-swap.
func (r *Repository) FinalizePlayerTurn(ctx context.Context, turnID, playerID int) ([]Order, error) {
	logger := r.logger.With(
		"component", "order_repository",
		"operation", "finalize_player_turn",
		"turn_id", turnID,
		"player_id", playerID,
	)
	logger.Debug("Finalizing player turn")

	tx, err := r.db.BeginTxContext(ctx)
	if err != nil {
		logger.Error("Failed to begin transaction", "error", err)
		return nil, err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logger.Error("Failed to rollback transaction", "error", err)
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET is_final = FALSE, finalized_at = NULL WHERE turn_id = $1 AND player_id = $2 AND is_final`,
		turnID, playerID,
	); err != nil {
		logger.Error("Failed to clear stale finals", "error", err)
		return nil, fmt.Errorf("failed to clear stale finals: %w", err)
	}

	query := `
		INSERT INTO orders (game_id, turn_id, player_id, client_order_id, revision, order_type, payload, is_deleted, is_final, finalized_at)
		SELECT game_id, turn_id, player_id, client_order_id, revision, order_type, payload, FALSE, TRUE, NOW()
		FROM (
			SELECT DISTINCT ON (client_order_id) *
			FROM orders
			WHERE turn_id = $1 AND player_id = $2 AND NOT is_final
			ORDER BY client_order_id, revision DESC
		) latest
		WHERE NOT is_deleted
		RETURNING ` + orderColumns

	rows, err := tx.QueryContext(ctx, query, turnID, playerID)
	if err != nil {
		logger.Error("Failed to stamp final orders", "error", err)
		return nil, fmt.Errorf("failed to stamp final orders: %w", err)
	}

	var finals []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan final order: %w", err)
		}
		finals = append(finals, *o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating final orders: %w", err)
	}
	if err := rows.Close(); err != nil {
		logger.Error("Failed to close rows", "error", err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit finalize transaction", "error", err)
		return nil, fmt.Errorf("failed to commit finalize: %w", err)
	}

	logger.Info("Player turn finalized", "final_orders", len(finals))
	return finals, nil
}

// ListFinalsByTurn returns every final order of a turn, optionally scoped to
// one player. These are the only orders the resolution engine consumes.
func (r *Repository) ListFinalsByTurn(ctx context.Context, turnID int, playerID *int) ([]Order, error) {
	logger := r.logger.With("component", "order_repository", "operation", "list_finals", "turn_id", turnID)
	logger.Debug("Listing final orders")

	query := `SELECT ` + orderColumns + ` FROM orders WHERE turn_id = $1 AND is_final`
	args := []interface{}{turnID}
	if playerID != nil {
		query += ` AND player_id = $2`
		args = append(args, *playerID)
	}
	query += ` ORDER BY player_id, client_order_id`

	orders, err := r.listOrders(ctx, query, args...)
	if err != nil {
		logger.Error("Failed to list final orders", "error", err)
		return nil, err
	}

	logger.Debug("Final orders retrieved", "count", len(orders))
	return orders, nil
}

// ListDraftsForStar returns the current drafts whose payload acts from the
// given star, optionally scoped to one player. The filter is structural on
// the payload's source-star field, which differs per order type.
func (r *Repository) ListDraftsForStar(ctx context.Context, turnID, starID int, playerID *int) ([]Order, error) {
	logger := r.logger.With(
		"component", "order_repository",
		"operation", "list_drafts_for_star",
		"turn_id", turnID,
		"star_id", starID,
	)
	logger.Debug("Listing drafts for star")

	query := `
		SELECT ` + orderColumns + ` FROM (
			SELECT DISTINCT ON (player_id, client_order_id) *
			FROM orders
			WHERE turn_id = $1 AND NOT is_final
			ORDER BY player_id, client_order_id, revision DESC
		) latest
		WHERE NOT is_deleted
		  AND COALESCE((payload->>'star_id')::int, (payload->>'from_star_id')::int) = $2`
	args := []interface{}{turnID, starID}
	if playerID != nil {
		query += ` AND player_id = $3`
		args = append(args, *playerID)
	}
	query += ` ORDER BY player_id, client_order_id`

	orders, err := r.listOrders(ctx, query, args...)
	if err != nil {
		logger.Error("Failed to list drafts for star", "error", err)
		return nil, err
	}

	logger.Debug("Drafts for star retrieved", "count", len(orders))
	return orders, nil
}
