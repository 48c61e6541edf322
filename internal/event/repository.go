package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"starfall-server/internal/shared/database"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing event repository")

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

// Append inserts an event with the next sequence number for the turn. The
// seq assignment and the insert are one statement, so appends made inside
// the caller's transaction keep the per-turn ordering guarantee. Two
// concurrent appends outside a transaction can still compute the same seq;
// the loser hits the unique constraint and is retried. Inside a transaction
// a retry is impossible (the violation aborts it), so in-tx callers must
// serialize appends themselves.
func (r *Repository) Append(ctx context.Context, tx *database.Tx, gameID, turnID int, playerID *int, kind Kind, details interface{}) (*Event, error) {
	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "event_repository",
		"operation", "append",
		"game_id", gameID,
		"turn_id", turnID,
		"kind", kind,
	)
	logger.Debug("Appending event")

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		logger.Error("Failed to marshal event details", "error", err)
		return nil, fmt.Errorf("failed to marshal event details: %w", err)
	}

	query := `
		INSERT INTO events (game_id, turn_id, seq, player_id, kind, details)
		SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4, $5
		FROM events
		WHERE game_id = $1 AND turn_id = $2
		RETURNING id, game_id, turn_id, seq, player_id, kind, details, created_at`

	const maxAttempts = 5

	var e Event
	for attempt := 1; ; attempt++ {
		err = exec.QueryRowContext(ctx, query, gameID, turnID, playerID, kind, detailsJSON).Scan(
			&e.ID,
			&e.GameID,
			&e.TurnID,
			&e.Seq,
			&e.PlayerID,
			&e.Kind,
			&e.Details,
			&e.CreatedAt,
		)
		if err == nil {
			break
		}
		if tx == nil && attempt < maxAttempts && isUniqueViolation(err) {
			logger.Debug("Seq taken by concurrent append, retrying", "attempt", attempt)
			continue
		}
		logger.Error("Failed to append event", "error", err)
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	logger.Debug("Event appended", "seq", e.Seq)
	return &e, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

const eventColumns = `id, game_id, turn_id, seq, player_id, kind, details, created_at`

func (r *Repository) listEvents(ctx context.Context, query string, args ...interface{}) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Error("Failed to close rows", "error", err)
		}
	}()

	var events []Event
	for rows.Next() {
		var e Event
		err := rows.Scan(
			&e.ID,
			&e.GameID,
			&e.TurnID,
			&e.Seq,
			&e.PlayerID,
			&e.Kind,
			&e.Details,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// ListByTurn returns every event of a turn in sequence order.
func (r *Repository) ListByTurn(ctx context.Context, gameID, turnID int) ([]Event, error) {
	logger := r.logger.With("component", "event_repository", "operation", "list_by_turn", "game_id", gameID, "turn_id", turnID)
	logger.Debug("Listing events by turn")

	query := `SELECT ` + eventColumns + ` FROM events WHERE game_id = $1 AND turn_id = $2 ORDER BY seq`
	events, err := r.listEvents(ctx, query, gameID, turnID)
	if err != nil {
		logger.Error("Failed to list events", "error", err)
		return nil, err
	}

	logger.Debug("Events retrieved", "count", len(events))
	return events, nil
}

// ListByPlayerTurn returns a player's events for a turn in sequence order.
func (r *Repository) ListByPlayerTurn(ctx context.Context, gameID, turnID, playerID int) ([]Event, error) {
	logger := r.logger.With("component", "event_repository", "operation", "list_by_player_turn", "game_id", gameID, "turn_id", turnID, "player_id", playerID)
	logger.Debug("Listing events by player and turn")

	query := `SELECT ` + eventColumns + ` FROM events WHERE game_id = $1 AND turn_id = $2 AND player_id = $3 ORDER BY seq`
	events, err := r.listEvents(ctx, query, gameID, turnID, playerID)
	if err != nil {
		logger.Error("Failed to list events", "error", err)
		return nil, err
	}

	logger.Debug("Events retrieved", "count", len(events))
	return events, nil
}

// ListByKind returns the most recent events of one kind across all turns of
// a game, newest first, capped at limit.
func (r *Repository) ListByKind(ctx context.Context, gameID int, kind Kind, limit int) ([]Event, error) {
	logger := r.logger.With("component", "event_repository", "operation", "list_by_kind", "game_id", gameID, "kind", kind, "limit", limit)
	logger.Debug("Listing events by kind")

	query := `SELECT ` + eventColumns + ` FROM events WHERE game_id = $1 AND kind = $2 ORDER BY turn_id DESC, seq DESC LIMIT $3`
	events, err := r.listEvents(ctx, query, gameID, kind, limit)
	if err != nil {
		logger.Error("Failed to list events", "error", err)
		return nil, err
	}

	logger.Debug("Events retrieved", "count", len(events))
	return events, nil
}
