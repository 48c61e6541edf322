package galaxy

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
	logger.Debug("Initializing galaxy repository")

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

// IngestTopology persists a pre-built star/wormhole graph for a game and
// creates a neutral star state for every star.
func (r *Repository) IngestTopology(ctx context.Context, gameID int, topology Topology, tx *database.Tx) ([]Star, error) {
	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "galaxy_repository",
		"operation", "ingest_topology",
		"game_id", gameID,
		"stars", len(topology.Stars),
		"edges", len(topology.Edges),
	)
	logger.Debug("Ingesting topology")

	starsJSON, err := json.Marshal(topology.Stars)
	if err != nil {
		logger.Error("Failed to marshal stars", "error", err)
		return nil, fmt.Errorf("failed to marshal stars: %w", err)
	}

	query := `
		INSERT INTO stars (game_id, name, x, y, resources)
		SELECT
			$1,
			data->>'name',
			(data->>'x')::double precision,
			(data->>'y')::double precision,
			(data->>'resources')::integer
		FROM json_array_elements($2::json) AS data
		RETURNING id, game_id, name, x, y, resources`

	rows, err := exec.QueryContext(ctx, query, gameID, string(starsJSON))
	if err != nil {
		logger.Error("Failed to insert stars", "error", err)
		return nil, fmt.Errorf("failed to insert stars: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var stars []Star
	for rows.Next() {
		var star Star
		if err := rows.Scan(&star.ID, &star.GameID, &star.Name, &star.X, &star.Y, &star.Resources); err != nil {
			logger.Error("Failed to scan star row", "error", err)
			return nil, fmt.Errorf("failed to scan star: %w", err)
		}
		stars = append(stars, star)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating stars: %w", err)
	}

	for _, edge := range topology.Edges {
		if edge.A < 0 || edge.A >= len(stars) || edge.B < 0 || edge.B >= len(stars) {
			return nil, fmt.Errorf("wormhole edge references unknown star index (%d, %d)", edge.A, edge.B)
		}
		_, err := exec.ExecContext(ctx,
			`INSERT INTO wormholes (game_id, star_a, star_b) VALUES ($1, $2, $3)`,
			gameID, stars[edge.A].ID, stars[edge.B].ID,
		)
		if err != nil {
			logger.Error("Failed to insert wormhole", "error", err)
			return nil, fmt.Errorf("failed to insert wormhole: %w", err)
		}
	}

	// Every star starts neutral with its industry seeded from the star's
	// resource value.
	_, err = exec.ExecContext(ctx, `
		INSERT INTO star_states (game_id, star_id, owner_id, available, industry, technology)
		SELECT game_id, id, NULL, 0, resources, 1
		FROM stars
		WHERE game_id = $1`, gameID)
	if err != nil {
		logger.Error("Failed to seed star states", "error", err)
		return nil, fmt.Errorf("failed to seed star states: %w", err)
	}

	logger.Info("Topology ingested", "stars", len(stars), "edges", len(topology.Edges))
	return stars, nil
}

func (r *Repository) GetStarsByGame(ctx context.Context, gameID int) ([]Star, error) {
	logger := r.logger.With("component", "galaxy_repository", "operation", "get_stars", "game_id", gameID)
	logger.Debug("Getting stars by game")

	query := `
		SELECT id, game_id, name, x, y, resources
		FROM stars
		WHERE game_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, gameID)
	if err != nil {
		logger.Error("Failed to query stars", "error", err)
		return nil, fmt.Errorf("failed to query stars: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var stars []Star
	for rows.Next() {
		var star Star
		if err := rows.Scan(&star.ID, &star.GameID, &star.Name, &star.X, &star.Y, &star.Resources); err != nil {
			logger.Error("Failed to scan star row", "error", err)
			return nil, fmt.Errorf("failed to scan star: %w", err)
		}
		stars = append(stars, star)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating stars: %w", err)
	}

	logger.Debug("Stars retrieved", "count", len(stars))
	return stars, nil
}

func (r *Repository) GetWormholesByGame(ctx context.Context, gameID int) ([]Wormhole, error) {
	logger := r.logger.With("component", "galaxy_repository", "operation", "get_wormholes", "game_id", gameID)
	logger.Debug("Getting wormholes by game")

	query := `
		SELECT id, game_id, star_a, star_b
		FROM wormholes
		WHERE game_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, gameID)
	if err != nil {
		logger.Error("Failed to query wormholes", "error", err)
		return nil, fmt.Errorf("failed to query wormholes: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var wormholes []Wormhole
	for rows.Next() {
		var wh Wormhole
		if err := rows.Scan(&wh.ID, &wh.GameID, &wh.StarA, &wh.StarB); err != nil {
			logger.Error("Failed to scan wormhole row", "error", err)
			return nil, fmt.Errorf("failed to scan wormhole: %w", err)
		}
		wormholes = append(wormholes, wh)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating wormholes: %w", err)
	}

	logger.Debug("Wormholes retrieved", "count", len(wormholes))
	return wormholes, nil
}

const starStateColumns = `id, game_id, star_id, owner_id, available, industry, technology, damage, details, updated_at`

func scanStarState(scanner interface {
	Scan(dest ...interface{}) error
}) (*StarState, error) {
	var state StarState
	var details []byte
	err := scanner.Scan(
		&state.ID,
		&state.GameID,
		&state.StarID,
		&state.OwnerID,
		&state.Available,
		&state.Industry,
		&state.Technology,
		&state.Damage,
		&details,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &state.Details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal star details: %w", err)
		}
	}
	return &state, nil
}

func (r *Repository) GetStarState(ctx context.Context, gameID, starID int) (*StarState, error) {
	logger := r.logger.With("component", "galaxy_repository", "operation", "get_star_state", "game_id", gameID, "star_id", starID)
	logger.Debug("Getting star state")

	query := `SELECT ` + starStateColumns + ` FROM star_states WHERE game_id = $1 AND star_id = $2`

	state, err := scanStarState(r.db.QueryRowContext(ctx, query, gameID, starID))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("Star state not found")
			return nil, nil
		}
		logger.Error("Database error getting star state", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return state, nil
}

// GetStarStateForUpdate locks the star's row for the duration of the
// transaction so a single order's economy mutation is applied atomically.
func (r *Repository) GetStarStateForUpdate(ctx context.Context, tx *database.Tx, gameID, starID int) (*StarState, error) {
	query := `SELECT ` + starStateColumns + ` FROM star_states WHERE game_id = $1 AND star_id = $2 FOR UPDATE`

	state, err := scanStarState(tx.QueryRowContext(ctx, query, gameID, starID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return state, nil
}

func (r *Repository) ListStarStates(ctx context.Context, gameID int) ([]StarState, error) {
	return r.listStarStates(ctx, gameID, false)
}

// ListOwnedStarStates returns only states with a known owner, the set the
// standing-order materializer walks at turn open.
func (r *Repository) ListOwnedStarStates(ctx context.Context, gameID int) ([]StarState, error) {
	return r.listStarStates(ctx, gameID, true)
}

func (r *Repository) listStarStates(ctx context.Context, gameID int, ownedOnly bool) ([]StarState, error) {
	logger := r.logger.With("component", "galaxy_repository", "operation", "list_star_states", "game_id", gameID, "owned_only", ownedOnly)
	logger.Debug("Listing star states")

	query := `SELECT ` + starStateColumns + ` FROM star_states WHERE game_id = $1`
	if ownedOnly {
		query += ` AND owner_id IS NOT NULL`
	}
	query += ` ORDER BY star_id`

	rows, err := r.db.QueryContext(ctx, query, gameID)
	if err != nil {
		logger.Error("Failed to query star states", "error", err)
		return nil, fmt.Errorf("failed to query star states: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var states []StarState
	for rows.Next() {
		state, err := scanStarState(rows)
		if err != nil {
			logger.Error("Failed to scan star state row", "error", err)
			return nil, fmt.Errorf("failed to scan star state: %w", err)
		}
		states = append(states, *state)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating star states: %w", err)
	}

	logger.Debug("Star states retrieved", "count", len(states))
	return states, nil
}

// UpdateEconomy persists the point pools of a star state.
func (r *Repository) UpdateEconomy(ctx context.Context, tx *database.Tx, stateID int, available, industry, technology float64) error {
	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "galaxy_repository",
		"operation", "update_economy",
		"state_id", stateID,
		"available", available,
		"industry", industry,
		"technology", technology,
	)
	logger.Debug("Updating star economy")

	query := `
		UPDATE star_states
		SET available = $1, industry = $2, technology = $3, updated_at = NOW()
		WHERE id = $4`

	result, err := exec.ExecContext(ctx, query, available, industry, technology, stateID)
	if err != nil {
		logger.Error("Failed to update star economy", "error", err)
		return fmt.Errorf("failed to update star economy: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		logger.Warn("Star state not found for economy update")
		return fmt.Errorf("star state not found")
	}

	return nil
}

// UpdateDetails replaces the extensible details bag of a star state.
func (r *Repository) UpdateDetails(ctx context.Context, gameID, starID int, details StarDetails) error {
	logger := r.logger.With("component", "galaxy_repository", "operation", "update_details", "game_id", gameID, "star_id", starID)
	logger.Debug("Updating star details")

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		logger.Error("Failed to marshal star details", "error", err)
		return fmt.Errorf("failed to marshal star details: %w", err)
	}

	query := `
		UPDATE star_states
		SET details = $1, updated_at = NOW()
		WHERE game_id = $2 AND star_id = $3`

	result, err := r.db.ExecContext(ctx, query, detailsJSON, gameID, starID)
	if err != nil {
		logger.Error("Failed to update star details", "error", err)
		return fmt.Errorf("failed to update star details: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		logger.Warn("Star state not found for details update")
		return fmt.Errorf("star state not found")
	}

	return nil
}

// ClaimStar assigns ownership of a star and seeds its starting economy.
// Used when a game starts to hand each player a home star.
func (r *Repository) ClaimStar(ctx context.Context, tx *database.Tx, gameID, starID, ownerID int, available, industry, technology float64) error {
	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "galaxy_repository",
		"operation", "claim_star",
		"game_id", gameID,
		"star_id", starID,
		"owner_id", ownerID,
	)
	logger.Debug("Claiming star for player")

	query := `
		UPDATE star_states
		SET owner_id = $1, available = $2, industry = $3, technology = $4, updated_at = NOW()
		WHERE game_id = $5 AND star_id = $6`

	result, err := exec.ExecContext(ctx, query, ownerID, available, industry, technology, gameID, starID)
	if err != nil {
		logger.Error("Failed to claim star", "error", err)
		return fmt.Errorf("failed to claim star: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		logger.Warn("Star state not found for claim")
		return fmt.Errorf("star state not found")
	}

	logger.Info("Star claimed", "star_id", starID, "owner_id", ownerID)
	return nil
}

// GetNeighborStarIDs returns the ids of stars connected by a wormhole.
func (r *Repository) GetNeighborStarIDs(ctx context.Context, gameID, starID int) ([]int, error) {
	logger := r.logger.With("component", "galaxy_repository", "operation", "get_neighbors", "game_id", gameID, "star_id", starID)
	logger.Debug("Getting neighbor stars")

	query := `
		SELECT star_b FROM wormholes WHERE game_id = $1 AND star_a = $2
		UNION
		SELECT star_a FROM wormholes WHERE game_id = $1 AND star_b = $2
		ORDER BY 1`

	rows, err := r.db.QueryContext(ctx, query, gameID, starID)
	if err != nil {
		logger.Error("Failed to query neighbors", "error", err)
		return nil, fmt.Errorf("failed to query neighbors: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var neighbors []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan neighbor: %w", err)
		}
		neighbors = append(neighbors, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating neighbors: %w", err)
	}

	return neighbors, nil
}
