package game

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"starfall-server/internal/galaxy"
	"starfall-server/internal/player"
	"starfall-server/internal/shared/config"
	"starfall-server/internal/shared/database"
	"starfall-server/internal/shared/errors"
	"starfall-server/internal/turn"
)

type Service struct {
	db          *database.DB
	gameRepo    *Repository
	galaxyRepo  *galaxy.Repository
	playerSvc   *player.Service
	turnService *turn.Service
	logger      *slog.Logger
}

func NewService(
	db *database.DB,
	gameRepo *Repository,
	galaxyRepo *galaxy.Repository,
	playerSvc *player.Service,
	turnService *turn.Service,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:          db,
		gameRepo:    gameRepo,
		galaxyRepo:  galaxyRepo,
		playerSvc:   playerSvc,
		turnService: turnService,
		logger:      logger,
	}
}

// CreateGame persists a new lobby game together with its pre-built star and
// wormhole topology in one transaction.
func (s *Service) CreateGame(ctx context.Context, config GameConfig, topology galaxy.Topology) (*Game, error) {
	logger := s.logger.With("component", "game_service", "operation", "create_game", "name", config.Name)
	logger.Info("Creating new game")

	if config.Name == "" {
		return nil, errors.Validation("game name is required")
	}
	if len(topology.Stars) == 0 {
		return nil, errors.Validation("game topology must contain at least one star")
	}

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logger.Error("Failed to rollback transaction", "error", err)
		}
	}()

	g, err := s.gameRepo.CreateGame(ctx, config, tx)
	if err != nil {
		return nil, err
	}

	if _, err := s.galaxyRepo.IngestTopology(ctx, g.ID, topology, tx); err != nil {
		logger.Error("Failed to ingest topology", "game_id", g.ID, "error", err)
		return nil, fmt.Errorf("failed to ingest topology: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit game creation: %w", err)
	}

	logger.Info("Game created with topology",
		"game_id", g.ID,
		"stars", len(topology.Stars),
		"wormholes", len(topology.Edges))
	return g, nil
}

func (s *Service) GetGameByID(ctx context.Context, gameID int) (*Game, error) {
	return s.gameRepo.GetGameByID(ctx, gameID)
}

func (s *Service) GetAllGames(ctx context.Context) ([]Game, error) {
	return s.gameRepo.GetAllGames(ctx)
}

func (s *Service) DeleteGame(ctx context.Context, gameID int) error {
	return s.gameRepo.DeleteGame(ctx, gameID)
}

// JoinGame adds a participant to a game still in the lobby.
func (s *Service) JoinGame(ctx context.Context, gameID int, userID *int, name, color, country string, playerType player.PlayerType, metadata player.Metadata) (*player.Player, error) {
	g, err := s.gameRepo.GetGameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, errors.NotFoundf("game %d not found", gameID)
	}
	if g.Status != GameStatusLobby {
		return nil, errors.Conflictf("game %d is not accepting players", gameID)
	}

	return s.playerSvc.AddPlayer(ctx, gameID, userID, name, color, country, playerType, metadata)
}

// StartGame moves a lobby game to running: each player is handed a home
// star seeded with the starting economy, and the first turn opens.
func (s *Service) StartGame(ctx context.Context, gameID int) (*Game, error) {
	logger := s.logger.With("component", "game_service", "operation", "start_game", "game_id", gameID)
	logger.Info("Starting game")

	g, err := s.gameRepo.GetGameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, errors.NotFoundf("game %d not found", gameID)
	}
	if g.Status != GameStatusLobby {
		return nil, errors.Conflictf("game %d already started", gameID)
	}

	players, err := s.playerSvc.GetPlayersByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, errors.Validation("cannot start a game with no players")
	}

	stars, err := s.galaxyRepo.GetStarsByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if len(stars) < len(players) {
		return nil, errors.Validationf("game has %d stars for %d players", len(stars), len(players))
	}

	if err := s.assignHomeStars(ctx, gameID, players, stars); err != nil {
		logger.Error("Failed to assign home stars", "error", err)
		return nil, fmt.Errorf("failed to assign home stars: %w", err)
	}

	transitioned, err := s.gameRepo.TransitionStatus(ctx, gameID, GameStatusLobby, GameStatusRunning)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		return nil, errors.Conflictf("game %d already started", gameID)
	}

	if _, err := s.turnService.OpenTurn(ctx, gameID, 1); err != nil {
		logger.Error("Failed to open first turn", "error", err)
		return nil, fmt.Errorf("failed to open first turn: %w", err)
	}

	updated, err := s.gameRepo.GetGameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}

	logger.Info("Game started", "players", len(players))
	return updated, nil
}

// assignHomeStars spreads players across the star list and seeds each home
// star with the configured starting economy, all in one transaction.
func (s *Service) assignHomeStars(ctx context.Context, gameID int, players []player.Player, stars []galaxy.Star) error {
	cfg := config.GlobalConfig.Game

	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			s.logger.Error("Failed to rollback transaction", "error", err)
		}
	}()

	// Spread home stars across the list instead of clustering at the start.
	stride := len(stars) / len(players)
	if stride == 0 {
		stride = 1
	}

	for i, p := range players {
		star := stars[(i*stride)%len(stars)]
		err := s.galaxyRepo.ClaimStar(ctx, tx, gameID, star.ID, p.ID,
			cfg.StartingAvailable, cfg.StartingIndustry, cfg.StartingTechnology)
		if err != nil {
			return fmt.Errorf("failed to claim home star for player %d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit home star assignment: %w", err)
	}
	return nil
}
