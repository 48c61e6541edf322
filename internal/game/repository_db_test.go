package game_test

import (
	"context"
	"log/slog"
	"testing"

	"starfall-server/internal/event"
	"starfall-server/internal/game"
	"starfall-server/internal/shared/errors"
	"starfall-server/internal/shared/testutil"
	"starfall-server/internal/turn"
)

func TestDeleteGameCascades(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	logger := slog.Default()

	repo := game.NewRepository(db, logger)
	g, err := repo.CreateGame(ctx, game.GameConfig{Name: "delete test"}, nil)
	if err != nil {
		t.Fatalf("failed to create game: %v", err)
	}

	turnRepo := turn.NewRepository(db, logger)
	t1, err := turnRepo.OpenTurn(ctx, nil, g.ID, 1)
	if err != nil {
		t.Fatalf("failed to open turn: %v", err)
	}
	eventRepo := event.NewRepository(db, logger)
	if _, err := eventRepo.Append(ctx, nil, g.ID, t1.ID, nil, event.KindTurnOpened, nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if err := repo.DeleteGame(ctx, g.ID); err != nil {
		t.Fatalf("DeleteGame failed: %v", err)
	}

	got, err := repo.GetGameByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGameByID failed: %v", err)
	}
	if got != nil {
		t.Fatalf("game still present after delete: %+v", got)
	}

	// Dependent rows go with it.
	turns, err := turnRepo.ListTurns(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListTurns failed: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected no turns after delete, got %d", len(turns))
	}
	events, err := eventRepo.ListByTurn(ctx, g.ID, t1.ID)
	if err != nil {
		t.Fatalf("ListByTurn failed: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events after delete, got %d", len(events))
	}

	// Deleting a missing game reports not found.
	if err := repo.DeleteGame(ctx, g.ID); errors.GetType(err) != errors.ErrorTypeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
