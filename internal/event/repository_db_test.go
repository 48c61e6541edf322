package event_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"starfall-server/internal/event"
	"starfall-server/internal/game"
	"starfall-server/internal/player"
	"starfall-server/internal/shared/testutil"
	"starfall-server/internal/turn"
)

func TestAppendAssignsPerTurnSeq(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	logger := slog.Default()

	g, err := game.NewRepository(db, logger).CreateGame(ctx, game.GameConfig{Name: "event test"}, nil)
	if err != nil {
		t.Fatalf("failed to create game: %v", err)
	}
	turnRepo := turn.NewRepository(db, logger)
	t1, err := turnRepo.OpenTurn(ctx, nil, g.ID, 1)
	if err != nil {
		t.Fatalf("failed to open turn: %v", err)
	}
	t2, err := turnRepo.OpenTurn(ctx, nil, g.ID, 2)
	if err != nil {
		t.Fatalf("failed to open turn: %v", err)
	}

	repo := event.NewRepository(db, logger)

	for i := 0; i < 3; i++ {
		if _, err := repo.Append(ctx, nil, g.ID, t1.ID, nil, event.KindShipsBuilt, map[string]int{"n": i}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	// A second turn starts its own seq at 1.
	appended, err := repo.Append(ctx, nil, g.ID, t2.ID, nil, event.KindTurnOpened, nil)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if appended.Seq != 1 {
		t.Fatalf("expected seq 1 on new turn, got %d", appended.Seq)
	}

	events, err := repo.ListByTurn(ctx, g.ID, t1.ID)
	if err != nil {
		t.Fatalf("ListByTurn failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, e := range events {
		if e.Seq != i+1 {
			t.Fatalf("expected seq %d, got %d", i+1, e.Seq)
		}
	}
}

func TestListByPlayerTurn(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	logger := slog.Default()

	g, err := game.NewRepository(db, logger).CreateGame(ctx, game.GameConfig{Name: "event scope test"}, nil)
	if err != nil {
		t.Fatalf("failed to create game: %v", err)
	}
	p, err := player.NewRepository(db, logger).CreatePlayer(ctx, g.ID, nil, "alice", "red", "aa", player.PlayerTypeHuman, player.Metadata{})
	if err != nil {
		t.Fatalf("failed to create player: %v", err)
	}
	t1, err := turn.NewRepository(db, logger).OpenTurn(ctx, nil, g.ID, 1)
	if err != nil {
		t.Fatalf("failed to open turn: %v", err)
	}

	repo := event.NewRepository(db, logger)

	if _, err := repo.Append(ctx, nil, g.ID, t1.ID, nil, event.KindTurnOpened, nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := repo.Append(ctx, nil, g.ID, t1.ID, &p.ID, event.KindPlayerFinished, nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	scoped, err := repo.ListByPlayerTurn(ctx, g.ID, t1.ID, p.ID)
	if err != nil {
		t.Fatalf("ListByPlayerTurn failed: %v", err)
	}
	if len(scoped) != 1 {
		t.Fatalf("expected 1 player event, got %d", len(scoped))
	}
	if scoped[0].Kind != event.KindPlayerFinished {
		t.Fatalf("unexpected kind %s", scoped[0].Kind)
	}

	all, err := repo.ListByTurn(ctx, g.ID, t1.ID)
	if err != nil {
		t.Fatalf("ListByTurn failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 events, got %d", len(all))
	}
}

func TestListByKind(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	logger := slog.Default()

	g, err := game.NewRepository(db, logger).CreateGame(ctx, game.GameConfig{Name: "kind test"}, nil)
	if err != nil {
		t.Fatalf("failed to create game: %v", err)
	}
	turnRepo := turn.NewRepository(db, logger)
	t1, err := turnRepo.OpenTurn(ctx, nil, g.ID, 1)
	if err != nil {
		t.Fatalf("failed to open turn: %v", err)
	}
	t2, err := turnRepo.OpenTurn(ctx, nil, g.ID, 2)
	if err != nil {
		t.Fatalf("failed to open turn: %v", err)
	}

	repo := event.NewRepository(db, logger)
	for _, tid := range []int{t1.ID, t2.ID} {
		if _, err := repo.Append(ctx, nil, g.ID, tid, nil, event.KindTurnOpened, nil); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if _, err := repo.Append(ctx, nil, g.ID, tid, nil, event.KindShipsBuilt, nil); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	// Only the requested kind comes back, newest turn first.
	opened, err := repo.ListByKind(ctx, g.ID, event.KindTurnOpened, 10)
	if err != nil {
		t.Fatalf("ListByKind failed: %v", err)
	}
	if len(opened) != 2 {
		t.Fatalf("expected 2 events, got %d", len(opened))
	}
	if opened[0].TurnID != t2.ID || opened[1].TurnID != t1.ID {
		t.Fatalf("expected newest first, got turns %d, %d", opened[0].TurnID, opened[1].TurnID)
	}
	for _, e := range opened {
		if e.Kind != event.KindTurnOpened {
			t.Fatalf("unexpected kind %s", e.Kind)
		}
	}

	// The limit caps the result.
	capped, err := repo.ListByKind(ctx, g.ID, event.KindTurnOpened, 1)
	if err != nil {
		t.Fatalf("ListByKind failed: %v", err)
	}
	if len(capped) != 1 || capped[0].TurnID != t2.ID {
		t.Fatalf("expected just the newest event, got %+v", capped)
	}
}

// Appends racing outside a transaction can compute the same seq; the unique
// constraint rejects the loser and the repository retries it.
func TestConcurrentAppendsKeepSeqContiguous(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	logger := slog.Default()

	g, err := game.NewRepository(db, logger).CreateGame(ctx, game.GameConfig{Name: "append race test"}, nil)
	if err != nil {
		t.Fatalf("failed to create game: %v", err)
	}
	t1, err := turn.NewRepository(db, logger).OpenTurn(ctx, nil, g.ID, 1)
	if err != nil {
		t.Fatalf("failed to open turn: %v", err)
	}

	repo := event.NewRepository(db, logger)

	const appenders = 4
	var wg sync.WaitGroup
	errs := make([]error, appenders)
	for i := 0; i < appenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Append(ctx, nil, g.ID, t1.ID, nil, event.KindPlayerFinished, map[string]int{"n": i})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	events, err := repo.ListByTurn(ctx, g.ID, t1.ID)
	if err != nil {
		t.Fatalf("ListByTurn failed: %v", err)
	}
	if len(events) != appenders {
		t.Fatalf("expected %d events, got %d", appenders, len(events))
	}
	for i, e := range events {
		if e.Seq != i+1 {
			t.Fatalf("seq gap at %d: %+v", i, e)
		}
	}
}
