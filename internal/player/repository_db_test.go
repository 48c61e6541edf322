package player_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"starfall-server/internal/game"
	"starfall-server/internal/player"
	"starfall-server/internal/shared/testutil"
)

// The last two active players flipping to waiting at the same moment is the
// case the per-game lock exists for: without it each session's count sees
// the other still active and nobody is elected to resolve the turn.
func TestMarkWaitingAndCheckConcurrentLastFinishers(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	logger := slog.Default()

	g, err := game.NewRepository(db, logger).CreateGame(ctx, game.GameConfig{Name: "readiness test"}, nil)
	if err != nil {
		t.Fatalf("failed to create game: %v", err)
	}

	repo := player.NewRepository(db, logger)
	p1, err := repo.CreatePlayer(ctx, g.ID, nil, "alice", "red", "aa", player.PlayerTypeHuman, player.Metadata{})
	if err != nil {
		t.Fatalf("failed to create player: %v", err)
	}
	p2, err := repo.CreatePlayer(ctx, g.ID, nil, "bob", "blue", "bb", player.PlayerTypeHuman, player.Metadata{})
	if err != nil {
		t.Fatalf("failed to create player: %v", err)
	}

	type outcome struct {
		flipped bool
		last    bool
		err     error
	}
	outcomes := make([]outcome, 2)

	var wg sync.WaitGroup
	for i, pid := range []int{p1.ID, p2.ID} {
		wg.Add(1)
		go func(i, pid int) {
			defer wg.Done()
			flipped, last, err := repo.MarkWaitingAndCheck(ctx, g.ID, pid)
			outcomes[i] = outcome{flipped: flipped, last: last, err: err}
		}(i, pid)
	}
	wg.Wait()

	lastCount := 0
	for i, o := range outcomes {
		if o.err != nil {
			t.Fatalf("MarkWaitingAndCheck %d failed: %v", i, o.err)
		}
		if !o.flipped {
			t.Fatalf("player %d was not flipped to waiting", i)
		}
		if o.last {
			lastCount++
		}
	}
	if lastCount != 1 {
		t.Fatalf("expected exactly one last finisher, got %d", lastCount)
	}

	// A repeated call finds the player already waiting.
	flipped, last, err := repo.MarkWaitingAndCheck(ctx, g.ID, p1.ID)
	if err != nil {
		t.Fatalf("repeated MarkWaitingAndCheck failed: %v", err)
	}
	if flipped || last {
		t.Fatalf("repeated call flipped=%v last=%v, want false/false", flipped, last)
	}
}
