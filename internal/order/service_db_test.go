package order_test

import (
	"context"
	"log/slog"
	"testing"

	"starfall-server/internal/game"
	"starfall-server/internal/order"
	"starfall-server/internal/player"
	"starfall-server/internal/shared/database"
	"starfall-server/internal/shared/errors"
	"starfall-server/internal/shared/testutil"
	"starfall-server/internal/turn"
)

type fixture struct {
	gameID   int
	turnID   int
	playerID int
	orders   *order.Service
}

func setup(t *testing.T, db *database.DB) fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.Default()

	g, err := game.NewRepository(db, logger).CreateGame(ctx, game.GameConfig{Name: "test game"}, nil)
	if err != nil {
		t.Fatalf("failed to create game: %v", err)
	}

	p, err := player.NewRepository(db, logger).CreatePlayer(ctx, g.ID, nil, "tester", "red", "xx", player.PlayerTypeHuman, player.Metadata{})
	if err != nil {
		t.Fatalf("failed to create player: %v", err)
	}

	tn, err := turn.NewRepository(db, logger).OpenTurn(ctx, nil, g.ID, 1)
	if err != nil {
		t.Fatalf("failed to open turn: %v", err)
	}

	return fixture{
		gameID:   g.ID,
		turnID:   tn.ID,
		playerID: p.ID,
		orders:   order.NewService(order.NewRepository(db, logger), logger),
	}
}

func TestDraftLifecycle(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	f := setup(t, db)

	created, err := f.orders.CreateDraft(ctx, f.gameID, f.turnID, f.playerID, "build-sol", order.BuildPayload{StarID: 1, Ships: 3})
	if err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}
	if created.Revision != 1 {
		t.Fatalf("expected revision 1, got %d", created.Revision)
	}

	// A second create with the same client ID conflicts.
	_, err = f.orders.CreateDraft(ctx, f.gameID, f.turnID, f.playerID, "build-sol", order.BuildPayload{StarID: 1, Ships: 5})
	if errors.GetType(err) != errors.ErrorTypeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	edited, err := f.orders.EditDraft(ctx, f.gameID, f.turnID, f.playerID, "build-sol", order.BuildPayload{StarID: 1, Ships: 5})
	if err != nil {
		t.Fatalf("EditDraft failed: %v", err)
	}
	if edited.Revision != 2 {
		t.Fatalf("expected revision 2, got %d", edited.Revision)
	}

	drafts, err := f.orders.ListLatestDrafts(ctx, f.turnID, f.playerID)
	if err != nil {
		t.Fatalf("ListLatestDrafts failed: %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(drafts))
	}
	payload, err := drafts[0].Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if payload.(order.BuildPayload).Ships != 5 {
		t.Fatalf("latest revision not returned: %+v", payload)
	}

	if err := f.orders.DeleteDraft(ctx, f.gameID, f.turnID, f.playerID, "build-sol"); err != nil {
		t.Fatalf("DeleteDraft failed: %v", err)
	}

	drafts, err = f.orders.ListLatestDrafts(ctx, f.turnID, f.playerID)
	if err != nil {
		t.Fatalf("ListLatestDrafts failed: %v", err)
	}
	if len(drafts) != 0 {
		t.Fatalf("deleted draft still listed: %+v", drafts)
	}

	// Editing a deleted order is not found.
	_, err = f.orders.EditDraft(ctx, f.gameID, f.turnID, f.playerID, "build-sol", order.BuildPayload{StarID: 1, Ships: 1})
	if errors.GetType(err) != errors.ErrorTypeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	// Re-creating continues the revision history.
	recreated, err := f.orders.CreateDraft(ctx, f.gameID, f.turnID, f.playerID, "build-sol", order.BuildPayload{StarID: 1, Ships: 2})
	if err != nil {
		t.Fatalf("CreateDraft after delete failed: %v", err)
	}
	if recreated.Revision != 4 {
		t.Fatalf("expected revision 4 after tombstone, got %d", recreated.Revision)
	}
}

func TestFinalizeTurn(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	f := setup(t, db)

	if _, err := f.orders.CreateDraft(ctx, f.gameID, f.turnID, f.playerID, "build-sol", order.BuildPayload{StarID: 1, Ships: 3}); err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}
	if _, err := f.orders.CreateDraft(ctx, f.gameID, f.turnID, f.playerID, "move-fleet", order.MovePayload{FromStarID: 1, ToStarID: 2}); err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}
	if _, err := f.orders.CreateDraft(ctx, f.gameID, f.turnID, f.playerID, "doomed", order.BuildPayload{StarID: 2, Ships: 1}); err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}
	if err := f.orders.DeleteDraft(ctx, f.gameID, f.turnID, f.playerID, "doomed"); err != nil {
		t.Fatalf("DeleteDraft failed: %v", err)
	}

	finals, err := f.orders.FinalizeTurn(ctx, f.turnID, f.playerID)
	if err != nil {
		t.Fatalf("FinalizeTurn failed: %v", err)
	}
	if len(finals) != 2 {
		t.Fatalf("expected 2 finals, got %d", len(finals))
	}
	for _, o := range finals {
		if !o.IsFinal || o.FinalizedAt == nil {
			t.Fatalf("final order missing final stamp: %+v", o)
		}
	}

	// Finalizing again after an edit replaces the final set, never appends.
	if _, err := f.orders.EditDraft(ctx, f.gameID, f.turnID, f.playerID, "build-sol", order.BuildPayload{StarID: 1, Ships: 9}); err != nil {
		t.Fatalf("EditDraft failed: %v", err)
	}
	finals, err = f.orders.FinalizeTurn(ctx, f.turnID, f.playerID)
	if err != nil {
		t.Fatalf("FinalizeTurn failed: %v", err)
	}
	if len(finals) != 2 {
		t.Fatalf("expected 2 finals after refinalize, got %d", len(finals))
	}

	stored, err := f.orders.ListFinalsByTurn(ctx, f.turnID, &f.playerID)
	if err != nil {
		t.Fatalf("ListFinalsByTurn failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored finals, got %d", len(stored))
	}
	for _, o := range stored {
		if o.ClientOrderID != "build-sol" {
			continue
		}
		payload, err := o.Decode()
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if payload.(order.BuildPayload).Ships != 9 {
			t.Fatalf("refinalize kept stale payload: %+v", payload)
		}
	}
}

func TestListDraftsForStar(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	f := setup(t, db)

	if _, err := f.orders.CreateDraft(ctx, f.gameID, f.turnID, f.playerID, "build-sol", order.BuildPayload{StarID: 1, Ships: 3}); err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}
	if _, err := f.orders.CreateDraft(ctx, f.gameID, f.turnID, f.playerID, "move-out", order.MovePayload{FromStarID: 1, ToStarID: 2}); err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}
	if _, err := f.orders.CreateDraft(ctx, f.gameID, f.turnID, f.playerID, "elsewhere", order.BuildPayload{StarID: 2, Ships: 1}); err != nil {
		t.Fatalf("CreateDraft failed: %v", err)
	}

	drafts, err := f.orders.ListDraftsForStar(ctx, f.turnID, 1, nil)
	if err != nil {
		t.Fatalf("ListDraftsForStar failed: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts acting from star 1, got %d", len(drafts))
	}
	for _, o := range drafts {
		if o.ClientOrderID == "elsewhere" {
			t.Fatal("draft for another star returned")
		}
	}
}
