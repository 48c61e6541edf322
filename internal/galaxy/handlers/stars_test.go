package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"starfall-server/internal/auth"
	"starfall-server/internal/galaxy"
	"starfall-server/internal/game"
	"starfall-server/internal/middleware"
	"starfall-server/internal/player"
	"starfall-server/internal/shared/errors"
	"starfall-server/internal/shared/testutil"
)

func requestAs(claims *auth.Claims) *http.Request {
	r := httptest.NewRequest(http.MethodPut, "/api/games/1/stars/1/standing-orders", nil)
	if claims != nil {
		r = r.WithContext(context.WithValue(r.Context(), middleware.UserContextKey, claims))
	}
	return r
}

func TestAuthorizeOwnerRejectsNonOwners(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	logger := slog.Default()

	g, err := game.NewRepository(db, logger).CreateGame(ctx, game.GameConfig{Name: "ownership test"}, nil)
	if err != nil {
		t.Fatalf("failed to create game: %v", err)
	}

	playerRepo := player.NewRepository(db, logger)
	user1, user2 := 201, 202
	p1, err := playerRepo.CreatePlayer(ctx, g.ID, &user1, "alice", "red", "aa", player.PlayerTypeHuman, player.Metadata{})
	if err != nil {
		t.Fatalf("failed to create player: %v", err)
	}
	if _, err := playerRepo.CreatePlayer(ctx, g.ID, &user2, "bob", "blue", "bb", player.PlayerTypeHuman, player.Metadata{}); err != nil {
		t.Fatalf("failed to create player: %v", err)
	}

	galaxyRepo := galaxy.NewRepository(db, logger)
	stars, err := galaxyRepo.IngestTopology(ctx, g.ID, galaxy.Topology{
		Stars: []galaxy.TopologyStar{
			{Name: "Sol", X: 0, Y: 0, Resources: 5},
			{Name: "Vega", X: 1, Y: 0, Resources: 5},
		},
		Edges: []galaxy.TopologyEdge{{A: 0, B: 1}},
	}, nil)
	if err != nil {
		t.Fatalf("failed to ingest topology: %v", err)
	}
	if err := galaxyRepo.ClaimStar(ctx, nil, g.ID, stars[0].ID, p1.ID, 10, 5, 5); err != nil {
		t.Fatalf("failed to claim star: %v", err)
	}

	h := &StarHandler{
		service: galaxy.NewService(galaxyRepo, logger),
		players: player.NewService(playerRepo, logger),
	}

	// The owner may change their star's standing orders.
	if err := h.authorizeOwner(requestAs(&auth.Claims{UserID: user1}), g.ID, stars[0].ID); err != nil {
		t.Fatalf("expected owner to pass, got %v", err)
	}

	// Another player in the game may not.
	err = h.authorizeOwner(requestAs(&auth.Claims{UserID: user2}), g.ID, stars[0].ID)
	if errors.GetType(err) != errors.ErrorTypeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	// Unowned stars have no owner to act for.
	err = h.authorizeOwner(requestAs(&auth.Claims{UserID: user1}), g.ID, stars[1].ID)
	if errors.GetType(err) != errors.ErrorTypeForbidden {
		t.Fatalf("expected forbidden for unowned star, got %v", err)
	}

	// Users outside the game and unauthenticated callers are rejected.
	err = h.authorizeOwner(requestAs(&auth.Claims{UserID: 999}), g.ID, stars[0].ID)
	if errors.GetType(err) != errors.ErrorTypeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	err = h.authorizeOwner(requestAs(nil), g.ID, stars[0].ID)
	if errors.GetType(err) != errors.ErrorTypeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
