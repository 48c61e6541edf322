package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"starfall-server/internal/auth"
	"starfall-server/internal/game"
	"starfall-server/internal/middleware"
	"starfall-server/internal/player"
	"starfall-server/internal/shared/errors"
	"starfall-server/internal/shared/testutil"
)

func requestAs(claims *auth.Claims) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/games/1/orders", nil)
	if claims != nil {
		r = r.WithContext(context.WithValue(r.Context(), middleware.UserContextKey, claims))
	}
	return r
}

func TestAuthorizePlayerBindsClaims(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()
	logger := slog.Default()

	g, err := game.NewRepository(db, logger).CreateGame(ctx, game.GameConfig{Name: "authz test"}, nil)
	if err != nil {
		t.Fatalf("failed to create game: %v", err)
	}

	playerRepo := player.NewRepository(db, logger)
	user1, user2 := 101, 102
	p1, err := playerRepo.CreatePlayer(ctx, g.ID, &user1, "alice", "red", "aa", player.PlayerTypeHuman, player.Metadata{})
	if err != nil {
		t.Fatalf("failed to create player: %v", err)
	}
	p2, err := playerRepo.CreatePlayer(ctx, g.ID, &user2, "bob", "blue", "bb", player.PlayerTypeHuman, player.Metadata{})
	if err != nil {
		t.Fatalf("failed to create player: %v", err)
	}

	h := &OrderHandler{players: player.NewService(playerRepo, logger)}

	// Acting on your own player passes.
	if err := h.authorizePlayer(requestAs(&auth.Claims{UserID: user1}), g.ID, p1.ID); err != nil {
		t.Fatalf("expected owner to pass, got %v", err)
	}

	// Acting on another user's player is forbidden.
	err = h.authorizePlayer(requestAs(&auth.Claims{UserID: user1}), g.ID, p2.ID)
	if errors.GetType(err) != errors.ErrorTypeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	// Users who never joined the game have no player to act through.
	err = h.authorizePlayer(requestAs(&auth.Claims{UserID: 999}), g.ID, p1.ID)
	if errors.GetType(err) != errors.ErrorTypeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	// No claims at all.
	err = h.authorizePlayer(requestAs(nil), g.ID, p1.ID)
	if errors.GetType(err) != errors.ErrorTypeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
