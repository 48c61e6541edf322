package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"starfall-server/internal/auth"
	"starfall-server/internal/shared/config"
)

func setTestAuthConfig(t *testing.T) {
	t.Helper()
	prev := config.GlobalConfig
	config.GlobalConfig = &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-test-secret-test-secret!",
			TokenExpiration: time.Hour,
		},
	}
	t.Cleanup(func() { config.GlobalConfig = prev })
}

func TestRequireAdmin(t *testing.T) {
	setTestAuthConfig(t)

	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	adminToken, err := auth.GenerateJWT(1, auth.RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}
	userToken, err := auth.GenerateJWT(2, "user")
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"admin passes", adminToken, http.StatusNoContent},
		{"non-admin forbidden", userToken, http.StatusForbidden},
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "not-a-token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodDelete, "/api/games/1", nil)
			if tt.token != "" {
				r.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Fatalf("got status %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestValidateJWTRejectsTamperedToken(t *testing.T) {
	setTestAuthConfig(t)

	token, err := auth.GenerateJWT(1, auth.RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	claims, err := auth.ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT failed: %v", err)
	}
	if claims.UserID != 1 || claims.Role != auth.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := auth.ValidateJWT(token + "x"); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}
