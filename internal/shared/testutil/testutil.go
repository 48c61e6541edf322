package testutil

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"starfall-server/internal/shared/database"
)

var schemaNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// OpenTestDB opens a throwaway schema on the database named by
// TEST_DATABASE_URL, applies the repository migrations to it and returns a
// connection scoped to that schema. Tests are skipped when the variable is
// unset so the suite runs without a database present.
func OpenTestDB(t *testing.T) (*database.DB, func()) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database test")
	}

	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	if !schemaNamePattern.MatchString(schema) {
		t.Fatalf("invalid test schema name %q", schema)
	}

	base, err := database.Open(dsn)
	if err != nil {
		t.Fatalf("open base db: %v", err)
	}
	if _, err := base.Exec(fmt.Sprintf("CREATE SCHEMA %s", schema)); err != nil {
		base.Close()
		t.Fatalf("create schema: %v", err)
	}
	if err := base.Close(); err != nil {
		t.Fatalf("close base db: %v", err)
	}

	db, err := database.Open(withSearchPath(dsn, schema))
	if err != nil {
		t.Fatalf("open schema db: %v", err)
	}

	migrationsPath, err := findMigrationsDir()
	if err != nil {
		db.Close()
		t.Fatalf("locate migrations: %v", err)
	}
	if err := db.RunMigrations(migrationsPath); err != nil {
		db.Close()
		t.Fatalf("apply migrations: %v", err)
	}

	cleanup := func() {
		db.Close()
		base, err := database.Open(dsn)
		if err != nil {
			return
		}
		_, _ = base.Exec(fmt.Sprintf("DROP SCHEMA %s CASCADE", schema))
		base.Close()
	}
	return db, cleanup
}

func findMigrationsDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		p := filepath.Join(dir, "migrations")
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("migrations directory not found from %s", dir)
}

func withSearchPath(dsn, schema string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "search_path=" + url.QueryEscape(schema)
	}
	return dsn + " search_path=" + schema
}
