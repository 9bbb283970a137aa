package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vntrieu/werewolf/internal/database"
)

// SetupTestDB creates a migrated test database connection pool.
// It expects DATABASE_URL or TEST_DATABASE_URL to be set and skips otherwise.
// This function is exported so it can be used by other test packages.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		t.Skip("DATABASE_URL or TEST_DATABASE_URL environment variable is required for tests")
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, databaseURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := database.Migrate(ctx, pool); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	// Clean up test data before running tests
	if err := cleanupTestData(ctx, pool); err != nil {
		t.Logf("warning: failed to cleanup test data: %v", err)
	}

	return pool
}

// SetupTestSQLite opens a migrated SQLite store in a temp dir.
func SetupTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "werewolf.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.MigrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	s := NewSQLite(db)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// cleanupTestData removes all test data from the database.
func cleanupTestData(ctx context.Context, pool *pgxpool.Pool) error {
	// Delete in reverse order of foreign key dependencies
	tables := []string{
		"game_events",
		"game_state_snapshots",
		"games",
	}

	for _, table := range tables {
		if _, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}

	return nil
}
