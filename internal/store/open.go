package store

import (
	"context"
	"fmt"

	"github.com/vntrieu/werewolf/internal/database"
)

// Open picks a backend: PostgreSQL when databaseURL is set, else SQLite when
// sqlitePath is set, else an in-process Memory store. Database backends are
// migrated before they are returned. The returned name is for logging.
func Open(ctx context.Context, databaseURL, sqlitePath string) (Store, string, error) {
	switch {
	case databaseURL != "":
		pool, err := database.Connect(ctx, databaseURL)
		if err != nil {
			return nil, "", fmt.Errorf("database connect: %w", err)
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, "", fmt.Errorf("database migrate: %w", err)
		}
		return NewPostgres(pool), "postgres", nil
	case sqlitePath != "":
		db, err := database.OpenSQLite(ctx, sqlitePath)
		if err != nil {
			return nil, "", err
		}
		if err := database.MigrateSQLite(ctx, db); err != nil {
			_ = db.Close()
			return nil, "", fmt.Errorf("sqlite migrate: %w", err)
		}
		return NewSQLite(db), "sqlite", nil
	default:
		return NewMemory(), "memory", nil
	}
}
