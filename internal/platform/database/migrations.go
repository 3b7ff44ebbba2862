package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.up.sql
var migrationsFS embed.FS

// Migrate applies every embedded migration in file name order. Each file is
// idempotent, so running it against an existing schema is a no-op.
func Migrate(ctx context.Context, db *sqlx.DB, log *slog.Logger) error {
	names, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		log.Debug("applying migration", "file", name)
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	log.Debug("migrations finished", "count", len(names))
	return nil
}
