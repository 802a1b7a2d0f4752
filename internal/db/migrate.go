package db

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Migrate brings the schema of the adapter's backend up to date.
func Migrate(ctx context.Context, adapter Adapter, logger goose.Logger) error {
	goose.SetBaseFS(migrationsFS)
	if logger != nil {
		goose.SetLogger(logger)
	}

	if err := goose.SetDialect(adapter.Dialect().gooseDialect()); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, adapter.DB(), adapter.Dialect().migrationsDir()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
