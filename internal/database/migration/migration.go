// Package migration applies the embedded schema with goose.
package migration

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	"reqdesk/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const dir = "migrations"

func init() {
	goose.SetBaseFS(migrationsFS)
}

// EnsureMigrated brings the schema up to the latest embedded version.
// Already applied versions are skipped by goose, so it is safe on every boot.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *logger.Logger) error {
	start := time.Now()
	ctx = log.WithField(ctx, "component", "database")

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	goose.SetLogger(goose.NopLogger())

	before, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		log.Error(ctx, "db_migration_failed", err)
		return fmt.Errorf("read schema version: %w", err)
	}

	if err := goose.UpContext(ctx, db, dir); err != nil {
		log.Error(ctx, "db_migration_failed", err)
		return fmt.Errorf("goose up: %w", err)
	}

	after, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	log.Zerolog(ctx).Info().
		Int64("from_version", before).
		Int64("to_version", after).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("db_migration_success")
	return nil
}

// Versions lists the embedded migration versions in order.
func Versions() ([]int64, error) {
	migrations, err := goose.CollectMigrations(dir, 0, goose.MaxVersion)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(migrations))
	for _, m := range migrations {
		out = append(out, m.Version)
	}
	return out, nil
}
