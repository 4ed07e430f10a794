package migrator

import (
	"context"

	"go.uber.org/zap"
)

// Migrate installs the store tables. It is idempotent and safe to call on
// every application startup:
//
//	if err := migrator.Migrate(ctx, db); err != nil {
//	    log.Fatalf("migration failed: %v", err)
//	}
//
// For dry-run output or forced re-application use MigrateWithOptions.
func Migrate(ctx context.Context, db Execer) error {
	_, err := NewMigrator(db).Migrate(ctx, MigrateOptions{})
	return err
}

// MigrateWithOptions performs migration with control over dry-run and skip
// behavior. skipped is true when the recorded checksum and DDL version match
// and Force was not set.
//
// Example: write the migration script without applying it
//
//	var buf bytes.Buffer
//	_, err := migrator.MigrateWithOptions(ctx, db, migrator.MigrateOptions{DryRun: &buf})
//	os.WriteFile("migrations/001_envgen.sql", buf.Bytes(), 0o644)
func MigrateWithOptions(ctx context.Context, db Execer, opts MigrateOptions) (skipped bool, err error) {
	return NewMigrator(db).Migrate(ctx, opts)
}

// MigrateWithLogger is MigrateWithOptions with progress logged to l.
func MigrateWithLogger(ctx context.Context, db Execer, opts MigrateOptions, l *zap.Logger) (skipped bool, err error) {
	return NewMigrator(db).WithLogger(l).Migrate(ctx, opts)
}
