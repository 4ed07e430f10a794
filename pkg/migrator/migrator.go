// Package migrator installs the Postgres tables backing pkg/store.
//
// Migration is idempotent and safe to run on every start. Each run records
// the checksum of the DDL it applied in envgen_migrations; when neither the
// checksum nor DDLVersion changed since the last run, the migration is
// skipped.
//
//	db, _ := sql.Open("postgres", dsn)
//	skipped, err := migrator.MigrateWithOptions(ctx, db, migrator.MigrateOptions{})
package migrator

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// DDLVersion is incremented whenever the table layout changes in a way the
// checksum alone would not capture.
const DDLVersion = "1"

// Table names managed by the migrator.
const (
	ServicesTable   = "envgen_services"
	VariablesTable  = "envgen_variables"
	MigrationsTable = "envgen_migrations"
)

const servicesDDL = `CREATE TABLE IF NOT EXISTS envgen_services (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	position    INTEGER NOT NULL
)`

const variablesDDL = `CREATE TABLE IF NOT EXISTS envgen_variables (
	service_id    TEXT NOT NULL REFERENCES envgen_services (id) ON DELETE CASCADE,
	key           TEXT NOT NULL,
	default_value TEXT NOT NULL DEFAULT '',
	required      BOOLEAN NOT NULL DEFAULT FALSE,
	type          TEXT NOT NULL,
	position      INTEGER NOT NULL,
	UNIQUE (service_id, key)
)`

const migrationsDDL = `CREATE TABLE IF NOT EXISTS envgen_migrations (
	id           BIGSERIAL PRIMARY KEY,
	ddl_checksum TEXT NOT NULL,
	ddl_version  TEXT NOT NULL,
	table_names  TEXT[] NOT NULL,
	applied_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// tableDDL lists the store tables in creation order.
var tableDDL = []struct {
	name string
	ddl  string
}{
	{ServicesTable, servicesDDL},
	{VariablesTable, variablesDDL},
}

// MigrateOptions controls migration behavior.
type MigrateOptions struct {
	// DryRun writes the SQL that would run to the writer and applies nothing.
	DryRun io.Writer

	// Force re-applies the DDL even when the last migration matches.
	Force bool
}

// MigrationRecord represents a row in envgen_migrations.
type MigrationRecord struct {
	DDLChecksum string
	DDLVersion  string
	TableNames  []string
}

// Migrator applies the store DDL to a database.
type Migrator struct {
	db     Execer
	logger *zap.Logger
}

// NewMigrator creates a migrator. The Execer is typically *sql.DB, which
// makes the migration transactional, but *sql.Conn works too.
func NewMigrator(db Execer) *Migrator {
	return &Migrator{db: db, logger: zap.NewNop()}
}

// WithLogger sets the logger used for progress messages.
func (m *Migrator) WithLogger(l *zap.Logger) *Migrator {
	if l != nil {
		m.logger = l
	}
	return m
}

// DDL returns the full DDL applied by Migrate, in order.
func DDL() string {
	parts := make([]string, 0, len(tableDDL)+1)
	parts = append(parts, migrationsDDL)
	for _, t := range tableDDL {
		parts = append(parts, t.ddl)
	}
	return strings.Join(parts, ";\n\n") + ";"
}

// TableNames returns the store tables in creation order.
func TableNames() []string {
	names := make([]string, len(tableDDL))
	for i, t := range tableDDL {
		names[i] = t.name
	}
	return names
}

// ComputeChecksum returns a SHA256 hash of content.
func ComputeChecksum(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

// Migrate applies the DDL. It returns skipped=true when the last recorded
// migration has the same checksum and version and Force is not set.
func (m *Migrator) Migrate(ctx context.Context, opts MigrateOptions) (skipped bool, err error) {
	checksum := ComputeChecksum(DDL())

	if opts.DryRun != nil {
		m.outputDryRun(opts.DryRun, checksum)
		return false, nil
	}

	if !opts.Force {
		last, err := m.GetLastMigration(ctx)
		if err != nil {
			return false, errors.Wrap(err, "checking last migration")
		}
		if shouldSkipMigration(last, checksum) {
			m.logger.Debug("store schema unchanged, skipping migration", zap.String("checksum", checksum))
			return true, nil
		}
	}

	if txer, ok := m.db.(TxBeginner); ok {
		tx, err := txer.BeginTx(ctx, nil)
		if err != nil {
			return false, errors.Wrap(err, "starting transaction")
		}
		defer func() { _ = tx.Rollback() }()

		if err := m.apply(ctx, tx, checksum); err != nil {
			return false, err
		}
		if err := tx.Commit(); err != nil {
			return false, errors.Wrap(err, "committing migration")
		}
	} else if err := m.apply(ctx, m.db, checksum); err != nil {
		// Fall back to non-transactional (for *sql.Conn)
		return false, err
	}

	m.logger.Info("store schema migrated",
		zap.String("checksum", checksum),
		zap.String("ddl_version", DDLVersion),
		zap.Strings("tables", TableNames()),
	)
	return false, nil
}

func (m *Migrator) apply(ctx context.Context, db Execer, checksum string) error {
	if _, err := db.ExecContext(ctx, migrationsDDL); err != nil {
		return errors.Wrap(err, "applying migrations DDL")
	}
	for _, t := range tableDDL {
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return errors.Wrapf(err, "creating %s", t.name)
		}
	}
	return m.insertMigrationRecord(ctx, db, checksum)
}

// insertMigrationRecord records the migration in envgen_migrations.
func (m *Migrator) insertMigrationRecord(ctx context.Context, db Execer, checksum string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO envgen_migrations (ddl_checksum, ddl_version, table_names)
		VALUES ($1, $2, $3)
	`, checksum, DDLVersion, pq.Array(TableNames()))
	if err != nil {
		return errors.Wrap(err, "inserting migration record")
	}
	return nil
}

// GetLastMigration returns the most recent migration record, or nil if none
// exists.
func (m *Migrator) GetLastMigration(ctx context.Context) (*MigrationRecord, error) {
	exists, err := tableExists(ctx, m.db, MigrationsTable)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	var rec MigrationRecord
	err = m.db.QueryRowContext(ctx, `
		SELECT ddl_checksum, ddl_version, table_names
		FROM envgen_migrations
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&rec.DDLChecksum, &rec.DDLVersion, pq.Array(&rec.TableNames))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying last migration")
	}
	return &rec, nil
}

// shouldSkipMigration returns true if the DDL checksum and version are unchanged.
func shouldSkipMigration(last *MigrationRecord, checksum string) bool {
	if last == nil {
		return false
	}
	return last.DDLChecksum == checksum && last.DDLVersion == DDLVersion
}

// Status represents the current migration state.
type Status struct {
	// Tables maps each store table to whether it exists.
	Tables map[string]bool

	// LastMigration is the most recent record, or nil.
	LastMigration *MigrationRecord

	// UpToDate is true when every table exists and the last migration
	// matches the current DDL.
	UpToDate bool
}

// GetStatus reports which store tables exist and whether the schema is
// current. Useful for health checks and `envgen status`.
func (m *Migrator) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{Tables: make(map[string]bool, len(tableDDL))}
	allExist := true
	for _, t := range tableDDL {
		exists, err := tableExists(ctx, m.db, t.name)
		if err != nil {
			return nil, err
		}
		status.Tables[t.name] = exists
		allExist = allExist && exists
	}

	last, err := m.GetLastMigration(ctx)
	if err != nil {
		return nil, err
	}
	status.LastMigration = last
	status.UpToDate = allExist && shouldSkipMigration(last, ComputeChecksum(DDL()))
	return status, nil
}

func tableExists(ctx context.Context, db Execer, name string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pg_class c
			JOIN pg_namespace n ON n.oid = c.relnamespace
			WHERE c.relname = $1
			AND n.nspname = current_schema()
			AND c.relkind IN ('r', 'p')
		)
	`, name).Scan(&exists)
	if err != nil {
		return false, errors.Wrapf(err, "checking %s", name)
	}
	return exists, nil
}

// outputDryRun writes the migration SQL to the provided writer.
func (m *Migrator) outputDryRun(w io.Writer, checksum string) {
	_, _ = fmt.Fprintf(w, "-- envgen store migration (dry-run)\n")
	_, _ = fmt.Fprintf(w, "-- DDL checksum: %s\n", checksum)
	_, _ = fmt.Fprintf(w, "-- DDL version: %s\n\n", DDLVersion)

	_, _ = fmt.Fprintf(w, "%s;\n\n", migrationsDDL)
	for _, t := range tableDDL {
		_, _ = fmt.Fprintf(w, "-- %s\n%s;\n\n", t.name, t.ddl)
	}

	quoted := make([]string, 0, len(tableDDL))
	for _, name := range TableNames() {
		quoted = append(quoted, fmt.Sprintf("'%s'", name))
	}
	_, _ = fmt.Fprintf(w, "INSERT INTO envgen_migrations (ddl_checksum, ddl_version, table_names)\n")
	_, _ = fmt.Fprintf(w, "VALUES ('%s', '%s', ARRAY[%s]);\n", checksum, DDLVersion, strings.Join(quoted, ", "))
}
