package migrator

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const existsQuery = `SELECT EXISTS`

func expectTableExists(mock sqlmock.Sqlmock, table string, exists bool) {
	mock.ExpectQuery(existsQuery).
		WithArgs(table).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func expectLastMigration(mock sqlmock.Sqlmock, checksum, version string) {
	expectTableExists(mock, MigrationsTable, true)
	mock.ExpectQuery(`SELECT ddl_checksum, ddl_version, table_names\s+FROM envgen_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"ddl_checksum", "ddl_version", "table_names"}).
			AddRow(checksum, version, "{envgen_services,envgen_variables}"))
}

func expectApply(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS envgen_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS envgen_services`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS envgen_variables`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO envgen_migrations`).
		WithArgs(ComputeChecksum(DDL()), DDLVersion, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
}

func TestMigrate_FreshDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectTableExists(mock, MigrationsTable, false)
	expectApply(mock)

	skipped, err := NewMigrator(db).Migrate(context.Background(), MigrateOptions{})
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_SkipsWhenUnchanged(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectLastMigration(mock, ComputeChecksum(DDL()), DDLVersion)

	skipped, err := MigrateWithOptions(context.Background(), db, MigrateOptions{})
	require.NoError(t, err)
	assert.True(t, skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_ReappliesOnVersionChange(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectLastMigration(mock, ComputeChecksum(DDL()), "0")
	expectApply(mock)

	skipped, err := MigrateWithOptions(context.Background(), db, MigrateOptions{})
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_Force(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// No last-migration lookup when forced.
	expectApply(mock)

	skipped, err := MigrateWithOptions(context.Background(), db, MigrateOptions{Force: true})
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS envgen_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS envgen_services`).WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	_, err = MigrateWithOptions(context.Background(), db, MigrateOptions{Force: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating envgen_services")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_DryRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf bytes.Buffer
	skipped, err := MigrateWithOptions(context.Background(), db, MigrateOptions{DryRun: &buf})
	require.NoError(t, err)
	assert.False(t, skipped)

	out := buf.String()
	assert.Contains(t, out, "-- envgen store migration (dry-run)")
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS envgen_services")
	assert.Contains(t, out, "ON DELETE CASCADE")
	assert.Contains(t, out, "ARRAY['envgen_services', 'envgen_variables']")
	assert.NoError(t, mock.ExpectationsWereMet(), "dry run must not touch the database")
}

func TestGetStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectTableExists(mock, ServicesTable, true)
	expectTableExists(mock, VariablesTable, false)
	expectTableExists(mock, MigrationsTable, false)

	status, err := NewMigrator(db).GetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{ServicesTable: true, VariablesTable: false}, status.Tables)
	assert.Nil(t, status.LastMigration)
	assert.False(t, status.UpToDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStatus_UpToDate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectTableExists(mock, ServicesTable, true)
	expectTableExists(mock, VariablesTable, true)
	expectLastMigration(mock, ComputeChecksum(DDL()), DDLVersion)

	status, err := NewMigrator(db).GetStatus(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status.LastMigration)
	assert.Equal(t, []string{ServicesTable, VariablesTable}, status.LastMigration.TableNames)
	assert.True(t, status.UpToDate)
}

func TestShouldSkipMigration(t *testing.T) {
	assert.False(t, shouldSkipMigration(nil, "abc"))
	assert.True(t, shouldSkipMigration(&MigrationRecord{DDLChecksum: "abc", DDLVersion: DDLVersion}, "abc"))
	assert.False(t, shouldSkipMigration(&MigrationRecord{DDLChecksum: "abd", DDLVersion: DDLVersion}, "abc"))
}

func TestDDL(t *testing.T) {
	ddl := DDL()
	assert.Less(t, strings.Index(ddl, "envgen_services ("), strings.Index(ddl, "envgen_variables ("),
		"services must be created before the table referencing it")
	assert.Equal(t, ComputeChecksum(ddl), ComputeChecksum(DDL()))
}
