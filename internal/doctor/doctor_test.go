package doctor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/envgen/pkg/migrator"
	"github.com/pthm/envgen/pkg/schema"
)

func writeDeclaration(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_CleanDeclaration(t *testing.T) {
	path := writeDeclaration(t, `
services:
  - name: Auth Service
    variables:
      - key: JWT_SECRET
        required: true
      - key: TOKEN_TTL
        type: INT
        default: 3600
`)
	report, err := New(path, nil).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.HasErrors())
	assert.Zero(t, report.Warnings)

	valid, ok := report.Find(CategoryDeclaration, "valid")
	require.True(t, ok)
	assert.Equal(t, "Declaration is valid (1 services, 2 variables)", valid.Message)

	_, ok = report.Find(CategoryDatabase, "connect")
	assert.False(t, ok, "database checks run only with a connection")
}

func TestRun_MissingDeclaration(t *testing.T) {
	report, err := New(filepath.Join(t.TempDir(), "nope.yaml"), nil).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.HasErrors())
	require.Len(t, report.Checks, 1)
	assert.Equal(t, "exists", report.Checks[0].Name)
}

func TestRun_InvalidDeclaration(t *testing.T) {
	path := writeDeclaration(t, `
services:
  - name: App
    variables:
      - key: X
        type: DECIMAL
`)
	report, err := New(path, nil).Run(context.Background())
	require.NoError(t, err)

	check, ok := report.Find(CategoryDeclaration, "valid")
	require.True(t, ok)
	assert.Equal(t, StatusFail, check.Status)
	assert.Contains(t, check.FixHint, "valid types")
}

func TestCheckModel_Variables(t *testing.T) {
	m := &schema.Model{
		Services: []schema.Service{{ID: "app", Name: "App"}},
		Variables: map[string][]schema.Variable{"app": {
			{Key: "PORT", DefaultValue: "eighty", Type: schema.TypeInt},
			{Key: "RATIO", DefaultValue: "half", Type: schema.TypeFloat},
			{Key: "GREETING", DefaultValue: "it's", Type: schema.TypeString},
			{Key: "TAG", DefaultValue: "a`b", Type: schema.TypeString},
			{Key: "lower_key", Type: schema.TypeString},
			{Key: "BLOB", Type: schema.VariableType("BLOB")},
		}},
	}

	report := &Report{}
	CheckModel(report, m)

	for _, name := range []string{"int_default", "float_default", "quote_default", "backtick_default", "go_identifier"} {
		check, ok := report.Find(CategoryVariables, name)
		if assert.True(t, ok, name) {
			assert.Equal(t, StatusWarn, check.Status, name)
		}
	}

	invariant, ok := report.Find(CategoryVariables, "invariant")
	require.True(t, ok)
	assert.Equal(t, StatusFail, invariant.Status)
	assert.Contains(t, invariant.Message, "BLOB")

	_, ok = report.Find(CategoryVariables, "defaults")
	assert.False(t, ok)
}

func TestCheckModel_SymbolCollisions(t *testing.T) {
	m := &schema.Model{
		Services: []schema.Service{
			{ID: "a", Name: "Auth Service"},
			{ID: "b", Name: "auth_service"},
			{ID: "c", Name: "   "},
		},
		Variables: map[string][]schema.Variable{},
	}

	report := &Report{}
	CheckModel(report, m)

	var collisions, empties int
	for _, c := range report.Checks {
		if c.Category != CategorySymbols {
			continue
		}
		assert.Equal(t, StatusFail, c.Status)
		switch c.Name {
		case "collision":
			collisions++
			assert.Contains(t, c.Message, `"Auth Service"`)
		case "empty_symbol":
			empties++
			assert.Equal(t, "c", c.Details)
		}
	}
	assert.Equal(t, 2, collisions, "one per language")
	assert.Equal(t, 2, empties, "one per language")
}

func TestCheckModel_DistinctSymbols(t *testing.T) {
	m := &schema.Model{
		Services:  []schema.Service{{ID: "a", Name: "Auth"}, {ID: "b", Name: "Billing"}},
		Variables: map[string][]schema.Variable{},
	}
	report := &Report{}
	CheckModel(report, m)

	check, ok := report.Find(CategorySymbols, "collision")
	require.True(t, ok)
	assert.Equal(t, StatusPass, check.Status)
	assert.False(t, report.HasErrors())
}

func expectTable(mock sqlmock.Sqlmock, table string, exists bool) {
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(table).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func TestRun_DatabaseMissingTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectTable(mock, migrator.ServicesTable, false)
	expectTable(mock, migrator.VariablesTable, false)
	expectTable(mock, migrator.MigrationsTable, false)

	report, err := New("", db).Run(context.Background())
	require.NoError(t, err)

	check, ok := report.Find(CategoryDatabase, "tables")
	require.True(t, ok)
	assert.Equal(t, StatusFail, check.Status)
	assert.Contains(t, check.Message, migrator.ServicesTable)
	assert.Contains(t, check.FixHint, "envgen migrate")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_DatabaseLoadsModelFromStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectTable(mock, migrator.ServicesTable, true)
	expectTable(mock, migrator.VariablesTable, true)
	expectTable(mock, migrator.MigrationsTable, true)
	mock.ExpectQuery(`SELECT ddl_checksum, ddl_version, table_names`).
		WillReturnRows(sqlmock.NewRows([]string{"ddl_checksum", "ddl_version", "table_names"}).
			AddRow(migrator.ComputeChecksum(migrator.DDL()), migrator.DDLVersion, "{envgen_services,envgen_variables}"))
	mock.ExpectQuery(`SELECT id, name, description\s+FROM envgen_services`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}).AddRow("app", "App", ""))
	mock.ExpectQuery(`SELECT key, default_value, required, type\s+FROM envgen_variables`).
		WithArgs("app").
		WillReturnRows(sqlmock.NewRows([]string{"key", "default_value", "required", "type"}).
			AddRow("PORT", "8080", false, "INT"))

	report, err := New("", db).Run(context.Background())
	require.NoError(t, err)

	migrated, ok := report.Find(CategoryDatabase, "migrated")
	require.True(t, ok)
	assert.Equal(t, StatusPass, migrated.Status)

	defaults, ok := report.Find(CategoryVariables, "defaults")
	require.True(t, ok)
	assert.Equal(t, StatusPass, defaults.Status)
	assert.False(t, report.HasErrors())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReport_Print(t *testing.T) {
	report := &Report{}
	report.AddCheck(CheckResult{Category: "A", Name: "one", Status: StatusPass, Message: "fine", Details: "hidden detail"})
	report.AddCheck(CheckResult{Category: "A", Name: "two", Status: StatusWarn, Message: "meh", FixHint: "do it"})
	report.AddCheck(CheckResult{Category: "B", Name: "three", Status: StatusFail, Message: "broken"})

	var buf bytes.Buffer
	report.Print(&buf, false)
	out := buf.String()

	assert.Contains(t, out, "fine")
	assert.Contains(t, out, "Fix: do it")
	assert.NotContains(t, out, "hidden detail")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("meh")), bytes.Index(buf.Bytes(), []byte("broken")))
	assert.Contains(t, out, "Summary:")

	buf.Reset()
	report.Print(&buf, true)
	assert.Contains(t, buf.String(), "hidden detail")

	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 1, report.Warnings)
	assert.Equal(t, 1, report.Errors)
}

func TestIsExportedIdent(t *testing.T) {
	assert.True(t, isExportedIdent("DATABASE_URL"))
	assert.True(t, isExportedIdent("X1"))
	assert.False(t, isExportedIdent("database_url"))
	assert.False(t, isExportedIdent("1X"))
	assert.False(t, isExportedIdent("MY-KEY"))
	assert.False(t, isExportedIdent(""))
}
