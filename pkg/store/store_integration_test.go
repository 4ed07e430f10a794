//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/envgen/pkg/clientgen"
	"github.com/pthm/envgen/pkg/migrator"
	"github.com/pthm/envgen/pkg/parser"
	"github.com/pthm/envgen/pkg/schema"
	"github.com/pthm/envgen/pkg/store"
	"github.com/pthm/envgen/test/testutil"
)

const declaration = `
services:
  - name: Auth Service
    variables:
      - key: JWT_SECRET
        type: STRING
        required: true
      - key: TOKEN_TTL
        type: INT
        default: 3600
  - id: db
    name: Database
    variables:
      - key: DATABASE_URL
        type: URL
        required: true
`

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	s := store.New(db)

	decl, err := parser.ParseString(declaration)
	require.NoError(t, err)
	require.NoError(t, s.ImportModel(ctx, decl.Model))

	// Re-importing is an upsert, not a duplicate.
	require.NoError(t, s.ImportModel(ctx, decl.Model))

	services, err := s.ListServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, decl.Model.Services, services)

	m, report, err := store.NewLoader(s).LoadModel(ctx, nil)
	require.NoError(t, err)
	require.True(t, report.OK(), report.Err())
	assert.Equal(t, decl.Model.Variables, m.Variables)

	got, err := clientgen.Generate("env", m, schema.SelectAll(m), nil)
	require.NoError(t, err)
	assert.Equal(t, "# Auth Service CONFIGURATION\nJWT_SECRET = \nTOKEN_TTL = 3600\n\n# Database CONFIGURATION\nDATABASE_URL =", got)
}

func TestStore_Mutations(t *testing.T) {
	ctx := context.Background()
	s := store.New(testutil.DB(t))

	svc, err := s.CreateService(ctx, schema.Service{Name: "Cache"})
	require.NoError(t, err)
	require.NotEmpty(t, svc.ID)

	require.NoError(t, s.AddVariable(ctx, svc.ID, schema.Variable{Key: "REDIS_URL", Type: schema.TypeURL, Required: true}))
	require.NoError(t, s.AddVariable(ctx, svc.ID, schema.Variable{Key: "TTL", Type: schema.TypeDuration, DefaultValue: "5m"}))
	assert.ErrorIs(t, s.AddVariable(ctx, svc.ID, schema.Variable{Key: "TTL", Type: schema.TypeInt}), store.ErrDuplicateKey)
	assert.ErrorIs(t, s.AddVariable(ctx, "missing", schema.Variable{Key: "X", Type: schema.TypeInt}), store.ErrServiceNotFound)

	vars, err := s.ListVariables(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"REDIS_URL", "TTL"}, []string{vars[0].Key, vars[1].Key})

	require.NoError(t, s.RenameService(ctx, svc.ID, "Redis"))
	got, err := s.GetService(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Redis", got.Name)

	require.NoError(t, s.DeleteService(ctx, svc.ID))
	vars, err = s.ListVariables(ctx, svc.ID)
	require.NoError(t, err)
	assert.Empty(t, vars, "variables must cascade with their service")
}

func TestMigrator_Status(t *testing.T) {
	ctx := context.Background()
	db := testutil.EmptyDB(t)
	m := migrator.NewMigrator(db)

	status, err := m.GetStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.UpToDate)

	skipped, err := m.Migrate(ctx, migrator.MigrateOptions{})
	require.NoError(t, err)
	assert.False(t, skipped)

	skipped, err = m.Migrate(ctx, migrator.MigrateOptions{})
	require.NoError(t, err)
	assert.True(t, skipped)

	status, err = m.GetStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.UpToDate)
}
