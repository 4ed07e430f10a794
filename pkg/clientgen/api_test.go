package clientgen_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/envgen/pkg/clientgen"
	"github.com/pthm/envgen/pkg/schema"
)

func authModel() *schema.Model {
	return &schema.Model{
		Services: []schema.Service{{ID: "auth", Name: "Auth Service"}},
		Variables: map[string][]schema.Variable{
			"auth": {
				{Key: "JWT_SECRET", Required: true, Type: schema.TypeString},
				{Key: "TOKEN_TTL", DefaultValue: "3600", Type: schema.TypeInt},
			},
		},
	}
}

func TestListTargets(t *testing.T) {
	assert.Equal(t, []string{"env", "typescript", "go", "python"}, clientgen.ListTargets())
}

func TestDefaultFilename(t *testing.T) {
	assert.Equal(t, ".env", clientgen.DefaultFilename("env"))
	assert.Equal(t, "env.ts", clientgen.DefaultFilename("ts"))
	assert.Equal(t, "config.go", clientgen.DefaultFilename("go"))
	assert.Equal(t, "config.py", clientgen.DefaultFilename("python"))
	assert.Empty(t, clientgen.DefaultFilename("rust"))
}

func TestGenerate(t *testing.T) {
	m := authModel()

	t.Run("end to end env", func(t *testing.T) {
		got, err := clientgen.Generate("env", m, schema.SelectAll(m), nil)
		require.NoError(t, err)
		assert.Equal(t, "# Auth Service CONFIGURATION\nJWT_SECRET = \nTOKEN_TTL = 3600", got)
	})

	t.Run("end to end typescript", func(t *testing.T) {
		got, err := clientgen.Generate("typescript", m, schema.SelectAll(m), nil)
		require.NoError(t, err)
		assert.Contains(t, got, "JWT_SECRET: z.string(),")
		assert.Contains(t, got, "TOKEN_TTL: z.coerce.number().int().optional().default(3600),")
	})

	t.Run("end to end python", func(t *testing.T) {
		got, err := clientgen.Generate("python", m, schema.SelectAll(m), nil)
		require.NoError(t, err)
		assert.Contains(t, got, "class AuthServiceConfig(BaseSettings):")
		assert.Contains(t, got, "JWT_SECRET: str\n")
		assert.Contains(t, got, "TOKEN_TTL: int | None = 3600\n")
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := clientgen.Generate("rust", m, schema.SelectAll(m), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, clientgen.ErrUnknownTarget)
	})

	t.Run("inclusion filter", func(t *testing.T) {
		ctx := schema.SelectAll(m).WithOverride("auth", "TOKEN_TTL", schema.Override{Included: false})
		for _, target := range clientgen.ListTargets() {
			got, err := clientgen.Generate(target, m, ctx, nil)
			require.NoError(t, err)
			assert.NotContains(t, got, "TOKEN_TTL", target)
		}
	})
}

func TestGenerateAll(t *testing.T) {
	m := authModel()
	artifacts, err := clientgen.GenerateAll(context.Background(), m, schema.SelectAll(m), nil)
	require.NoError(t, err)
	require.Len(t, artifacts, 4)

	for i, name := range clientgen.ListTargets() {
		assert.Equal(t, name, artifacts[i].Target)
		assert.Equal(t, clientgen.DefaultFilename(name), artifacts[i].Filename)

		single, err := clientgen.Generate(name, m, schema.SelectAll(m), nil)
		require.NoError(t, err)
		assert.Equal(t, single, artifacts[i].Content, name)
	}

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := clientgen.GenerateAll(ctx, m, schema.SelectAll(m), nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
