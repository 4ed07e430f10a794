package selector

import (
	"context"
	"testing"

	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/envgen/pkg/schema"
)

func testModel() *schema.Model {
	return &schema.Model{
		Services: []schema.Service{
			{ID: "auth", Name: "Auth Service"},
			{ID: "db", Name: "Database"},
			{ID: "empty", Name: "Empty"},
		},
		Variables: map[string][]schema.Variable{
			"auth": {
				{Key: "JWT_SECRET", Required: true, Type: schema.TypeString},
				{Key: "TOKEN_TTL", DefaultValue: "3600", Type: schema.TypeInt},
			},
			"db": {
				{Key: "DATABASE_URL", Required: true, Type: schema.TypeURL},
			},
		},
	}
}

func TestParseRef(t *testing.T) {
	svc, key, err := ParseRef(" auth.JWT_SECRET ")
	require.NoError(t, err)
	assert.Equal(t, "auth", svc)
	assert.Equal(t, "JWT_SECRET", key)

	svc, key, err = ParseRef("auth.dotted.key")
	require.NoError(t, err)
	assert.Equal(t, "auth", svc)
	assert.Equal(t, "dotted.key", key)

	for _, bad := range []string{"", "auth", ".KEY", "auth."} {
		_, _, err := ParseRef(bad)
		assert.ErrorIs(t, err, ErrBadReference, bad)
	}
}

func TestApply(t *testing.T) {
	m := testModel()
	base := schema.SelectAll(m)

	t.Run("no refs keeps base", func(t *testing.T) {
		ctx, err := Apply(m, base, Refs{})
		require.NoError(t, err)
		assert.Equal(t, base, ctx)
		assert.True(t, Refs{}.Empty())
	})

	t.Run("services replace selection in given order", func(t *testing.T) {
		ctx, err := Apply(m, base, Refs{Services: []string{"db", "auth", "db"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"db", "auth"}, ctx.SelectedServiceIDs)
	})

	t.Run("flags", func(t *testing.T) {
		ctx, err := Apply(m, base, Refs{
			Exclude:  []string{"auth.TOKEN_TTL"},
			Optional: []string{"auth.JWT_SECRET", "db.DATABASE_URL"},
			Require:  []string{"db.DATABASE_URL"},
		})
		require.NoError(t, err)

		auth := m.Variables["auth"]
		assert.Equal(t, schema.Override{Included: true, Required: false}, ctx.Effective("auth", auth[0]))
		assert.Equal(t, schema.Override{Included: false, Required: false}, ctx.Effective("auth", auth[1]))
		assert.Equal(t, schema.Override{Included: true, Required: true}, ctx.Effective("db", m.Variables["db"][0]),
			"require wins over optional")
	})

	t.Run("exclude wins over require", func(t *testing.T) {
		ctx, err := Apply(m, base, Refs{Exclude: []string{"auth.JWT_SECRET"}, Require: []string{"auth.JWT_SECRET"}})
		require.NoError(t, err)
		assert.False(t, ctx.Effective("auth", m.Variables["auth"][0]).Included)
	})

	t.Run("base is not mutated", func(t *testing.T) {
		_, err := Apply(m, base, Refs{Exclude: []string{"auth.TOKEN_TTL"}})
		require.NoError(t, err)
		assert.Empty(t, base.Overrides)
	})

	errs := []Refs{
		{Services: []string{"nope"}},
		{Exclude: []string{"nope.KEY"}},
		{Require: []string{"auth.MISSING"}},
		{Optional: []string{"malformed"}},
	}
	for _, refs := range errs {
		_, err := Apply(m, base, refs)
		assert.ErrorIs(t, err, ErrBadReference, "%+v", refs)
	}
}

func TestBuildContext(t *testing.T) {
	m := testModel()

	t.Run("defaults produce no overrides", func(t *testing.T) {
		ctx := BuildContext(m, Choice{
			Services: []string{"auth"},
			Included: map[string][]string{"auth": {"JWT_SECRET", "TOKEN_TTL"}},
			Required: map[string][]string{"auth": {"JWT_SECRET"}},
		})
		assert.Equal(t, []string{"auth"}, ctx.SelectedServiceIDs)
		assert.Empty(t, ctx.Overrides)
	})

	t.Run("differences become overrides", func(t *testing.T) {
		ctx := BuildContext(m, Choice{
			Services: []string{"auth", "db"},
			Included: map[string][]string{"auth": {"JWT_SECRET"}},
			Required: map[string][]string{"auth": {"JWT_SECRET"}},
		})
		assert.Equal(t, map[string]map[string]schema.Override{
			"auth": {"TOKEN_TTL": {Included: false, Required: false}},
		}, ctx.Overrides)

		resolved := schema.Resolve(m, ctx)
		require.Len(t, resolved, 2)
		assert.Len(t, resolved[0].Fields, 1)
		assert.Len(t, resolved[1].Fields, 1, "services without a choice keep every variable")
	})

	t.Run("required flag can be dropped and added", func(t *testing.T) {
		ctx := BuildContext(m, Choice{
			Services: []string{"auth"},
			Included: map[string][]string{"auth": {"JWT_SECRET", "TOKEN_TTL"}},
			Required: map[string][]string{"auth": {"TOKEN_TTL"}},
		})
		assert.Equal(t, schema.Override{Included: true, Required: false}, ctx.Overrides["auth"]["JWT_SECRET"])
		assert.Equal(t, schema.Override{Included: true, Required: true}, ctx.Overrides["auth"]["TOKEN_TTL"])
	})
}

func TestInteractive_KeepsPrefilledValues(t *testing.T) {
	m := testModel()
	initial := schema.SelectAll(m).
		WithSelection("db", "auth").
		WithOverride("auth", "TOKEN_TTL", schema.Override{Included: false})

	var forms int
	s := NewInteractive(m, WithAccessible(true))
	s.run = func(context.Context, *huh.Form) error {
		forms++
		return nil
	}

	ctx, err := s.Run(context.Background(), initial)
	require.NoError(t, err)
	assert.Equal(t, 2, forms)
	assert.Equal(t, []string{"auth", "db"}, ctx.SelectedServiceIDs, "model order")
	assert.Equal(t, schema.Override{Included: false, Required: false}, ctx.Overrides["auth"]["TOKEN_TTL"])
	assert.NotContains(t, ctx.Overrides["auth"], "JWT_SECRET")
}

func TestInteractive_Aborted(t *testing.T) {
	m := testModel()
	s := NewInteractive(m)
	s.run = func(context.Context, *huh.Form) error { return huh.ErrUserAborted }

	initial := schema.SelectAll(m)
	ctx, err := s.Run(context.Background(), initial)
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, initial, ctx)
}
