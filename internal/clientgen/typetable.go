package clientgen

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/pthm/envgen/pkg/schema"
)

// TypeTable maps the abstract variable types onto one target language.
//
// MapType is total: every schema.VariableType maps to a non-empty type
// expression. CustomTypeFragment returns the source that must appear earlier
// in the artifact for MapType's result to resolve, or "" when the type is
// native to the target.
type TypeTable interface {
	MapType(t schema.VariableType) string
	CustomTypeFragment(t schema.VariableType) string
}

type staticTable struct {
	types     [schema.NumVariableTypes]string
	fragments [schema.NumVariableTypes]string
}

// NewTypeTable builds a dense TypeTable. It is meant to be called while
// initialising a target package's variables and panics when types does not
// cover the whole enum, so an incomplete table never makes it past startup.
func NewTypeTable(target string, types, fragments map[schema.VariableType]string) TypeTable {
	t := &staticTable{}
	for vt, expr := range types {
		i := vt.Index()
		if i < 0 {
			panic(fmt.Sprintf("clientgen: %s type table maps unknown type %q", target, vt))
		}
		t.types[i] = expr
	}
	for vt, frag := range fragments {
		i := vt.Index()
		if i < 0 {
			panic(fmt.Sprintf("clientgen: %s fragment for unknown type %q", target, vt))
		}
		t.fragments[i] = frag
	}
	if missing := MissingTypes(t); len(missing) > 0 {
		panic(fmt.Sprintf("clientgen: %s type table missing %v", target, missing))
	}
	return t
}

func (t *staticTable) MapType(vt schema.VariableType) string {
	i := vt.Index()
	if i < 0 {
		return ""
	}
	return t.types[i]
}

func (t *staticTable) CustomTypeFragment(vt schema.VariableType) string {
	i := vt.Index()
	if i < 0 {
		return ""
	}
	return t.fragments[i]
}

// MissingTypes returns the variable types for which table has no mapping.
func MissingTypes(table TypeTable) []schema.VariableType {
	return lo.Filter(schema.AllVariableTypes(), func(vt schema.VariableType, _ int) bool {
		return table.MapType(vt) == ""
	})
}

// CustomTypes returns the custom type fragments required by services, each
// exactly once and in enum declaration order. Only types used by an
// included field count; a fragment for a type that is merely declared
// somewhere is never returned.
func CustomTypes(services []schema.ResolvedService, table TypeTable) []string {
	used := schema.UsedTypes(services)
	return lo.FilterMap(schema.AllVariableTypes(), func(vt schema.VariableType, i int) (string, bool) {
		if !used[i] {
			return "", false
		}
		frag := table.CustomTypeFragment(vt)
		return frag, frag != ""
	})
}
