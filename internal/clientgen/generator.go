// Package clientgen provides the registry of target-language configuration
// generators and the pieces they share.
//
// Every target (env, typescript, go, python) lives in its own subpackage and
// registers a Generator from init(). The registry is keyed by the Target
// enum rather than by free-form strings so that every target has exactly one
// slot and a missing registration is caught by TestRegistry_AllTargets.
//
// The shared pieces are:
//   - TypeTable: one per target, total over schema.VariableType
//   - CustomTypes: the custom type library emission rule
//   - EncodeDefault: the literal encoder
//   - Builder and AlignColumns: ordered output assembly
//
// This is an internal package used by the envgen CLI. For programmatic
// generation, use pkg/clientgen which provides a stable public API.
package clientgen

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/pthm/envgen/pkg/schema"
)

// Generator produces one target language's configuration artifact.
//
// Generate must be pure: it reads only its arguments, never mutates them,
// and returns "" when nothing is selected. A well-formed model never makes
// it fail, so there is no error return.
type Generator interface {
	// Target identifies the generator in the registry.
	Target() Target

	// Filename is the conventional output file name, e.g. "config.go".
	Filename() string

	// Types returns the target's type mapping table.
	Types() TypeTable

	// Generate renders the artifact for the services selected by ctx.
	Generate(m *schema.Model, ctx schema.GenerationContext, cfg *Config) string

	// DefaultConfig returns the configuration used when cfg is nil.
	DefaultConfig() *Config
}

// Config holds language-agnostic generation options.
type Config struct {
	// Package is the package name for targets that have one.
	// For Go: package clause of the generated file (default "config").
	// Other targets ignore it.
	Package string
}

// registry holds one generator per target.
var registry [numTargets]Generator

// Register adds a generator to the global registry.
// Generators should call this from their init() function.
//
// Panics if the target is invalid or already registered.
func Register(g Generator) {
	t := g.Target()
	if !t.Valid() {
		panic(fmt.Sprintf("clientgen: generator registered with invalid target %d", int(t)))
	}
	if registry[t] != nil {
		panic(fmt.Sprintf("clientgen: generator %q already registered", t))
	}
	registry[t] = g
}

// Get returns the generator for the given target.
// Returns nil if the target is invalid or nothing is registered for it.
func Get(t Target) Generator {
	if !t.Valid() {
		return nil
	}
	return registry[t]
}

// Lookup returns the generator for a target name or alias.
func Lookup(name string) (Generator, bool) {
	t, err := ParseTarget(name)
	if err != nil {
		return nil, false
	}
	g := Get(t)
	return g, g != nil
}

// List returns all registered target names in Target order.
func List() []string {
	return lo.FilterMap(Targets(), func(t Target, _ int) (string, bool) {
		return t.String(), registry[t] != nil
	})
}

// Registered returns true if a generator is registered for the given name.
func Registered(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// ResolveConfig returns cfg with empty fields filled from g's defaults.
func ResolveConfig(g Generator, cfg *Config) *Config {
	def := g.DefaultConfig()
	if cfg == nil {
		return def
	}
	out := *cfg
	if out.Package == "" {
		out.Package = def.Package
	}
	return &out
}
