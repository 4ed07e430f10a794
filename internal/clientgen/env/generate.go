// Package env implements the .env generator.
//
// Output is one block per selected service:
//
//	# Auth Service CONFIGURATION
//	JWT_SECRET =
//	TOKEN_TTL = 3600
//
// Values are written raw: no quoting, no escaping and no type awareness.
package env

import (
	"strings"

	"github.com/pthm/envgen/internal/clientgen"
	"github.com/pthm/envgen/pkg/schema"
)

func init() {
	clientgen.Register(&Generator{})
}

// Generator implements clientgen.Generator for .env files.
type Generator struct{}

// Target returns clientgen.TargetEnv.
func (g *Generator) Target() clientgen.Target { return clientgen.TargetEnv }

// Filename returns ".env".
func (g *Generator) Filename() string { return ".env" }

// DefaultConfig returns an empty config; .env output has no options.
func (g *Generator) DefaultConfig() *clientgen.Config { return &clientgen.Config{} }

// Types returns the .env type table. Every type is written raw.
func (g *Generator) Types() clientgen.TypeTable { return typeTable }

// raw marks a type that is written to .env without conversion.
const raw = "raw"

var typeTable = clientgen.NewTypeTable("env", map[schema.VariableType]string{
	schema.TypeString:   raw,
	schema.TypeInt:      raw,
	schema.TypeFloat:    raw,
	schema.TypeBoolean:  raw,
	schema.TypeURL:      raw,
	schema.TypeEmail:    raw,
	schema.TypeDuration: raw,
	schema.TypeFilepath: raw,
	schema.TypeArray:    raw,
	schema.TypeJSON:     raw,
}, nil)

// Generate renders a .env file. Trailing whitespace is trimmed.
func (g *Generator) Generate(m *schema.Model, ctx schema.GenerationContext, _ *clientgen.Config) string {
	services := schema.Resolve(m, ctx)
	if len(services) == 0 {
		return ""
	}

	var b clientgen.Builder
	for i, svc := range services {
		if i > 0 {
			b.Blank()
		}
		b.Linef("# %s CONFIGURATION", svc.Name)
		for _, f := range svc.Fields {
			b.Linef("%s = %s", f.Key, f.DefaultValue)
		}
	}
	return strings.TrimRightFunc(b.String(), isTrailingSpace)
}

func isTrailingSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
