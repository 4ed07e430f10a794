// Package typescript implements the TypeScript generator.
//
// The artifact is a single module validating process.env with Zod through
// @t3-oss/env-core:
//
//	import 'dotenv/config';
//	import { createEnv } from '@t3-oss/env-core';
//	import { z } from 'zod';
//
//	export const env = createEnv({
//	  server: {
//	    // Auth Service
//	    JWT_SECRET: z.string(),
//	    TOKEN_TTL: z.coerce.number().int().optional().default(3600),
//	  },
//	  runtimeEnv: process.env,
//	  emptyStringAsUndefined: true,
//	});
//
// Zod covers every variable type natively, so the type table carries no
// custom type fragments.
package typescript

import (
	"github.com/pthm/envgen/internal/clientgen"
	"github.com/pthm/envgen/pkg/schema"
)

func init() {
	clientgen.Register(&Generator{})
}

// Generator implements clientgen.Generator for TypeScript.
type Generator struct{}

// Target returns clientgen.TargetTypeScript.
func (g *Generator) Target() clientgen.Target { return clientgen.TargetTypeScript }

// Filename returns "env.ts".
func (g *Generator) Filename() string { return "env.ts" }

// DefaultConfig returns default configuration for TypeScript generation.
// Package is not used: the module exports a single `env` constant.
func (g *Generator) DefaultConfig() *clientgen.Config { return &clientgen.Config{} }

// Types returns the Zod schema table.
func (g *Generator) Types() clientgen.TypeTable { return typeTable }

var typeTable = clientgen.NewTypeTable("typescript", map[schema.VariableType]string{
	schema.TypeString:   `z.string()`,
	schema.TypeInt:      `z.coerce.number().int()`,
	schema.TypeFloat:    `z.coerce.number()`,
	schema.TypeBoolean:  `z.stringbool()`,
	schema.TypeURL:      `z.url()`,
	schema.TypeEmail:    `z.email()`,
	schema.TypeDuration: `z.string().regex(/^(\d+(\.\d+)?(ns|us|µs|ms|s|m|h|d))+$/, 'Invalid duration')`,
	schema.TypeFilepath: `z.string().regex(/^[\w\-. /\\:~]+$/, 'Invalid file path').refine((p) => !p.split(/[\\/]/).includes('..'), 'Path traversal is not allowed')`,
	schema.TypeArray:    `z.string().transform((v) => v.split(',').map((s) => s.trim()).filter(Boolean))`,
	schema.TypeJSON:     `z.string().transform((v, ctx) => { try { return JSON.parse(v); } catch { ctx.addIssue({ code: 'custom', message: 'Invalid JSON' }); return z.NEVER; } })`,
}, nil)

// Generate renders the createEnv module.
func (g *Generator) Generate(m *schema.Model, ctx schema.GenerationContext, _ *clientgen.Config) string {
	services := schema.Resolve(m, ctx)
	if len(services) == 0 {
		return ""
	}

	var b clientgen.Builder
	b.Lines(
		"import 'dotenv/config';",
		"import { createEnv } from '@t3-oss/env-core';",
		"import { z } from 'zod';",
	)
	b.Blank()
	b.Line("export const env = createEnv({")
	b.Line("  server: {")
	for i, svc := range services {
		if i > 0 {
			b.Blank()
		}
		b.Linef("    // %s", svc.Name)
		for _, f := range svc.Fields {
			b.Linef("    %s: %s,", f.Key, fieldSchema(f))
		}
	}
	b.Line("  },")
	b.Line("  runtimeEnv: process.env,")
	b.Line("  emptyStringAsUndefined: true,")
	b.Line("});")
	b.Blank()
	return b.String()
}

// fieldSchema returns the Zod expression for one field: the mapped type,
// then .optional() and .default(...) as needed, in that order.
func fieldSchema(f schema.Field) string {
	expr := typeTable.MapType(f.Type)
	if f.Optional() {
		expr += ".optional()"
	}
	if f.HasDefault() {
		expr += ".default(" + clientgen.EncodeDefault(f.DefaultValue, f.Type) + ")"
	}
	return expr
}
