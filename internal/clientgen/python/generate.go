// Package python implements the Python generator.
//
// The artifact is a module of pydantic-settings classes, one per service:
//
//	class AuthServiceConfig(BaseSettings):
//	    model_config = SettingsConfigDict(env_file=".env", extra="ignore")
//
//	    JWT_SECRET: str
//	    TOKEN_TTL: int | None = 3600
//
//	auth_service_config = AuthServiceConfig()
package python

import (
	"github.com/pthm/envgen/internal/clientgen"
	"github.com/pthm/envgen/pkg/naming"
	"github.com/pthm/envgen/pkg/schema"
)

func init() {
	clientgen.Register(&Generator{})
}

// Generator implements clientgen.Generator for Python.
type Generator struct{}

// Target returns clientgen.TargetPython.
func (g *Generator) Target() clientgen.Target { return clientgen.TargetPython }

// Filename returns "config.py".
func (g *Generator) Filename() string { return "config.py" }

// DefaultConfig returns default configuration for Python generation.
func (g *Generator) DefaultConfig() *clientgen.Config { return &clientgen.Config{} }

// Types returns the Pydantic type table.
func (g *Generator) Types() clientgen.TypeTable { return typeTable }

var imports = []string{
	"import json",
	"import re",
	"from typing import Annotated, Any",
	"",
	"from pydantic import AfterValidator, BeforeValidator, EmailStr, HttpUrl",
	"from pydantic_settings import BaseSettings, NoDecode, SettingsConfigDict",
}

// Generate renders the settings module. Top-level definitions are
// separated by two blank lines.
func (g *Generator) Generate(m *schema.Model, ctx schema.GenerationContext, _ *clientgen.Config) string {
	services := schema.Resolve(m, ctx)
	if len(services) == 0 {
		return ""
	}

	var b clientgen.Builder
	b.Lines(imports...)

	for _, frag := range clientgen.CustomTypes(services, typeTable) {
		b.Blank()
		b.Blank()
		b.Block(frag)
	}

	for _, svc := range services {
		b.Blank()
		b.Blank()
		writeClass(&b, svc)
	}

	b.Blank()
	b.Blank()
	for _, svc := range services {
		b.Linef("%s = %s()", instanceName(svc.Service), className(svc.Service))
	}
	b.Blank()
	return b.String()
}

func writeClass(b *clientgen.Builder, svc schema.ResolvedService) {
	b.Linef("class %s(BaseSettings):", className(svc.Service))
	b.Linef("    \"\"\"%s configuration.\"\"\"", svc.Name)
	b.Blank()
	b.Line(`    model_config = SettingsConfigDict(env_file=".env", extra="ignore")`)
	if len(svc.Fields) > 0 {
		b.Blank()
	}
	for _, f := range svc.Fields {
		b.Line("    " + field(f))
	}
}

// field renders one annotated class attribute.
func field(f schema.Field) string {
	typ := typeTable.MapType(f.Type)
	if f.Optional() {
		typ += " | None"
	}
	line := f.Key + ": " + typ
	switch {
	case f.HasDefault():
		line += " = " + clientgen.EncodeDefault(f.DefaultValue, f.Type)
	case f.Optional():
		line += " = None"
	}
	return line
}

func className(s schema.Service) string {
	return naming.ToPascalCase(s.Name) + "Config"
}

func instanceName(s schema.Service) string {
	return naming.ToSnakeCase(s.Name) + "_config"
}
