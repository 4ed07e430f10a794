// Package gogen implements the Go generator.
//
// The artifact is a single file declaring one struct per service, decoded
// from the environment by github.com/kelseyhightower/envconfig after
// github.com/joho/godotenv has loaded a local .env file:
//
//	type AuthServiceConfiguration struct {
//		JWT_SECRET string `envconfig:"JWT_SECRET" required:"true"`
//		TOKEN_TTL  int    `envconfig:"TOKEN_TTL" default:"3600"`
//	}
//
// Field names are the variable keys verbatim. Struct columns are aligned the
// way gofmt would align them so the output needs no post-processing.
package gogen

import (
	"fmt"
	"strconv"

	"github.com/pthm/envgen/internal/clientgen"
	"github.com/pthm/envgen/pkg/naming"
	"github.com/pthm/envgen/pkg/schema"
)

func init() {
	clientgen.Register(&Generator{})
}

// Generator implements clientgen.Generator for Go.
type Generator struct{}

// Target returns clientgen.TargetGo.
func (g *Generator) Target() clientgen.Target { return clientgen.TargetGo }

// Filename returns "config.go".
func (g *Generator) Filename() string { return "config.go" }

// DefaultConfig returns default configuration for Go generation.
func (g *Generator) DefaultConfig() *clientgen.Config {
	return &clientgen.Config{Package: "config"}
}

// Types returns the Go type table.
func (g *Generator) Types() clientgen.TypeTable { return typeTable }

// Generate renders the Go configuration file.
func (g *Generator) Generate(m *schema.Model, ctx schema.GenerationContext, cfg *clientgen.Config) string {
	services := schema.Resolve(m, ctx)
	if len(services) == 0 {
		return ""
	}
	cfg = clientgen.ResolveConfig(g, cfg)
	used := schema.UsedTypes(services)

	var b clientgen.Builder
	b.Line("// Code generated by envgen. DO NOT EDIT.")
	b.Blank()
	b.Linef("package %s", cfg.Package)
	b.Blank()
	writeImports(&b, used)

	for _, frag := range clientgen.CustomTypes(services, typeTable) {
		b.Blank()
		b.Block(frag)
	}

	for _, svc := range services {
		b.Blank()
		writeStruct(&b, svc)
	}

	b.Blank()
	writeGlobals(&b, services)
	b.Blank()
	b.Lines(
		"func init() {",
		"\tloadEnv()",
		"}",
	)
	b.Blank()
	writeLoadEnv(&b, services)
	b.Blank()
	return b.String()
}

// writeImports emits the import block. The standard library group only
// lists packages the emitted custom types actually reference, otherwise the
// generated file would not compile.
func writeImports(b *clientgen.Builder, used [schema.NumVariableTypes]bool) {
	needs := func(t schema.VariableType) bool { return used[t.Index()] }
	regex := needs(schema.TypeURL) || needs(schema.TypeEmail) ||
		needs(schema.TypeDuration) || needs(schema.TypeFilepath)
	jsonMap := needs(schema.TypeJSON)

	b.Line("import (")
	if jsonMap {
		b.Line("\t\"encoding/json\"")
	}
	if regex || jsonMap {
		b.Line("\t\"fmt\"")
	}
	b.Line("\t\"log\"")
	if regex {
		b.Line("\t\"regexp\"")
	}
	b.Blank()
	b.Line("\t\"github.com/joho/godotenv\"")
	b.Line("\t\"github.com/kelseyhightower/envconfig\"")
	b.Line(")")
}

func writeStruct(b *clientgen.Builder, svc schema.ResolvedService) {
	rows := make([][]string, 0, len(svc.Fields))
	for _, f := range svc.Fields {
		rows = append(rows, []string{f.Key, typeTable.MapType(f.Type), structTag(f)})
	}

	b.Linef("// %s holds the %s configuration.", structName(svc.Service), svc.Name)
	b.Linef("type %s struct {", structName(svc.Service))
	for _, line := range clientgen.AlignColumns(rows) {
		b.Line("\t" + line)
	}
	b.Line("}")
}

// structTag builds the envconfig tag for one field. Values are quoted with
// strconv.Quote so reflect.StructTag parses them back unchanged.
func structTag(f schema.Field) string {
	tag := "envconfig:" + strconv.Quote(f.Key)
	if f.Required {
		tag += ` required:"true"`
	}
	if f.HasDefault() {
		tag += " default:" + strconv.Quote(f.DefaultValue)
	}
	return "`" + tag + "`"
}

func writeGlobals(b *clientgen.Builder, services []schema.ResolvedService) {
	rows := make([][]string, 0, len(services))
	for _, svc := range services {
		rows = append(rows, []string{globalName(svc.Service), structName(svc.Service)})
	}
	b.Line("var (")
	for _, line := range clientgen.AlignColumns(rows) {
		b.Line("\t" + line)
	}
	b.Line(")")
}

func writeLoadEnv(b *clientgen.Builder, services []schema.ResolvedService) {
	b.Line("func loadEnv() {")
	b.Line("\t// A missing .env file is fine: the variables may come from the environment.")
	b.Line("\t_ = godotenv.Load()")
	for _, svc := range services {
		msg := strconv.Quote(fmt.Sprintf("failed to load %s configuration: %%v", svc.Name))
		b.Blank()
		b.Linef("\tif err := envconfig.Process(\"\", &%s); err != nil {", globalName(svc.Service))
		b.Linef("\t\tlog.Fatalf(%s, err)", msg)
		b.Line("\t}")
	}
	b.Line("}")
}

func structName(s schema.Service) string {
	return naming.ToPascalCase(s.Name) + "Configuration"
}

func globalName(s schema.Service) string {
	return naming.ToPascalCase(s.Name) + "Config"
}
