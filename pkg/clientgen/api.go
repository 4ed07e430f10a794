// Package clientgen is the public API for envgen's configuration generators.
//
// It wraps the internal generator registry so that build tooling can render
// artifacts without the envgen CLI:
//
//	decl, _ := parser.ParseFile("services.yaml")
//	code, err := clientgen.Generate("go", decl.Model, decl.Context, nil)
//	if err != nil {
//	    return err
//	}
//	os.WriteFile(clientgen.DefaultFilename("go"), []byte(code), 0o644)
//
// Every target is registered by importing this package.
package clientgen

import (
	"context"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/pthm/envgen/internal/clientgen"
	_ "github.com/pthm/envgen/internal/clientgen/env"
	_ "github.com/pthm/envgen/internal/clientgen/go"
	_ "github.com/pthm/envgen/internal/clientgen/python"
	_ "github.com/pthm/envgen/internal/clientgen/typescript"
	"github.com/pthm/envgen/pkg/schema"
)

// Config is an alias for the internal generator configuration.
type Config = clientgen.Config

// ErrUnknownTarget is returned for target names no generator is registered for.
var ErrUnknownTarget = clientgen.ErrUnknownTarget

// Artifact is one rendered target.
type Artifact struct {
	Target   string
	Filename string
	Content  string
}

// ListTargets returns the canonical names of all registered targets.
func ListTargets() []string {
	return clientgen.List()
}

// DefaultFilename returns the conventional output file name for a target,
// or "" if the target is unknown.
func DefaultFilename(target string) string {
	g, ok := clientgen.Lookup(target)
	if !ok {
		return ""
	}
	return g.Filename()
}

// Generate renders one target. The only error is an unknown target; an
// empty selection yields "" and a nil error.
func Generate(target string, m *schema.Model, ctx schema.GenerationContext, cfg *Config) (string, error) {
	g, ok := clientgen.Lookup(target)
	if !ok {
		return "", errors.Wrapf(ErrUnknownTarget, "target %q (supported: %v)", target, ListTargets())
	}
	return g.Generate(m, ctx, cfg), nil
}

// GenerateAll renders every registered target for the same selection. Targets
// are rendered concurrently; results are returned in target order.
func GenerateAll(ctx context.Context, m *schema.Model, gctx schema.GenerationContext, cfg *Config) ([]Artifact, error) {
	targets := clientgen.Targets()
	out := make([]Artifact, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	for i, t := range targets {
		gen := clientgen.Get(t)
		if gen == nil {
			return nil, errors.Wrapf(ErrUnknownTarget, "target %q is not registered", t)
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = Artifact{
				Target:   t.String(),
				Filename: gen.Filename(),
				Content:  gen.Generate(m, gctx, cfg),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
