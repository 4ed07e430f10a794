// Package selector builds the GenerationContext for one generation, either
// from "service.KEY" references given on the command line or interactively
// through terminal forms.
package selector

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/pthm/envgen/pkg/schema"
)

// ErrBadReference is returned for malformed or unknown "service.KEY"
// references and unknown service IDs.
var ErrBadReference = errors.New("envgen/selector: bad reference")

// Refs are the per-variable adjustments given on the command line. Each
// entry is a "service.KEY" reference.
type Refs struct {
	Services []string
	Exclude  []string
	Optional []string
	Require  []string
}

// Empty reports whether no adjustment was requested.
func (r Refs) Empty() bool {
	return len(r.Services) == 0 && len(r.Exclude) == 0 && len(r.Optional) == 0 && len(r.Require) == 0
}

// Apply layers refs over base. A non-empty Services list replaces the
// selection. Exclude wins over Optional and Require for the same variable;
// Require wins over Optional.
func Apply(m *schema.Model, base schema.GenerationContext, refs Refs) (schema.GenerationContext, error) {
	ctx := base
	if len(refs.Services) > 0 {
		ids := lo.Uniq(refs.Services)
		for _, id := range ids {
			if _, ok := m.Service(id); !ok {
				return base, errors.WithHint(
					errors.Wrapf(ErrBadReference, "unknown service %q", id),
					"known services: "+strings.Join(m.ServiceIDs(), ", "),
				)
			}
		}
		ctx = ctx.WithSelection(ids...)
	}

	steps := []struct {
		refs  []string
		apply func(o schema.Override) schema.Override
	}{
		{refs.Optional, func(o schema.Override) schema.Override { o.Required = false; return o }},
		{refs.Require, func(o schema.Override) schema.Override { o.Required = true; return o }},
		{refs.Exclude, func(o schema.Override) schema.Override { o.Included = false; return o }},
	}
	for _, step := range steps {
		for _, ref := range step.refs {
			serviceID, v, err := lookup(m, ref)
			if err != nil {
				return base, err
			}
			ctx = ctx.WithOverride(serviceID, v.Key, step.apply(ctx.Effective(serviceID, v)))
		}
	}
	return ctx, nil
}

// ParseRef splits a "service.KEY" reference. Service IDs may not contain a
// dot; keys may.
func ParseRef(ref string) (serviceID, key string, err error) {
	serviceID, key, ok := strings.Cut(strings.TrimSpace(ref), ".")
	if !ok || serviceID == "" || key == "" {
		return "", "", errors.WithHint(
			errors.Wrapf(ErrBadReference, "%q", ref),
			"use the form service.KEY, e.g. auth.JWT_SECRET",
		)
	}
	return serviceID, key, nil
}

func lookup(m *schema.Model, ref string) (string, schema.Variable, error) {
	serviceID, key, err := ParseRef(ref)
	if err != nil {
		return "", schema.Variable{}, err
	}
	if _, ok := m.Service(serviceID); !ok {
		return "", schema.Variable{}, errors.Wrapf(ErrBadReference, "%q: unknown service %q", ref, serviceID)
	}
	v, ok := lo.Find(m.Variables[serviceID], func(v schema.Variable) bool { return v.Key == key })
	if !ok {
		return "", schema.Variable{}, errors.Wrapf(ErrBadReference, "%q: service %q has no variable %q", ref, serviceID, key)
	}
	return serviceID, v, nil
}
