package selector

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/pthm/envgen/pkg/schema"
)

// ErrAborted is returned when the user cancels a form.
var ErrAborted = huh.ErrUserAborted

// Choice is the raw result of the interactive forms: the chosen services and,
// per service, the keys to include and the keys to mark required.
type Choice struct {
	Services []string
	Included map[string][]string
	Required map[string][]string
}

// Interactive asks the user which services and variables to generate.
type Interactive struct {
	model      *schema.Model
	accessible bool
	run        func(ctx context.Context, f *huh.Form) error
}

// Option configures an Interactive selector.
type Option func(*Interactive)

// WithAccessible switches the forms to huh's line-based accessible mode,
// which also works without a TTY.
func WithAccessible(on bool) Option {
	return func(s *Interactive) { s.accessible = on }
}

// NewInteractive returns a selector for m.
func NewInteractive(m *schema.Model, opts ...Option) *Interactive {
	s := &Interactive{
		model: m,
		run: func(ctx context.Context, f *huh.Form) error {
			return f.RunWithContext(ctx)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run shows the forms pre-filled from initial and returns the resulting
// context.
func (s *Interactive) Run(ctx context.Context, initial schema.GenerationContext) (schema.GenerationContext, error) {
	choice := Choice{
		Services: append([]string(nil), initial.SelectedServiceIDs...),
		Included: make(map[string][]string),
		Required: make(map[string][]string),
	}

	serviceForm := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("Services").
			Description("Services to generate configuration for").
			Options(serviceOptions(s.model, initial)...).
			Value(&choice.Services),
	))
	if err := s.runForm(ctx, serviceForm); err != nil {
		return initial, err
	}
	// Keep model order regardless of pick order.
	choice.Services = lo.Filter(s.model.ServiceIDs(), func(id string, _ int) bool {
		return lo.Contains(choice.Services, id)
	})

	type picks struct {
		id       string
		included []string
		required []string
	}
	var (
		groups []*huh.Group
		bound  []*picks
	)
	for _, id := range choice.Services {
		vars := s.model.Variables[id]
		if len(vars) == 0 {
			continue
		}
		svc, _ := s.model.Service(id)
		p := &picks{
			id: id,
			included: lo.FilterMap(vars, func(v schema.Variable, _ int) (string, bool) {
				return v.Key, initial.Effective(id, v).Included
			}),
			required: lo.FilterMap(vars, func(v schema.Variable, _ int) (string, bool) {
				return v.Key, initial.Effective(id, v).Required
			}),
		}
		bound = append(bound, p)
		groups = append(groups, huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title(fmt.Sprintf("%s: included variables", svc.Name)).
				Options(variableOptions(vars, p.included)...).
				Value(&p.included),
			huh.NewMultiSelect[string]().
				Title(fmt.Sprintf("%s: required variables", svc.Name)).
				Options(variableOptions(vars, p.required)...).
				Value(&p.required),
		))
	}

	if len(groups) > 0 {
		if err := s.runForm(ctx, huh.NewForm(groups...)); err != nil {
			return initial, err
		}
	}
	for _, p := range bound {
		choice.Included[p.id] = p.included
		choice.Required[p.id] = p.required
	}
	return BuildContext(s.model, choice), nil
}

func (s *Interactive) runForm(ctx context.Context, f *huh.Form) error {
	f = f.WithAccessible(s.accessible)
	if err := s.run(ctx, f); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return errors.Wrap(err, "running selection form")
	}
	return nil
}

func serviceOptions(m *schema.Model, initial schema.GenerationContext) []huh.Option[string] {
	return lo.Map(m.Services, func(svc schema.Service, _ int) huh.Option[string] {
		label := svc.Name
		if svc.Description != "" {
			label = fmt.Sprintf("%s (%s)", svc.Name, svc.Description)
		}
		return huh.NewOption(label, svc.ID).Selected(initial.IsSelected(svc.ID))
	})
}

func variableOptions(vars []schema.Variable, selected []string) []huh.Option[string] {
	return lo.Map(vars, func(v schema.Variable, _ int) huh.Option[string] {
		return huh.NewOption(fmt.Sprintf("%s (%s)", v.Key, v.Type), v.Key).Selected(lo.Contains(selected, v.Key))
	})
}

// BuildContext turns a Choice into a GenerationContext. Overrides are only
// recorded where the choice differs from the stored variable, so a choice
// that keeps every default yields a context with no overrides.
func BuildContext(m *schema.Model, c Choice) schema.GenerationContext {
	ctx := schema.NewGenerationContext(c.Services...)
	for _, id := range c.Services {
		inc, seen := c.Included[id]
		if !seen {
			continue
		}
		req := c.Required[id]
		for _, v := range m.Variables[id] {
			o := schema.Override{
				Included: lo.Contains(inc, v.Key),
				Required: lo.Contains(req, v.Key),
			}
			if o == (schema.Override{Included: true, Required: v.Required}) {
				continue
			}
			ctx = ctx.WithOverride(id, v.Key, o)
		}
	}
	return ctx
}
