package schema

// Override is the per-generation state layered over a stored Variable.
type Override struct {
	Included bool `json:"included"`
	Required bool `json:"required"`
}

// GenerationContext selects which services take part in one generation and
// overrides inclusion and required flags per variable.
//
// A GenerationContext is a value. WithSelection and WithOverride return
// modified copies; nothing in envgen mutates a context it was handed.
type GenerationContext struct {
	// SelectedServiceIDs is authoritative for output order.
	SelectedServiceIDs []string

	// Overrides maps service ID -> variable key -> override. Variables
	// without an entry are included with their stored required flag.
	Overrides map[string]map[string]Override
}

// NewGenerationContext returns a context selecting the given services with
// no overrides.
func NewGenerationContext(serviceIDs ...string) GenerationContext {
	ids := make([]string, len(serviceIDs))
	copy(ids, serviceIDs)
	return GenerationContext{SelectedServiceIDs: ids}
}

// SelectAll returns a context selecting every service of m in model order.
func SelectAll(m *Model) GenerationContext {
	return NewGenerationContext(m.ServiceIDs()...)
}

// WithSelection returns a copy of c selecting the given services.
func (c GenerationContext) WithSelection(serviceIDs ...string) GenerationContext {
	out := c.clone()
	out.SelectedServiceIDs = append([]string(nil), serviceIDs...)
	return out
}

// WithOverride returns a copy of c with the override for serviceID/key set.
func (c GenerationContext) WithOverride(serviceID, key string, o Override) GenerationContext {
	out := c.clone()
	if out.Overrides == nil {
		out.Overrides = make(map[string]map[string]Override)
	}
	out.Overrides[serviceID] = cloneOverrides(out.Overrides[serviceID])
	out.Overrides[serviceID][key] = o
	return out
}

// Effective returns the override that applies to v within serviceID.
func (c GenerationContext) Effective(serviceID string, v Variable) Override {
	if o, ok := c.Overrides[serviceID][v.Key]; ok {
		return o
	}
	return Override{Included: true, Required: v.Required}
}

// IsSelected reports whether serviceID is part of the selection.
func (c GenerationContext) IsSelected(serviceID string) bool {
	for _, id := range c.SelectedServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

func (c GenerationContext) clone() GenerationContext {
	out := GenerationContext{
		SelectedServiceIDs: append([]string(nil), c.SelectedServiceIDs...),
	}
	if c.Overrides != nil {
		out.Overrides = make(map[string]map[string]Override, len(c.Overrides))
		for id, byKey := range c.Overrides {
			out.Overrides[id] = cloneOverrides(byKey)
		}
	}
	return out
}

func cloneOverrides(in map[string]Override) map[string]Override {
	out := make(map[string]Override, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
