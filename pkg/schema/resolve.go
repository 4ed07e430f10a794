package schema

// Field is a Variable that survived resolution, with its effective
// required flag.
type Field struct {
	Variable
	Required bool
}

// Optional reports whether the field may be absent at runtime.
func (f Field) Optional() bool { return !f.Required }

// ResolvedService is a selected service with its included fields, in store
// order.
type ResolvedService struct {
	Service
	Fields []Field
}

// Resolve applies ctx to m. Services are returned in ctx.SelectedServiceIDs
// order. IDs unknown to m are skipped, as are variables that are excluded
// or carry a type outside the enum. A service with no remaining fields is
// still returned.
func Resolve(m *Model, ctx GenerationContext) []ResolvedService {
	if m == nil || len(ctx.SelectedServiceIDs) == 0 {
		return nil
	}

	out := make([]ResolvedService, 0, len(ctx.SelectedServiceIDs))
	for _, id := range ctx.SelectedServiceIDs {
		svc, ok := m.Service(id)
		if !ok {
			continue
		}

		vars := m.Variables[id]
		rs := ResolvedService{Service: svc, Fields: make([]Field, 0, len(vars))}
		for _, v := range vars {
			if !v.Type.Valid() {
				continue
			}
			o := ctx.Effective(id, v)
			if !o.Included {
				continue
			}
			rs.Fields = append(rs.Fields, Field{Variable: v, Required: o.Required})
		}
		out = append(out, rs)
	}
	return out
}

// UsedTypes reports which variable types appear among the included fields of
// services, indexed by VariableType.Index.
func UsedTypes(services []ResolvedService) [NumVariableTypes]bool {
	var used [NumVariableTypes]bool
	for _, s := range services {
		for _, f := range s.Fields {
			if i := f.Type.Index(); i >= 0 {
				used[i] = true
			}
		}
	}
	return used
}
