package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidModel is returned when stored records break a model invariant.
var ErrInvalidModel = errors.New("envgen/schema: invalid model")

// IsInvalidModelErr returns true if err is or wraps ErrInvalidModel.
func IsInvalidModelErr(err error) bool {
	return errors.Is(err, ErrInvalidModel)
}

// Problem describes one invariant violation found by Check.
type Problem struct {
	ServiceID string
	Key       string
	Message   string
}

func (p Problem) String() string {
	switch {
	case p.Key != "":
		return fmt.Sprintf("service %q, variable %q: %s", p.ServiceID, p.Key, p.Message)
	case p.ServiceID != "":
		return fmt.Sprintf("service %q: %s", p.ServiceID, p.Message)
	default:
		return p.Message
	}
}

// Check reports every invariant violation in m:
//   - services need a non-empty, unique ID and a non-empty name
//   - variables need a non-empty key, unique within their service
//   - every variable type must be part of the enum
//   - variables may not reference a service missing from m.Services
func Check(m *Model) []Problem {
	if m == nil {
		return nil
	}

	var problems []Problem
	seen := make(map[string]bool, len(m.Services))
	for _, s := range m.Services {
		if s.ID == "" {
			problems = append(problems, Problem{Message: fmt.Sprintf("service %q has an empty id", s.Name)})
			continue
		}
		if seen[s.ID] {
			problems = append(problems, Problem{ServiceID: s.ID, Message: "duplicate service id"})
			continue
		}
		seen[s.ID] = true
		if strings.TrimSpace(s.Name) == "" {
			problems = append(problems, Problem{ServiceID: s.ID, Message: "service name is empty"})
		}

		keys := make(map[string]bool, len(m.Variables[s.ID]))
		for _, v := range m.Variables[s.ID] {
			if v.Key == "" {
				problems = append(problems, Problem{ServiceID: s.ID, Message: "variable with empty key"})
				continue
			}
			if keys[v.Key] {
				problems = append(problems, Problem{ServiceID: s.ID, Key: v.Key, Message: "duplicate key"})
			}
			keys[v.Key] = true
			if !v.Type.Valid() {
				problems = append(problems, Problem{ServiceID: s.ID, Key: v.Key, Message: fmt.Sprintf("unknown type %q", v.Type)})
			}
		}
	}

	var orphans []string
	for id := range m.Variables {
		if !seen[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		problems = append(problems, Problem{ServiceID: id, Message: "variables reference an unknown service"})
	}
	return problems
}

// Validate returns an ErrInvalidModel-wrapping error describing the first
// problems found by Check, or nil.
func Validate(m *Model) error {
	problems := Check(m)
	if len(problems) == 0 {
		return nil
	}
	msgs := make([]string, len(problems))
	for i, p := range problems {
		msgs[i] = p.String()
	}
	return fmt.Errorf("%w: %s", ErrInvalidModel, strings.Join(msgs, "; "))
}
