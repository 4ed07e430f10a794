// Package schema defines the variable model consumed by every envgen generator.
//
// A Service is a named group of environment variables (a database, an auth
// provider). Each Variable declares a key, a default value, a required flag
// and one VariableType from a closed set. Services and their variables are
// supplied by collaborators (a declaration file or the Postgres store); this
// package holds only the shapes and the rules for combining them with a
// per-generation GenerationContext.
//
// # Resolution
//
// Generators never consult the GenerationContext directly. Resolve applies
// the selection and the per-variable overrides once and hands every emitter
// the same ordered []ResolvedService:
//
//	model := &schema.Model{Services: services, Variables: vars}
//	ctx := schema.NewGenerationContext("auth", "db").
//		WithOverride("auth", "TOKEN_TTL", schema.Override{Included: false})
//	resolved := schema.Resolve(model, ctx)
//
// Resolution is a pure function of its arguments. Unknown service IDs and
// variables carrying a type outside the enum are skipped rather than
// reported, so one bad record never blocks the rest of an artifact.
//
// The package has no dependencies beyond the standard library so that it can
// be imported by the store, the parser and the generators alike.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// VariableType is the closed set of supported variable kinds.
type VariableType string

// Variable types in declaration order. Custom type fragments are emitted in
// this order.
const (
	TypeString   VariableType = "STRING"
	TypeInt      VariableType = "INT"
	TypeFloat    VariableType = "FLOAT"
	TypeBoolean  VariableType = "BOOLEAN"
	TypeURL      VariableType = "URL"
	TypeEmail    VariableType = "EMAIL"
	TypeDuration VariableType = "DURATION"
	TypeFilepath VariableType = "FILEPATH"
	TypeArray    VariableType = "ARRAY"
	TypeJSON     VariableType = "JSON"
)

// NumVariableTypes is the size of the VariableType enum. Tables indexed by
// VariableType.Index are sized with it.
const NumVariableTypes = 10

var allVariableTypes = [NumVariableTypes]VariableType{
	TypeString,
	TypeInt,
	TypeFloat,
	TypeBoolean,
	TypeURL,
	TypeEmail,
	TypeDuration,
	TypeFilepath,
	TypeArray,
	TypeJSON,
}

// ErrUnknownVariableType is returned when a type name is not part of the enum.
var ErrUnknownVariableType = errors.New("envgen/schema: unknown variable type")

// IsUnknownVariableTypeErr returns true if err is or wraps ErrUnknownVariableType.
func IsUnknownVariableTypeErr(err error) bool {
	return errors.Is(err, ErrUnknownVariableType)
}

// AllVariableTypes returns every VariableType in declaration order.
func AllVariableTypes() []VariableType {
	out := make([]VariableType, NumVariableTypes)
	copy(out, allVariableTypes[:])
	return out
}

// ParseVariableType parses a type name case-insensitively.
func ParseVariableType(s string) (VariableType, error) {
	t := VariableType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownVariableType, s)
	}
	return t, nil
}

// Index returns the position of t in declaration order, or -1 if t is not
// part of the enum.
func (t VariableType) Index() int {
	for i, v := range allVariableTypes {
		if v == t {
			return i
		}
	}
	return -1
}

// Valid reports whether t is a member of the enum.
func (t VariableType) Valid() bool {
	return t.Index() >= 0
}

func (t VariableType) String() string { return string(t) }

// Service is a named grouping of variables.
type Service struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Variable is a single environment variable declaration, scoped to one
// Service. Key is unique within its Service.
type Variable struct {
	Key          string       `json:"key"`
	DefaultValue string       `json:"default"`
	Required     bool         `json:"required"`
	Type         VariableType `json:"type"`
}

// HasDefault reports whether a default value was declared. An empty string
// means "no default".
func (v Variable) HasDefault() bool {
	return v.DefaultValue != ""
}

// Model is the set of stored records a generation reads from: the ordered
// service list and each service's variables in store insertion order.
type Model struct {
	Services  []Service
	Variables map[string][]Variable
}

// Service returns the service with the given ID.
func (m *Model) Service(id string) (Service, bool) {
	if m == nil {
		return Service{}, false
	}
	for _, s := range m.Services {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}

// ServiceIDs returns every service ID in model order.
func (m *Model) ServiceIDs() []string {
	if m == nil {
		return nil
	}
	ids := make([]string, len(m.Services))
	for i, s := range m.Services {
		ids[i] = s.ID
	}
	return ids
}
