// Package parser reads envgen declaration files.
//
// A declaration lists services with their typed variables and, optionally,
// the selection a generation should use:
//
//	services:
//	  - name: Auth Service
//	    variables:
//	      - key: JWT_SECRET
//	        type: STRING
//	        required: true
//	      - key: TOKEN_TTL
//	        type: INT
//	        default: 3600
//	selection:
//	  services: [auth_service]
//	  overrides:
//	    auth_service:
//	      TOKEN_TTL: { included: false }
//
// YAML and JSON are read through sigs.k8s.io/yaml, TOML through
// github.com/pelletier/go-toml/v2. All three share one document shape.
//
// # Basic Usage
//
//	decl, err := parser.ParseFile("services.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	code, _ := clientgen.Generate("go", decl.Model, decl.Context, nil)
package parser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/samber/lo"
	"sigs.k8s.io/yaml"

	"github.com/pthm/envgen/pkg/naming"
	"github.com/pthm/envgen/pkg/schema"
)

// Format identifies a declaration encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// ErrUnsupportedFormat is returned for file extensions with no decoder.
var ErrUnsupportedFormat = errors.New("envgen/parser: unsupported declaration format")

// ErrInvalidDeclaration wraps every structural problem in a declaration.
var ErrInvalidDeclaration = errors.New("envgen/parser: invalid declaration")

// Declaration is a parsed declaration file.
type Declaration struct {
	Model   *schema.Model
	Context schema.GenerationContext
}

// FormatFromPath picks a Format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", errors.WithHint(
			errors.Wrapf(ErrUnsupportedFormat, "%s", path),
			"use a .yaml, .yml, .json or .toml file",
		)
	}
}

// ParseFile reads and parses a declaration file. The format is picked from
// the file extension.
func ParseFile(path string) (*Declaration, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted source
	if err != nil {
		return nil, errors.Wrap(err, "reading declaration file")
	}
	decl, err := ParseBytes(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return decl, nil
}

// ParseString parses a YAML (or JSON) declaration.
func ParseString(content string) (*Declaration, error) {
	return ParseBytes([]byte(content), FormatYAML)
}

// ParseBytes parses a declaration in the given format.
func ParseBytes(data []byte, format Format) (*Declaration, error) {
	var doc document
	switch format {
	case FormatYAML, FormatJSON:
		// UseNumber keeps large integer defaults out of float64.
		if err := yaml.Unmarshal(data, &doc, func(d *json.Decoder) *json.Decoder {
			d.UseNumber()
			return d
		}); err != nil {
			return nil, errors.Wrapf(ErrInvalidDeclaration, "decoding %s: %v", format, err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrapf(ErrInvalidDeclaration, "decoding toml: %v", err)
		}
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", format)
	}
	return doc.build()
}

type document struct {
	Services  []serviceDoc  `json:"services" toml:"services"`
	Selection *selectionDoc `json:"selection,omitempty" toml:"selection"`
}

type serviceDoc struct {
	ID          string        `json:"id,omitempty" toml:"id"`
	Name        string        `json:"name" toml:"name"`
	Description string        `json:"description,omitempty" toml:"description"`
	Variables   []variableDoc `json:"variables" toml:"variables"`
}

type variableDoc struct {
	Key      string `json:"key" toml:"key"`
	Type     string `json:"type" toml:"type"`
	Required bool   `json:"required" toml:"required"`
	Default  any    `json:"default,omitempty" toml:"default"`
}

type selectionDoc struct {
	Services  []string                          `json:"services,omitempty" toml:"services"`
	Overrides map[string]map[string]overrideDoc `json:"overrides,omitempty" toml:"overrides"`
}

type overrideDoc struct {
	Included *bool `json:"included,omitempty" toml:"included"`
	Required *bool `json:"required,omitempty" toml:"required"`
}

func (d *document) build() (*Declaration, error) {
	m := &schema.Model{
		Services:  make([]schema.Service, 0, len(d.Services)),
		Variables: make(map[string][]schema.Variable, len(d.Services)),
	}

	for i, sd := range d.Services {
		id := strings.TrimSpace(sd.ID)
		if id == "" {
			id = naming.ToSnakeCase(sd.Name)
		}
		if id == "" {
			return nil, errors.Wrapf(ErrInvalidDeclaration, "service #%d has neither id nor name", i+1)
		}
		if _, dup := m.Variables[id]; dup {
			return nil, errors.Wrapf(ErrInvalidDeclaration, "duplicate service id %q", id)
		}
		m.Services = append(m.Services, schema.Service{ID: id, Name: sd.Name, Description: sd.Description})

		vars := make([]schema.Variable, 0, len(sd.Variables))
		for _, vd := range sd.Variables {
			v, err := vd.build()
			if err != nil {
				return nil, errors.Wrapf(err, "service %q", id)
			}
			vars = append(vars, v)
		}
		m.Variables[id] = vars
	}

	if err := schema.Validate(m); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "invalid declaration"), ErrInvalidDeclaration)
	}

	ctx, err := d.Selection.build(m)
	if err != nil {
		return nil, err
	}
	return &Declaration{Model: m, Context: ctx}, nil
}

func (vd variableDoc) build() (schema.Variable, error) {
	key := strings.TrimSpace(vd.Key)
	typeName := vd.Type
	if typeName == "" {
		typeName = string(schema.TypeString)
	}
	t, err := schema.ParseVariableType(typeName)
	if err != nil {
		return schema.Variable{}, errors.WithHint(
			errors.Wrapf(err, "variable %q", key),
			fmt.Sprintf("valid types: %v", schema.AllVariableTypes()),
		)
	}
	def, err := defaultString(vd.Default)
	if err != nil {
		return schema.Variable{}, errors.Wrapf(ErrInvalidDeclaration, "variable %q: %v", key, err)
	}
	return schema.Variable{Key: key, DefaultValue: def, Required: vd.Required, Type: t}, nil
}

// defaultString normalises a scalar default to its textual form.
func defaultString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("default must be a scalar, got %T", v)
	}
}

// build turns the optional selection block into a GenerationContext. With no
// block, or no service list, every service is selected.
func (sd *selectionDoc) build(m *schema.Model) (schema.GenerationContext, error) {
	ctx := schema.SelectAll(m)
	if sd == nil {
		return ctx, nil
	}

	if sd.Services != nil {
		for _, id := range sd.Services {
			if _, ok := m.Service(id); !ok {
				return ctx, errors.Wrapf(ErrInvalidDeclaration, "selection references unknown service %q", id)
			}
		}
		ctx = ctx.WithSelection(sd.Services...)
	}

	for _, serviceID := range sortedKeys(sd.Overrides) {
		vars, ok := m.Variables[serviceID]
		if !ok {
			return ctx, errors.Wrapf(ErrInvalidDeclaration, "override references unknown service %q", serviceID)
		}
		for _, key := range sortedKeys(sd.Overrides[serviceID]) {
			v, ok := findVariable(vars, key)
			if !ok {
				return ctx, errors.Wrapf(ErrInvalidDeclaration, "override references unknown variable %s.%s", serviceID, key)
			}
			od := sd.Overrides[serviceID][key]
			o := schema.Override{Included: true, Required: v.Required}
			if od.Included != nil {
				o.Included = *od.Included
			}
			if od.Required != nil {
				o.Required = *od.Required
			}
			ctx = ctx.WithOverride(serviceID, key, o)
		}
	}
	return ctx, nil
}

func findVariable(vars []schema.Variable, key string) (schema.Variable, bool) {
	for _, v := range vars {
		if v.Key == key {
			return v, true
		}
	}
	return schema.Variable{}, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
