package gogen

import (
	"fmt"

	"github.com/pthm/envgen/internal/clientgen"
	"github.com/pthm/envgen/pkg/schema"
)

var typeTable = clientgen.NewTypeTable("go", map[schema.VariableType]string{
	schema.TypeString:   "string",
	schema.TypeInt:      "int",
	schema.TypeFloat:    "float64",
	schema.TypeBoolean:  "bool",
	schema.TypeURL:      "URL",
	schema.TypeEmail:    "Email",
	schema.TypeDuration: "Duration",
	schema.TypeFilepath: "Filepath",
	schema.TypeArray:    "[]string",
	schema.TypeJSON:     "JSONMap",
}, map[schema.VariableType]string{
	schema.TypeURL:      regexDecoder("URL", "urlPattern", `^https?://[^\s/$.?#][^\s]*$`, "URL"),
	schema.TypeEmail:    regexDecoder("Email", "emailPattern", `^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`, "email"),
	schema.TypeDuration: regexDecoder("Duration", "durationPattern", `^(\d+(\.\d+)?(ns|us|µs|ms|s|m|h|d))+$`, "duration"),
	schema.TypeFilepath: regexDecoder("Filepath", "filepathPattern", `^[\w\-. /\\:~]+$`, "file path"),
	schema.TypeJSON:     jsonMapDecoder,
})

// regexDecoder returns the source of a named string type whose envconfig
// Decode method accepts only values matching pattern.
func regexDecoder(typeName, varName, pattern, label string) string {
	return fmt.Sprintf(`// %[1]s is a string validated against %[2]s.
type %[1]s string

var %[2]s = regexp.MustCompile(%[3]s)

// Decode implements envconfig.Decoder.
func (v *%[1]s) Decode(value string) error {
	if !%[2]s.MatchString(value) {
		return fmt.Errorf("invalid %[4]s: %%q", value)
	}
	*v = %[1]s(value)
	return nil
}`, typeName, varName, "`"+pattern+"`", label)
}

const jsonMapDecoder = `// JSONMap is a JSON object decoded from a single variable.
type JSONMap map[string]any

// Decode implements envconfig.Decoder.
func (m *JSONMap) Decode(value string) error {
	if err := json.Unmarshal([]byte(value), (*map[string]any)(m)); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}`
