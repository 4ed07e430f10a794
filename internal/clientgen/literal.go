package clientgen

import (
	"strconv"

	"github.com/pthm/envgen/pkg/schema"
)

// EncodeDefault renders a default value as a literal in the TypeScript and
// Python targets.
//
// INT values are parsed base-10 and FLOAT values as 64-bit floats, then
// printed back as bare numbers. Everything else becomes a single-quoted
// string with no escaping.
//
// The encoder formats; it does not validate. A numeric default that fails
// to parse is emitted verbatim and unquoted, so the bad value shows up in
// the generated code instead of being hidden. A value containing a single
// quote likewise yields an unterminated literal; `envgen doctor` warns
// about both.
func EncodeDefault(value string, t schema.VariableType) string {
	switch t {
	case schema.TypeInt:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return value
		}
		return strconv.FormatInt(n, 10)
	case schema.TypeFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return value
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return "'" + value + "'"
	}
}
