package python

import (
	"github.com/pthm/envgen/internal/clientgen"
	"github.com/pthm/envgen/pkg/schema"
)

// BOOLEAN maps to the builtin bool; BoolString is emitted alongside it as a
// stricter alias for hand-written settings. URL and EMAIL use Pydantic's
// own types and need no fragment.
var typeTable = clientgen.NewTypeTable("python", map[schema.VariableType]string{
	schema.TypeString:   "str",
	schema.TypeInt:      "int",
	schema.TypeFloat:    "float",
	schema.TypeBoolean:  "bool",
	schema.TypeURL:      "HttpUrl",
	schema.TypeEmail:    "EmailStr",
	schema.TypeDuration: "Duration",
	schema.TypeFilepath: "FilePath",
	schema.TypeArray:    "CommaSeparatedList",
	schema.TypeJSON:     "JsonDict",
}, map[schema.VariableType]string{
	schema.TypeBoolean:  boolString,
	schema.TypeDuration: duration,
	schema.TypeFilepath: filePath,
	schema.TypeArray:    commaSeparatedList,
	schema.TypeJSON:     jsonDict,
})

const boolString = `_TRUE_VALUES = {"1", "true", "yes", "on"}
_FALSE_VALUES = {"0", "false", "no", "off"}


def _parse_bool(value: Any) -> Any:
    if value is None or isinstance(value, bool):
        return value
    lowered = str(value).strip().lower()
    if lowered in _TRUE_VALUES:
        return True
    if lowered in _FALSE_VALUES:
        return False
    raise ValueError(f"invalid boolean: {value!r}")


BoolString = Annotated[bool, BeforeValidator(_parse_bool)]`

const duration = `_DURATION_PATTERN = re.compile(r"^(\d+(\.\d+)?(ns|us|µs|ms|s|m|h|d))+$")


def _validate_duration(value: str | None) -> str | None:
    if value is None:
        return None
    if not _DURATION_PATTERN.match(value):
        raise ValueError(f"invalid duration: {value!r}")
    return value


Duration = Annotated[str, AfterValidator(_validate_duration)]`

const filePath = `_FILEPATH_PATTERN = re.compile(r"^[\w\-. /\\:~]+$")


def _validate_file_path(value: str | None) -> str | None:
    if value is None:
        return None
    if not _FILEPATH_PATTERN.match(value):
        raise ValueError(f"invalid file path: {value!r}")
    if ".." in re.split(r"[\\/]", value):
        raise ValueError(f"path traversal is not allowed: {value!r}")
    return value


FilePath = Annotated[str, AfterValidator(_validate_file_path)]`

const commaSeparatedList = `def _split_comma(value: Any) -> Any:
    if value is None or isinstance(value, list):
        return value
    return [item.strip() for item in str(value).split(",") if item.strip()]


CommaSeparatedList = Annotated[list[str], NoDecode, BeforeValidator(_split_comma)]`

const jsonDict = `def _parse_json(value: Any) -> Any:
    if value is None or isinstance(value, dict):
        return value
    try:
        parsed = json.loads(value)
    except json.JSONDecodeError as exc:
        raise ValueError(f"invalid JSON: {exc}") from exc
    if not isinstance(parsed, dict):
        raise ValueError("JSON value must be an object")
    return parsed


JsonDict = Annotated[dict[str, Any], NoDecode, BeforeValidator(_parse_json)]`
