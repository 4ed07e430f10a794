package python_test

import (
	"strings"
	"testing"

	"github.com/pthm/envgen/internal/clientgen"
	"github.com/pthm/envgen/internal/clientgen/python"
	"github.com/pthm/envgen/pkg/schema"
)

func authModel() *schema.Model {
	return &schema.Model{
		Services: []schema.Service{{ID: "auth", Name: "Auth Service"}},
		Variables: map[string][]schema.Variable{
			"auth": {
				{Key: "JWT_SECRET", Required: true, Type: schema.TypeString},
				{Key: "TOKEN_TTL", DefaultValue: "3600", Type: schema.TypeInt},
			},
		},
	}
}

func TestGenerator_Interface(t *testing.T) {
	gen := &python.Generator{}

	if got := gen.Target().String(); got != "python" {
		t.Errorf("Target() = %q, want %q", got, "python")
	}
	if gen.Filename() != "config.py" {
		t.Errorf("Filename() = %q, want config.py", gen.Filename())
	}
	if missing := clientgen.MissingTypes(gen.Types()); len(missing) > 0 {
		t.Errorf("type table missing %v", missing)
	}
}

func TestGenerator_Generate(t *testing.T) {
	gen := &python.Generator{}
	m := authModel()
	code := gen.Generate(m, schema.SelectAll(m), nil)

	t.Run("settings class", func(t *testing.T) {
		for _, want := range []string{
			"from pydantic_settings import BaseSettings, NoDecode, SettingsConfigDict",
			"class AuthServiceConfig(BaseSettings):",
			`    model_config = SettingsConfigDict(env_file=".env", extra="ignore")`,
			"    JWT_SECRET: str\n",
			"    TOKEN_TTL: int | None = 3600\n",
		} {
			if !strings.Contains(code, want) {
				t.Errorf("missing %q in:\n%s", want, code)
			}
		}
	})

	t.Run("instance after class", func(t *testing.T) {
		idx := strings.Index(code, "auth_service_config = AuthServiceConfig()")
		if idx < 0 {
			t.Fatalf("missing instance in:\n%s", code)
		}
		if idx < strings.Index(code, "class AuthServiceConfig") {
			t.Error("instance must follow class definition")
		}
	})

	t.Run("no custom types for primitives", func(t *testing.T) {
		for _, unwanted := range []string{"BoolString", "JsonDict =", "Duration =", "_split_comma"} {
			if strings.Contains(code, unwanted) {
				t.Errorf("unexpected %q", unwanted)
			}
		}
	})

	t.Run("empty selection", func(t *testing.T) {
		if got := gen.Generate(m, schema.GenerationContext{}, nil); got != "" {
			t.Errorf("Generate() = %q, want empty", got)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		if again := gen.Generate(m, schema.SelectAll(m), nil); again != code {
			t.Error("second generation differs from first")
		}
	})
}

func TestGenerator_FieldForms(t *testing.T) {
	gen := &python.Generator{}
	m := &schema.Model{
		Services: []schema.Service{{ID: "app", Name: "my  app"}},
		Variables: map[string][]schema.Variable{
			"app": {
				{Key: "REQ_DEFAULT", DefaultValue: "x", Required: true, Type: schema.TypeString},
				{Key: "OPT_NONE", Type: schema.TypeFloat},
				{Key: "RATIO", DefaultValue: "0.50", Type: schema.TypeFloat},
				{Key: "HOSTS", DefaultValue: "a,b", Type: schema.TypeArray},
			},
		},
	}
	code := gen.Generate(m, schema.SelectAll(m), nil)

	for _, want := range []string{
		"class MyAppConfig(BaseSettings):",
		"    REQ_DEFAULT: str = 'x'\n",
		"    OPT_NONE: float | None = None\n",
		"    RATIO: float | None = 0.5\n",
		"    HOSTS: CommaSeparatedList | None = 'a,b'\n",
		"my_app_config = MyAppConfig()",
	} {
		if !strings.Contains(code, want) {
			t.Errorf("missing %q in:\n%s", want, code)
		}
	}
}

func TestGenerator_CustomTypeGating(t *testing.T) {
	gen := &python.Generator{}
	m := &schema.Model{
		Services: []schema.Service{
			{ID: "a", Name: "Alpha"},
			{ID: "b", Name: "Beta"},
		},
		Variables: map[string][]schema.Variable{
			"a": {{Key: "META", Type: schema.TypeJSON}},
			"b": {
				{Key: "OTHER_META", Type: schema.TypeJSON},
				{Key: "TIMEOUT", Type: schema.TypeDuration},
			},
		},
	}
	code := gen.Generate(m, schema.SelectAll(m), nil)

	if n := strings.Count(code, "JsonDict = Annotated["); n != 1 {
		t.Errorf("JsonDict defined %d times, want 1", n)
	}
	if strings.Index(code, "JsonDict = ") > strings.Index(code, "class AlphaConfig") {
		t.Error("JsonDict must precede the first class")
	}
	// Enum order puts DURATION before JSON.
	if strings.Index(code, "Duration = ") > strings.Index(code, "JsonDict = ") {
		t.Error("custom types out of declaration order")
	}
	if strings.Contains(code, "FilePath = ") {
		t.Error("FilePath emitted without a FILEPATH variable")
	}
}
