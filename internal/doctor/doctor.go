// Package doctor checks envgen declarations and the Postgres store for
// problems that would make generated code fail to compile or load.
//
// Example usage:
//
//	d := doctor.New("services.yaml", db)
//	report, err := d.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	report.Print(os.Stdout, true) // verbose=true
package doctor

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/pthm/envgen/pkg/migrator"
	"github.com/pthm/envgen/pkg/naming"
	"github.com/pthm/envgen/pkg/parser"
	"github.com/pthm/envgen/pkg/schema"
	"github.com/pthm/envgen/pkg/store"
)

// Check categories, in report order.
const (
	CategoryDeclaration = "Declaration"
	CategoryDatabase    = "Database"
	CategoryVariables   = "Variables"
	CategorySymbols     = "Generated Symbols"
)

// Doctor runs health checks against a declaration file, a database, or both.
type Doctor struct {
	declarationPath string
	db              *sql.DB

	// Populated during Run
	model *schema.Model
}

// New creates a Doctor. Either argument may be empty/nil to skip the
// related checks. When no declaration is given, the model is read from the
// store instead.
func New(declarationPath string, db *sql.DB) *Doctor {
	return &Doctor{declarationPath: declarationPath, db: db}
}

// Run executes all health checks and returns a report. The error return is
// reserved for failures of the checks themselves, not for problems found.
func (d *Doctor) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	if d.declarationPath != "" {
		d.checkDeclaration(report)
	}
	if d.db != nil {
		if err := d.checkDatabase(ctx, report); err != nil {
			return nil, errors.Wrap(err, "checking database")
		}
	}
	if d.model != nil {
		CheckModel(report, d.model)
	}
	return report, nil
}

// checkDeclaration validates the declaration file exists and parses.
func (d *Doctor) checkDeclaration(report *Report) {
	if _, err := os.Stat(d.declarationPath); err != nil {
		report.AddCheck(CheckResult{
			Category: CategoryDeclaration,
			Name:     "exists",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Declaration file not found at %s", d.declarationPath),
			FixHint:  "Create the file or point --declaration at it",
		})
		return
	}
	report.AddCheck(CheckResult{
		Category: CategoryDeclaration,
		Name:     "exists",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Declaration file exists at %s", d.declarationPath),
	})

	decl, err := parser.ParseFile(d.declarationPath)
	if err != nil {
		report.AddCheck(CheckResult{
			Category: CategoryDeclaration,
			Name:     "valid",
			Status:   StatusFail,
			Message:  "Declaration has errors",
			Details:  err.Error(),
			FixHint:  firstNonEmpty(errors.FlattenHints(err), "Run 'envgen validate' to see the full error"),
		})
		return
	}
	d.model = decl.Model

	varCount := 0
	for _, vars := range decl.Model.Variables {
		varCount += len(vars)
	}
	report.AddCheck(CheckResult{
		Category: CategoryDeclaration,
		Name:     "valid",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Declaration is valid (%d services, %d variables)", len(decl.Model.Services), varCount),
	})
}

// checkDatabase validates connectivity and the store tables. When no
// declaration was parsed the model is loaded from the store.
func (d *Doctor) checkDatabase(ctx context.Context, report *Report) error {
	if err := d.db.PingContext(ctx); err != nil {
		report.AddCheck(CheckResult{
			Category: CategoryDatabase,
			Name:     "connect",
			Status:   StatusFail,
			Message:  "Cannot connect to database",
			Details:  err.Error(),
			FixHint:  "Check database.url or the ENVGEN_DATABASE_URL environment variable",
		})
		return nil
	}
	report.AddCheck(CheckResult{
		Category: CategoryDatabase,
		Name:     "connect",
		Status:   StatusPass,
		Message:  "Connected to database",
	})

	status, err := migrator.NewMigrator(d.db).GetStatus(ctx)
	if err != nil {
		return errors.Wrap(err, "getting migration status")
	}

	missing := lo.Filter(migrator.TableNames(), func(name string, _ int) bool {
		return !status.Tables[name]
	})
	if len(missing) > 0 {
		report.AddCheck(CheckResult{
			Category: CategoryDatabase,
			Name:     "tables",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Missing tables: %s", strings.Join(missing, ", ")),
			FixHint:  "Run 'envgen migrate' to create them",
		})
		return nil
	}
	report.AddCheck(CheckResult{
		Category: CategoryDatabase,
		Name:     "tables",
		Status:   StatusPass,
		Message:  "Store tables exist",
	})

	switch {
	case status.LastMigration == nil:
		report.AddCheck(CheckResult{
			Category: CategoryDatabase,
			Name:     "migrated",
			Status:   StatusWarn,
			Message:  "No migration records found",
			Details:  "Tables exist but were not created by 'envgen migrate'",
			FixHint:  "Run 'envgen migrate' to record the schema version",
		})
	case !status.UpToDate:
		report.AddCheck(CheckResult{
			Category: CategoryDatabase,
			Name:     "migrated",
			Status:   StatusWarn,
			Message:  "Store schema is out of date",
			Details: fmt.Sprintf("DB version %s, binary version %s",
				status.LastMigration.DDLVersion, migrator.DDLVersion),
			FixHint: "Run 'envgen migrate'",
		})
	default:
		report.AddCheck(CheckResult{
			Category: CategoryDatabase,
			Name:     "migrated",
			Status:   StatusPass,
			Message:  fmt.Sprintf("Store schema is current (version %s)", migrator.DDLVersion),
		})
	}

	if d.model != nil {
		return nil
	}
	m, loadReport, err := store.NewLoader(store.New(d.db)).LoadModel(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "loading model from store")
	}
	if !loadReport.OK() {
		report.AddCheck(CheckResult{
			Category: CategoryDatabase,
			Name:     "load",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Failed to load variables for %d services", len(loadReport.Failures)),
			Details:  loadReport.Err().Error(),
		})
	}
	d.model = m
	return nil
}

// CheckModel lints a model for problems that surface only in generated
// code. It is exported so `envgen validate` can run the same lint.
func CheckModel(report *Report, m *schema.Model) {
	for _, p := range schema.Check(m) {
		report.AddCheck(CheckResult{
			Category: CategoryVariables,
			Name:     "invariant",
			Status:   StatusFail,
			Message:  p.String(),
		})
	}

	before := len(report.Checks)
	for _, svc := range m.Services {
		for _, v := range m.Variables[svc.ID] {
			checkVariable(report, svc, v)
		}
	}
	if len(report.Checks) == before {
		report.AddCheck(CheckResult{
			Category: CategoryVariables,
			Name:     "defaults",
			Status:   StatusPass,
			Message:  "All keys and default values are safe to emit",
		})
	}

	checkSymbols(report, m.Services)
}

func checkVariable(report *Report, svc schema.Service, v schema.Variable) {
	ref := svc.ID + "." + v.Key
	warn := func(name, msg, hint string) {
		report.AddCheck(CheckResult{
			Category: CategoryVariables,
			Name:     name,
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%s: %s", ref, msg),
			FixHint:  hint,
		})
	}

	if v.Key != "" && !isExportedIdent(v.Key) {
		warn("go_identifier", "key is not an exported Go identifier",
			"Use upper-case letters, digits and underscores, starting with a letter")
	}

	if v.HasDefault() {
		switch v.Type {
		case schema.TypeInt:
			if _, err := strconv.ParseInt(v.DefaultValue, 10, 64); err != nil {
				warn("int_default", fmt.Sprintf("default %q is not a base-10 integer", v.DefaultValue),
					"It would be emitted unquoted into TypeScript and Python")
			}
		case schema.TypeFloat:
			if _, err := strconv.ParseFloat(v.DefaultValue, 64); err != nil {
				warn("float_default", fmt.Sprintf("default %q is not a number", v.DefaultValue),
					"It would be emitted unquoted into TypeScript and Python")
			}
		}
	}
	if strings.Contains(v.DefaultValue, "'") {
		warn("quote_default", "default contains a single quote",
			"Single-quoted TypeScript and Python literals are not escaped")
	}
	if strings.Contains(v.DefaultValue, "`") {
		warn("backtick_default", "default contains a backtick",
			"Go struct tags are raw strings and cannot contain backticks")
	}
	if strings.ContainsAny(v.DefaultValue, "\n\r") {
		warn("newline_default", "default spans multiple lines",
			".env values are written raw, one per line")
	}
}

// checkSymbols reports services whose names map to the same generated Go or
// Python identifier. The generators assume names are unique after case
// conversion and never disambiguate.
func checkSymbols(report *Report, services []schema.Service) {
	clean := true
	for _, conv := range []struct {
		lang string
		fn   func(string) string
	}{
		{"Go", naming.ToPascalCase},
		{"Python", naming.ToSnakeCase},
	} {
		groups := lo.GroupBy(services, func(s schema.Service) string { return conv.fn(s.Name) })
		syms := lo.Keys(groups)
		slices.Sort(syms)
		for _, sym := range syms {
			group := groups[sym]
			if sym == "" {
				clean = false
				report.AddCheck(CheckResult{
					Category: CategorySymbols,
					Name:     "empty_symbol",
					Status:   StatusFail,
					Message:  fmt.Sprintf("%s: service name yields an empty identifier", conv.lang),
					Details:  strings.Join(serviceIDs(group), ", "),
					FixHint:  "Give the service a name containing letters",
				})
				continue
			}
			if len(group) > 1 {
				clean = false
				report.AddCheck(CheckResult{
					Category: CategorySymbols,
					Name:     "collision",
					Status:   StatusFail,
					Message:  fmt.Sprintf("%s: services %s all generate %q", conv.lang, strings.Join(quoted(serviceNames(group)), ", "), sym),
					FixHint:  "Rename services so their names differ after case conversion",
				})
			}
		}
	}
	if clean {
		report.AddCheck(CheckResult{
			Category: CategorySymbols,
			Name:     "collision",
			Status:   StatusPass,
			Message:  "Service names map to distinct Go and Python symbols",
		})
	}
}

// isExportedIdent reports whether s can be used verbatim as an exported Go
// struct field name.
func isExportedIdent(s string) bool {
	for i, r := range s {
		switch {
		case i == 0 && !unicode.IsUpper(r):
			return false
		case r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r):
			return false
		}
	}
	return s != ""
}

func serviceIDs(services []schema.Service) []string {
	return lo.Map(services, func(s schema.Service, _ int) string { return s.ID })
}

func serviceNames(services []schema.Service) []string {
	return lo.Map(services, func(s schema.Service, _ int) string { return s.Name })
}

func quoted(ss []string) []string {
	return lo.Map(ss, func(s string, _ int) string { return strconv.Quote(s) })
}

func firstNonEmpty(ss ...string) string {
	s, _ := lo.Find(ss, func(s string) bool { return s != "" })
	return s
}
