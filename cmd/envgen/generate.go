package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/pthm/envgen/internal/cli"
	"github.com/pthm/envgen/internal/logger"
	"github.com/pthm/envgen/internal/selector"
	"github.com/pthm/envgen/pkg/clientgen"
	"github.com/pthm/envgen/pkg/parser"
	"github.com/pthm/envgen/pkg/schema"
	"github.com/pthm/envgen/pkg/store"
)

var (
	genTarget      string
	genAll         bool
	genDeclaration string
	genDB          string
	genServices    []string
	genExclude     []string
	genOptional    []string
	genRequire     []string
	genOutput      string
	genPackage     string
	genInteractive bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate configuration code",
	Long: `Generate configuration code for the selected services.

Supported targets: ` + strings.Join(clientgen.ListTargets(), ", ") + `

Services and variables come from a declaration file (the default) or from
the envgen store with --db. The declaration's own selection is used unless
--service is given; --exclude, --optional and --require adjust single
variables and take "service.KEY" references.`,
	Example: `  # Print Go code for every service in services.yaml
  envgen generate --target go

  # Write a Zod schema for two services
  envgen generate --target ts --service auth --service billing --output web/src/env.ts

  # Drop one variable and make another optional
  envgen generate --target python --exclude auth.DEBUG --optional auth.JWT_SECRET

  # Every target into one directory, reading from the store
  envgen generate --all --db postgres://localhost/mydb --output gen/

  # Pick services and variables interactively
  envgen generate --target env --interactive`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		target := resolveString(genTarget, cfg.Generate.Target)
		output := resolveString(genOutput, cfg.Generate.Output)
		pkg := resolveString(genPackage, cfg.Generate.Package, "config")

		if !genAll {
			if target == "" {
				return cli.ConfigError("--target or --all is required", nil)
			}
			if clientgen.DefaultFilename(target) == "" {
				return cli.ConfigError(
					fmt.Sprintf("unknown target %q", target),
					errors.Newf("supported targets: %s", strings.Join(clientgen.ListTargets(), ", ")),
				)
			}
		}
		if genAll && output == "" {
			return cli.ConfigError("--output directory is required with --all", nil)
		}
		if genDB != "" && genDeclaration != "" {
			return cli.ConfigError("--declaration and --db are mutually exclusive", nil)
		}

		m, gctx, err := loadForGenerate(ctx)
		if err != nil {
			return err
		}

		gctx, err = selector.Apply(m, gctx, selector.Refs{
			Services: resolveStrings(genServices, cfg.Generate.Services),
			Exclude:  resolveStrings(genExclude, cfg.Generate.Exclude),
			Optional: resolveStrings(genOptional, cfg.Generate.Optional),
			Require:  resolveStrings(genRequire, cfg.Generate.Require),
		})
		if err != nil {
			return cli.ConfigError("applying selection", err)
		}

		if genInteractive {
			gctx, err = selector.NewInteractive(m).Run(ctx, gctx)
			if errors.Is(err, selector.ErrAborted) {
				return cli.GeneralError("selection aborted", nil)
			}
			if err != nil {
				return cli.GeneralError("interactive selection", err)
			}
		}

		if len(gctx.SelectedServiceIDs) == 0 {
			logger.Logger.Warn("no services selected; output will be empty")
		}

		genCfg := &clientgen.Config{Package: pkg}

		if genAll {
			artifacts, err := clientgen.GenerateAll(ctx, m, gctx, genCfg)
			if err != nil {
				return cli.GeneralError("generation failed", err)
			}
			if err := os.MkdirAll(output, 0o755); err != nil {
				return cli.GeneralError("creating output directory", err)
			}
			for _, a := range artifacts {
				if err := writeArtifact(cmd.OutOrStdout(), filepath.Join(output, a.Filename), a.Content); err != nil {
					return err
				}
			}
			return nil
		}

		code, err := clientgen.Generate(target, m, gctx, genCfg)
		if err != nil {
			return cli.GeneralError("generation failed", err)
		}
		if output == "" {
			if _, err := io.WriteString(cmd.OutOrStdout(), withNewline(code)); err != nil {
				return cli.GeneralError("writing to stdout", err)
			}
			return nil
		}
		return writeArtifact(cmd.OutOrStdout(), outputPath(output, target), code)
	},
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&genTarget, "target", "t", "", "target: "+strings.Join(clientgen.ListTargets(), ", "))
	f.BoolVar(&genAll, "all", false, "generate every target (requires --output directory)")
	f.StringVar(&genDeclaration, "declaration", "", "path to declaration file")
	f.StringVar(&genDB, "db", "", "read services from the store at this database URL")
	f.StringSliceVarP(&genServices, "service", "s", nil, "service ID to generate (repeatable, default: declaration selection)")
	f.StringSliceVar(&genExclude, "exclude", nil, "leave out a variable, as service.KEY (repeatable)")
	f.StringSliceVar(&genOptional, "optional", nil, "mark a variable optional, as service.KEY (repeatable)")
	f.StringSliceVar(&genRequire, "require", nil, "mark a variable required, as service.KEY (repeatable)")
	f.StringVarP(&genOutput, "output", "o", "", "output file or directory (default: stdout)")
	f.StringVar(&genPackage, "package", "", "package name for the go target (default: config)")
	f.BoolVarP(&genInteractive, "interactive", "i", false, "choose services and variables interactively")
}

// loadForGenerate reads the model from the store when --db is given and from
// the declaration file otherwise.
func loadForGenerate(ctx context.Context) (*schema.Model, schema.GenerationContext, error) {
	if genDB == "" {
		path := cfg.ResolvedDeclaration(genDeclaration)
		decl, err := parser.ParseFile(path)
		if err != nil {
			return nil, schema.GenerationContext{}, cli.DeclarationError("parsing declaration", err)
		}
		return decl.Model, decl.Context, nil
	}

	db, err := openDB(ctx, genDB)
	if err != nil {
		return nil, schema.GenerationContext{}, err
	}
	defer func() { _ = db.Close() }()

	lg := logger.Logger.Desugar()
	loader := store.NewLoader(
		store.New(db, store.WithLogger(lg)),
		store.WithRetry(3, 200*time.Millisecond),
		store.WithLoaderLogger(lg),
	)
	m, report, err := loader.LoadModel(ctx, genServices)
	if err != nil {
		return nil, schema.GenerationContext{}, cli.GeneralError("loading services from store", err)
	}
	if !report.OK() {
		for _, f := range report.Failures {
			logger.Logger.Warnw("service omitted", "service", f.ServiceID, "error", f.Err)
		}
	}
	return m, schema.SelectAll(m), nil
}

// outputPath resolves --output for a single target. An existing directory or
// a path ending in a separator receives the target's default file name.
func outputPath(output, target string) string {
	if strings.HasSuffix(output, string(os.PathSeparator)) || strings.HasSuffix(output, "/") {
		return filepath.Join(output, clientgen.DefaultFilename(target))
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, clientgen.DefaultFilename(target))
	}
	return output
}

func writeArtifact(status io.Writer, path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cli.GeneralError("creating output directory", err)
	}
	if err := os.WriteFile(path, []byte(withNewline(content)), 0o644); err != nil { //nolint:gosec // generated source is not secret
		return cli.GeneralError(fmt.Sprintf("writing %s", path), err)
	}
	logger.Logger.Debugw("wrote artifact", "path", path, "bytes", len(content))
	if !quiet {
		_, _ = fmt.Fprintf(status, "Generated %s\n", path)
	}
	return nil
}

// withNewline terminates non-empty output with a newline. The env target
// has no trailing newline of its own.
func withNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
