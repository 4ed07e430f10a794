package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/envgen/internal/cli"
	"github.com/pthm/envgen/internal/logger"
	"github.com/pthm/envgen/pkg/migrator"
	"github.com/pthm/envgen/pkg/parser"
	"github.com/pthm/envgen/pkg/store"
)

var (
	importDB          string
	importDeclaration string
	importMigrate     bool
)

var importCmd = &cobra.Command{
	Use:   "import [declaration]",
	Short: "Import a declaration into the store",
	Long: `Import the services and variables of a declaration file into the store.

Services are upserted by ID and their variables replaced, in one
transaction. Services in the store but not in the declaration are kept.
The declaration's selection block is ignored.`,
	Example: `  # Import services.yaml
  envgen import services.yaml --db postgres://localhost/mydb

  # Create the store tables first if needed
  envgen import --migrate`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := importDeclaration
		if len(args) == 1 {
			path = args[0]
		}
		path = cfg.ResolvedDeclaration(path)

		decl, err := parser.ParseFile(path)
		if err != nil {
			return cli.DeclarationError("parsing declaration", err)
		}

		dsn, err := resolveDSN(importDB)
		if err != nil {
			return err
		}
		db, err := openDB(cmd.Context(), dsn)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		ctx := cmd.Context()
		lg := logger.Logger.Desugar()
		if importMigrate {
			if _, err := migrator.MigrateWithLogger(ctx, db, migrator.MigrateOptions{}, lg); err != nil {
				return cli.GeneralError("migration failed", err)
			}
		}

		if err := store.New(db, store.WithLogger(lg)).ImportModel(ctx, decl.Model); err != nil {
			return cli.GeneralError("importing declaration", err)
		}

		if !quiet {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d services from %s\n", len(decl.Model.Services), path)
		}
		return nil
	},
}

func init() {
	f := importCmd.Flags()
	f.StringVar(&importDB, "db", "", "database URL")
	f.StringVar(&importDeclaration, "declaration", "", "path to declaration file")
	f.BoolVar(&importMigrate, "migrate", false, "run 'envgen migrate' first")
}
