package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pthm/envgen/internal/cli"
	"github.com/pthm/envgen/internal/logger"
	"github.com/pthm/envgen/pkg/migrator"
)

var (
	migrateDB     string
	migrateDryRun bool
	migrateForce  bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the store tables",
	Long:  `Create or update the envgen store tables in PostgreSQL.`,
	Example: `  # Apply the store schema
  envgen migrate --db postgres://localhost/mydb

  # Preview migration without applying
  envgen migrate --db postgres://localhost/mydb --dry-run

  # Force re-apply even if unchanged
  envgen migrate --db postgres://localhost/mydb --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun := resolveBool(migrateDryRun, cfg.Migrate.DryRun)
		force := resolveBool(migrateForce, cfg.Migrate.Force)

		opts := migrator.MigrateOptions{Force: force}
		if dryRun {
			// A dry run needs no database.
			opts.DryRun = cmd.OutOrStdout()
			if !quiet {
				fmt.Fprintln(os.Stderr, "-- Dry-run mode: SQL will be output but not applied")
				fmt.Fprintln(os.Stderr, "")
			}
			_, err := migrator.MigrateWithOptions(cmd.Context(), nil, opts)
			return err
		}

		dsn, err := resolveDSN(migrateDB)
		if err != nil {
			return err
		}
		db, err := openDB(cmd.Context(), dsn)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		out := cmd.OutOrStdout()
		if !quiet {
			_, _ = fmt.Fprintln(out, "Applying envgen store schema...")
		}

		skipped, err := migrator.MigrateWithLogger(cmd.Context(), db, opts, logger.Logger.Desugar())
		if err != nil {
			return cli.GeneralError("migration failed", err)
		}

		if !quiet {
			if skipped {
				_, _ = fmt.Fprintln(out, "Store schema unchanged, migration skipped.")
				_, _ = fmt.Fprintln(out, "Use --force to re-apply.")
			} else {
				_, _ = fmt.Fprintln(out, "Store schema applied successfully.")
			}
		}
		return nil
	},
}

func init() {
	f := migrateCmd.Flags()
	f.StringVar(&migrateDB, "db", "", "database URL")
	f.BoolVar(&migrateDryRun, "dry-run", false, "output migration SQL without applying")
	f.BoolVar(&migrateForce, "force", false, "force migration even if unchanged")
}
