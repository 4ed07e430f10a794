package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/envgen/internal/cli"
	"github.com/pthm/envgen/internal/doctor"
)

var (
	doctorDB          string
	doctorDeclaration string
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks",
	Long: `Run health checks on a declaration and, when a database is configured,
on the envgen store.

Checks cover declaration parsing, default values that would be emitted
incorrectly, service names that collide once converted to Go or Python
identifiers, and store migration state.`,
	Example: `  # Check the declaration file
  envgen doctor --declaration services.yaml

  # Check the store, reading services from it
  envgen doctor --db postgres://localhost/mydb

  # Run with verbose output
  envgen doctor -v`,
	RunE: func(cmd *cobra.Command, args []string) error {
		verboseFlag := resolveBool(verbose > 0, cfg.Doctor.Verbose)
		path := cfg.ResolvedDeclaration(doctorDeclaration)

		var db *sql.DB
		if doctorDB != "" || cfg.HasDatabase() {
			dsn, err := resolveDSN(doctorDB)
			if err != nil {
				return err
			}
			// The doctor reports connection failures itself.
			db, err = sql.Open("postgres", dsn)
			if err != nil {
				return cli.DBConnectError("connecting to database", err)
			}
			defer func() { _ = db.Close() }()

			// With a database and no explicit declaration, check the store.
			if doctorDeclaration == "" {
				path = ""
			}
		}

		out := cmd.OutOrStdout()
		if !quiet {
			_, _ = fmt.Fprintln(out, "envgen doctor - Health Check")
		}

		report, err := doctor.New(path, db).Run(cmd.Context())
		if err != nil {
			return cli.GeneralError("running doctor", err)
		}

		report.Print(out, verboseFlag)

		if report.HasErrors() {
			return cli.GeneralError("health checks failed", nil)
		}
		return nil
	},
}

func init() {
	f := doctorCmd.Flags()
	f.StringVar(&doctorDB, "db", "", "database URL")
	f.StringVar(&doctorDeclaration, "declaration", "", "path to declaration file")
}
