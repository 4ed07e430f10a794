package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/envgen/internal/cli"
	"github.com/pthm/envgen/pkg/migrator"
	"github.com/pthm/envgen/pkg/store"
)

var statusDB string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store status",
	Long:  `Show which store tables exist, the last recorded migration and the stored services.`,
	Example: `  # Check status
  envgen status --db postgres://localhost/mydb`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := resolveDSN(statusDB)
		if err != nil {
			return err
		}
		db, err := openDB(cmd.Context(), dsn)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		ctx := cmd.Context()
		s, err := migrator.NewMigrator(db).GetStatus(ctx)
		if err != nil {
			return cli.GeneralError("getting status", err)
		}

		out := cmd.OutOrStdout()
		for _, name := range migrator.TableNames() {
			state := "missing"
			if s.Tables[name] {
				state = "present"
			}
			_, _ = fmt.Fprintf(out, "%-18s %s\n", name+":", state)
		}

		switch {
		case s.LastMigration == nil:
			_, _ = fmt.Fprintln(out, "\nNo migration recorded. Run 'envgen migrate' to create the store.")
			return nil
		case !s.UpToDate:
			_, _ = fmt.Fprintf(out, "\nStore schema is out of date (recorded version %s, current %s).\n",
				s.LastMigration.DDLVersion, migrator.DDLVersion)
			_, _ = fmt.Fprintln(out, "Run 'envgen migrate' to update it.")
			return nil
		default:
			_, _ = fmt.Fprintf(out, "\nStore schema is current (version %s).\n", migrator.DDLVersion)
		}

		services, err := store.New(db).ListServices(ctx)
		if err != nil {
			return cli.GeneralError("listing services", err)
		}
		_, _ = fmt.Fprintf(out, "%d services stored\n", len(services))
		for _, svc := range services {
			_, _ = fmt.Fprintf(out, "  - %s [%s]\n", svc.Name, svc.ID)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusDB, "db", "", "database URL")
}
