package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pthm/envgen/internal/cli"
	"github.com/pthm/envgen/pkg/parser"
)

var validateDeclaration string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a declaration file",
	Long: `Parse a declaration file and check it for structural errors: unknown
variable types, duplicate service IDs, duplicate keys and selections that
reference unknown services or variables.

Use 'envgen doctor' for lint checks on the generated output.`,
	Example: `  # Validate a specific declaration
  envgen validate --declaration services.yaml

  # Validate using config file settings
  envgen validate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.ResolvedDeclaration(validateDeclaration)

		if _, err := os.Stat(path); err != nil {
			return cli.DeclarationError(fmt.Sprintf("declaration not found: %s", path), nil)
		}

		decl, err := parser.ParseFile(path)
		if err != nil {
			return cli.DeclarationError("parsing declaration", err)
		}

		if !quiet {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Declaration is valid. Found %d services:\n", len(decl.Model.Services))
			for _, svc := range decl.Model.Services {
				marker := " "
				if decl.Context.IsSelected(svc.ID) {
					marker = "*"
				}
				_, _ = fmt.Fprintf(out, " %s %s [%s] (%d variables)\n", marker, svc.Name, svc.ID, len(decl.Model.Variables[svc.ID]))
			}
			if len(decl.Context.SelectedServiceIDs) < len(decl.Model.Services) {
				_, _ = fmt.Fprintln(out, "\n* selected for generation")
			}
		}

		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateDeclaration, "declaration", "", "path to declaration file")
}
