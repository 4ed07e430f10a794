package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/envgen/pkg/clientgen"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List generation targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, t := range clientgen.ListTargets() {
			_, _ = fmt.Fprintf(out, "%-12s %s\n", t, clientgen.DefaultFilename(t))
		}
		return nil
	},
}
