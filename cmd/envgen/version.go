package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pthm/envgen/internal/update"
	"github.com/pthm/envgen/internal/version"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Example: `  # Print version
  envgen version

  # Also check GitHub for a newer release
  envgen version --check`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, version.Info())
		if !versionCheck {
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		info, err := update.CheckWithCache(ctx)
		if err != nil {
			// An unreachable GitHub is not a failure of the command.
			_, _ = fmt.Fprintf(out, "Could not check for updates: %v\n", err)
			return nil
		}
		if info.UpdateAvailable {
			_, _ = fmt.Fprintf(out, "A newer version is available: %s\n", info.LatestVersion)
			if info.ReleaseURL != "" {
				_, _ = fmt.Fprintf(out, "  %s\n", info.ReleaseURL)
			}
			_, _ = fmt.Fprintln(out, "  go install github.com/pthm/envgen/cmd/envgen@latest")
		} else {
			_, _ = fmt.Fprintln(out, "You are running the latest version.")
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check for a newer release")
}
