package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/botbridge/botbridge-cli/internal/update"
)

// version is set at build time via ldflags
var version = "dev"

func newVersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Print version information",
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "botbridge-cli version %s\n", version)

			if check {
				// Non-blocking, fails silently.
				result := update.CheckForUpdate(cmd.Context(), version)
				if result != nil && result.UpdateAvailable {
					errOut := cmd.ErrOrStderr()
					_, _ = fmt.Fprintf(errOut, "\nUpdate available: %s -> %s\n", result.CurrentVersion, result.LatestVersion) //nolint:errcheck
					_, _ = fmt.Fprintf(errOut, "Download: %s\n", result.UpdateURL)                                            //nolint:errcheck
				}
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check for a newer release")
	return cmd
}
