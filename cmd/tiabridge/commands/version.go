package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCommand(info BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  noArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "tiabridge %s\n", info.Version)
			_, _ = fmt.Fprintf(out, "  commit: %s\n", info.Commit)
			_, _ = fmt.Fprintf(out, "  built:  %s\n", info.BuildDate)
		},
	}

	// No configuration or telemetry is needed to print the version.
	cmd.PersistentPreRun = func(*cobra.Command, []string) {}

	return cmd
}
