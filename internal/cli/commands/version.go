package commands

import (
	"runtime"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version, buildDate, gitCommit string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			r := GetRenderer(cmd.Context())
			r.Printf("leapsheet %s\n", version)
			r.Printf("  build date: %s\n", buildDate)
			r.Printf("  git commit: %s\n", gitCommit)
			r.Printf("  go version: %s\n", runtime.Version())
		},
	}
}
