package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand adds a `version` subcommand that prints the station
// build metadata and the user agent it announces to the hub and camera relay.
func AttachCobraVersionCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the station version.",
		Long:  "Print the station version, commit hash and build timestamp injected at build time, followed by the user agent sent to the hub and the camera relay.",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()

			_, _ = fmt.Fprintln(out, Full())
			_, _ = fmt.Fprintln(out, "user agent:", UserAgent())
		},
	})
}
