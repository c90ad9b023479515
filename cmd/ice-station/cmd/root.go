package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/ice-station/internal/config"
	"github.com/oshokin/ice-station/internal/service/station"
	"github.com/oshokin/ice-station/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// clientName announced to the hub.
	clientName string

	// rootCmd represents the base command for running the monitoring station.
	rootCmd = &cobra.Command{
		Use:   "ice-station [hub-url]",
		Short: "Run a monitoring station connected to the event hub.",
		Long: `Connects to the event hub over WebSocket, follows its alarm state and raises
alerts for the events the current mode treats as alarming.

The hub URL can be provided as argument to override config (e.g., ws://hub:8080/ws).
When a camera configuration URL is set, the station keeps a receive-only WebRTC
session with the camera relay and restarts it whenever it is not connected.
A local HTTP control API and a gRPC health service are started when their
addresses are configured.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var hubURL string
			if len(args) > 0 {
				hubURL = args[0]
			}

			options := &station.Options{
				ConfigPath: configPath,
				HubURL:     hubURL,
				ClientName: clientName,
			}

			return station.Run(ctx, options)
		},
	}
)

// Execute runs the ice-station CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&clientName, "name", "n", "", "client name announced to the hub (default user@host)")
}
