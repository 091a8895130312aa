package main

import (
	"github.com/spf13/cobra"

	"overlayserver/internal/app"
	"overlayserver/internal/config"
	"overlayserver/internal/logger"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the overlay server",
		Long: `Starts the HTTP server, the UDP camera listener and the recognition
pipeline. Reference images are fetched once at startup; the tracking
session starts when every fetch has settled.`,
		Example: `  # Start with settings from .env
  overlayserver serve

  # Override the HTTP port
  overlayserver serve --port 9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Port = port
			}

			log, err := logger.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			application, err := app.NewApp(cfg, log)
			if err != nil {
				log.Error("Failed to start server: %v", err)
				return err
			}
			defer application.Close()

			return application.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (overrides PORT)")

	return cmd
}
