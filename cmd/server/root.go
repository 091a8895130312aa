package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "overlayserver",
		Short: "Recognize catalog thumbnails in camera frames and overlay their videos",
		Long: `overlayserver downloads the thumbnail of every catalog entry, recognizes
those images in live camera frames and plays the matching video on top of
each recognized image.

Settings come from .env, an optional TOML file and environment variables.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			if configFile != "" {
				os.Setenv("CONFIG_FILE", configFile)
			}
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "TOML config file (overrides CONFIG_FILE)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCatalogCmd())
	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newMigrateCmd())

	return cmd
}
