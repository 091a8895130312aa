package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"overlayserver/internal/catalog"
	"overlayserver/internal/config"
)

func newCatalogCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the content catalog with the tag each entry is recognized by",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				path = cfg.CatalogPath
			}

			descriptors, err := catalog.Load(path)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(descriptors))
			for tag, d := range descriptors {
				rows = append(rows, []string{strconv.Itoa(tag), d.Title, d.Thumbnail(), d.Video()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Tag", "Title", "Thumbnail", "Video"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "file", "", "catalog file (overrides CATALOG_PATH)")

	return cmd
}
