package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"overlayserver/internal/acquisition"
	"overlayserver/internal/catalog"
	"overlayserver/internal/config"
	"overlayserver/internal/vision"
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download and decode every catalog thumbnail once and report the outcome",
		Long: `Fetches every thumbnail the server would use as a reference image and
prints which ones are recognizable. Nothing is stored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			descriptors, err := catalog.Load(cfg.CatalogPath)
			if err != nil {
				return err
			}

			acquirer := acquisition.NewAcquirer(acquisition.NewFetcher(cfg.FetchTimeout), vision.Decoder{}, cfg.PhysicalWidth)
			results := acquirer.AcquireAll(cmd.Context(), descriptors)

			failed := 0
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status, size, reason := "ok", "", ""
				if r.OK() {
					b := r.Image.Pixels.Bounds()
					size = fmt.Sprintf("%dx%d", b.Dx(), b.Dy())
				} else {
					status, reason = "failed", r.Err.Error()
					failed++
				}
				rows = append(rows, []string{strconv.Itoa(r.Tag), status, size, r.URL, reason})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Tag", "Status", "Size", "URL", "Error"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "%d of %d reference images recognizable\n", len(results)-failed, len(results))
			return nil
		},
	}

	return cmd
}
