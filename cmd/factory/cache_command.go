package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the background clip cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))

	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show cached background clips",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.Backgrounds == nil {
				fmt.Fprintln(out, "Background cache is disabled (background.source is empty)")
				return nil
			}

			entries, err := a.Backgrounds.Entries(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "Cached clips: none")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.Key,
					valueOr(e.Asset.Category, "-"),
					formatSeconds(e.Asset.Duration),
					fmt.Sprintf("%dx%d", e.Asset.Width, e.Asset.Height),
					formatStamp(e.StoredAt),
					filepath.Base(e.Asset.Path),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Key", "Category", "Duration", "Size", "Stored", "File"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Evict expired and missing clips now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.Backgrounds == nil {
				fmt.Fprintln(out, "Background cache is disabled (background.source is empty)")
				return nil
			}

			removed, err := a.Backgrounds.Prune(cmd.Context())
			if err != nil {
				return err
			}
			if removed == 0 {
				fmt.Fprintln(out, "No cache entries pruned")
				return nil
			}
			fmt.Fprintf(out, "Pruned %d cache entries\n", removed)
			return nil
		},
	}
}
