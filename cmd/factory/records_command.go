package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/database"
)

func newRecordsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "records",
		Short: "List recent pipeline records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := database.Open(cfg.Database, ctx.logger())
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "Records: none")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					formatStamp(rec.CreatedAt),
					rec.Status,
					valueOr(rec.Reason, "-"),
					valueOr(rec.ContentTitle, "-"),
					valueOr(rec.AIProvider, "-"),
					formatSeconds(rec.Duration),
					valueOr(rec.VideoPath, "-"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Created", "Status", "Reason", "Title", "AI", "Duration", "Video"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", database.DefaultListLimit, "Maximum records to show")
	return cmd
}
