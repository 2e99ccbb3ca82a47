package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/pipeline"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var topic string
	var category string
	var count int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Produce one or more videos now",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", count)
			}

			a, err := ctx.ensureApp()
			if err != nil {
				return err
			}

			reqs := buildRequests(count, strings.TrimSpace(topic), strings.TrimSpace(category))
			results := a.Pool().RunAll(cmd.Context(), reqs)
			return printResults(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "Custom topic; skips the content provider")
	cmd.Flags().StringVar(&category, "category", "", "Background category override")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of videos to produce")

	return cmd
}

func buildRequests(count int, topic, category string) []models.RunRequest {
	now := time.Now().UTC()
	reqs := make([]models.RunRequest, count)
	for i := range reqs {
		reqs[i] = models.RunRequest{
			ID:          uuid.New().String(),
			Category:    category,
			Topic:       topic,
			RequestedAt: now,
		}
	}
	return reqs
}

func printResults(out io.Writer, results []pipeline.Result) error {
	rows := make([][]string, 0, len(results))
	failed := 0
	for _, res := range results {
		rec := res.Record
		status := valueOr(rec.Status, models.RecordStatusFailed)
		if res.Err != nil {
			failed++
		}
		rows = append(rows, []string{
			shortRunID(res.Request.ID),
			status,
			valueOr(rec.Reason, "-"),
			valueOr(rec.AIProvider, "-"),
			valueOr(rec.Background, "-"),
			formatSeconds(rec.Duration),
			valueOr(rec.VideoPath, "-"),
		})
	}

	fmt.Fprintln(out, renderTable(
		[]string{"Run", "Status", "Reason", "AI", "Background", "Duration", "Video"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))

	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(out, "%s: %v\n", shortRunID(res.Request.ID), res.Err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(results))
	}
	return nil
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
