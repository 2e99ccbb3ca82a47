package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/catalog"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
)

func newProvidersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List registered providers and which ones are selected",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			registry := provider.NewRegistry()
			if err := catalog.Register(registry, cfg, catalog.Deps{}); err != nil {
				return err
			}

			selected := selectedNames(catalog.Selection(cfg))
			var rows [][]string
			for _, category := range provider.Categories {
				for _, name := range registry.Names(category) {
					rows = append(rows, []string{
						string(category),
						name,
						selected[provider.Kind{Category: category, Name: name}],
					})
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Category", "Name", "Selected"}, rows, nil))
			return nil
		},
	}
}

// selectedNames marks selected kinds; AI providers carry their chain position
func selectedNames(sel provider.Selection) map[provider.Kind]string {
	out := map[provider.Kind]string{
		{Category: provider.CategoryContent, Name: sel.Content}:       "yes",
		{Category: provider.CategoryTTS, Name: sel.TTS}:               "yes",
		{Category: provider.CategoryBackground, Name: sel.Background}: "yes",
		{Category: provider.CategoryStore, Name: sel.Store}:           "yes",
	}
	for i, name := range sel.AI {
		out[provider.Kind{Category: provider.CategoryAI, Name: name}] = fmt.Sprintf("#%d", i+1)
	}
	return out
}
