package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/ainews/internal/config"
)

func newSearchCmd(cfgPath *string) *cobra.Command {
	var (
		noFilter bool
		only     []string
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run one aggregation and print the articles as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *cfgPath, func(c *config.Config) {
				if noFilter {
					c.Aggregator.RelevanceFilter = false
				}
				if len(only) > 0 {
					c.Aggregator.Providers = only
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			articles, err := a.agg.Aggregate(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd, articles)
		},
	}
	cmd.Flags().BoolVar(&noFilter, "no-filter", false, "disable the AI keyword relevance filter")
	cmd.Flags().StringSliceVar(&only, "provider", nil, "query only these providers (guardian, nyt, gnews)")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
