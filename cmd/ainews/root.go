package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "ainews",
		Short:         "AI news aggregator",
		Long:          "ainews searches the Guardian, New York Times and GNews for AI stories, merges them and keeps a cached snapshot.",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (YAML)")

	root.AddCommand(
		newServeCmd(&cfgPath),
		newSearchCmd(&cfgPath),
		newCacheCmd(&cfgPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "ainews %s (commit: %s)\n", version, commit)
			},
		},
	)
	return root
}
