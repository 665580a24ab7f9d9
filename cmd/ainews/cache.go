package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newCacheCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the persisted snapshot",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the persisted snapshot",
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := loadApp(cmd.Context(), *cfgPath, nil)
				if err != nil {
					return err
				}
				defer a.Close()

				entry, ok, err := a.cache.GetPersisted()
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "cache is empty")
					return nil
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "query=%q age=%s articles=%d\n",
					entry.Query, entry.Age(a.clock.Now()).Round(time.Second), len(entry.Data))
				return printJSON(cmd, entry)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete the persisted snapshot",
			RunE: func(cmd *cobra.Command, _ []string) error {
				a, err := loadApp(cmd.Context(), *cfgPath, nil)
				if err != nil {
					return err
				}
				defer a.Close()

				if err := a.cache.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
				return nil
			},
		},
	)
	return cmd
}
