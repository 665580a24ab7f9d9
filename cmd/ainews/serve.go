package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/ainews/internal/controller"
	"github.com/Adda-Baaj/ainews/internal/server"
)

func newServeCmd(cfgPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the query controller behind the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx, *cfgPath, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			a.cache.StartSweeper(ctx)

			ctrl := controller.New(a.agg, a.cache, a.cfg.ControllerOptions(), a.clock, a.log)
			ctrl.Start(ctx)

			err = server.New(ctrl, server.Options{Addr: addr}, a.log).Run(ctx)
			stop()
			ctrl.Wait()
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
