package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run only the view event consumer and the token sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			in, err := connect(ctx)
			if err != nil {
				return err
			}
			defer in.close()

			svc, err := buildServices(ctx, in)
			if err != nil {
				return err
			}
			stopBackground, err := startBackground(ctx, svc)
			if err != nil {
				return err
			}
			defer stopBackground()

			log.Info("Worker running")
			<-ctx.Done()
			log.Info("Worker stopping")
			return nil
		},
	}
}
