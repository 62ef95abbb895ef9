package main

import (
	"context"
	"os/signal"
	"syscall"

	appserver "github.com/sifan077/DocLink/internal/app/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API together with the background workers",
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

			server := appserver.New(appserver.Dependencies{
				Logger:         log,
				Views:          svc.views,
				Links:          svc.links,
				Documents:      svc.documents,
				Datarooms:      svc.datarooms,
				Reactions:      svc.reactions,
				Notifier:       svc.notifier,
				Limiter:        in.limiter(apiLimit, "doclink:api"),
				HealthChecks:   in.healthChecks(),
				SessionSecret:  []byte(cfg.Auth.SessionSecret),
				InternalAPIKey: cfg.App.InternalAPIKey,
				TrustProxy:     cfg.App.TrustProxy,
				AllowedOrigins: cfg.App.AllowedOrigins,
			})

			errCh := make(chan error, 1)
			go func() {
				log.Info("HTTP server listening", zap.String("addr", cfg.App.Addr))
				errCh <- server.Listen(cfg.App.Addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}
