package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sifan077/DocLink/config"
	"github.com/sifan077/DocLink/internal/infra/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg *config.Config
	log *zap.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "doclink",
		Short:         "DocLink document sharing backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded

			l, err := logger.Init(cfg.Log, !cfg.App.IsProduction())
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			log = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	root.AddCommand(newServeCmd(), newWorkerCmd(), newMigrateCmd())
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "doclink: %v\n", err)
		os.Exit(1)
	}
}
