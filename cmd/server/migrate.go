package main

import (
	"fmt"

	"github.com/sifan077/DocLink/internal/app/model"
	infraPostgres "github.com/sifan077/DocLink/internal/infra/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := infraPostgres.NewGorm(cfg.Postgres, log)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("access sql db: %w", err)
			}
			defer sqlDB.Close()

			if err := infraPostgres.AutoMigrate(cmd.Context(), db, model.AllModels()...); err != nil {
				return err
			}
			log.Info("Database migrations applied")
			return nil
		},
	}
}
