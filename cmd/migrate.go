package cmd

import (
	"nexus/internal/config"
	"nexus/internal/infra/postgres"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres migrations for the task ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			setupLogging(cfg.Log)

			if err := postgres.Migrate(cfg.Postgres.URL()); err != nil {
				return err
			}
			log.Info().Str("host", cfg.Postgres.Host).Str("db", cfg.Postgres.Name).Msg("migrations applied")
			return nil
		},
	}
}
