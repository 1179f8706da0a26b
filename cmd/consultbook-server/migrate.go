package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"consultbook/backend/internal/config"
	"consultbook/backend/internal/store/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back one step of the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(postgres.MigrateUp), string(postgres.MigrateDown)},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			if cfg.StoreDriver != config.StoreDriverPostgres {
				return fmt.Errorf("migrate needs the postgres store driver, got %q", cfg.StoreDriver)
			}

			direction := postgres.MigrateDirection(args[0])
			log.Info("running migrations", append([]any{slog.String("direction", string(direction))}, databaseLogArgs(cfg.DatabaseURL)...)...)
			version, err := postgres.Migrate(cfg.DatabaseURL, direction)
			if err != nil {
				log.Error("migration failed", slog.Any("err", err))
				return err
			}
			log.Info("migrations applied", slog.Uint64("version", uint64(version)))
			return nil
		},
	}
}
