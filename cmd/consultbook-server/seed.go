package main

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"consultbook/backend/internal/service/schedule"
)

func newSeedCmd() *cobra.Command {
	var providerID string

	cmd := &cobra.Command{
		Use:   "seed-availability",
		Short: "Give a consultant with no weekly rules the default weekday hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			providerID = strings.TrimSpace(providerID)
			if providerID == "" {
				return errors.New("--provider is required")
			}
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			be, err := openBackends(cfg, log, nil)
			if err != nil {
				return err
			}
			defer be.close()

			svc := schedule.NewService(be.schedules, be.directory, nil, cfg.Timezone, log)
			rules, err := svc.SeedDefaultAvailability(cmd.Context(), providerID)
			if err != nil {
				log.Error("seed availability failed", slog.Any("err", err), slog.String("provider_id", providerID))
				return err
			}
			log.Info("availability seeded", slog.String("provider_id", providerID), slog.Int("rules", len(rules)))
			return nil
		},
	}
	cmd.Flags().StringVar(&providerID, "provider", "", "consultant user id")
	return cmd
}
