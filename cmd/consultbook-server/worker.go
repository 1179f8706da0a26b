package main

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"consultbook/backend/internal/notify"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Deliver booking notifications and reminders from the Redis queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			if cfg.RedisAddr == "" {
				return errors.New("worker requires redis.addr (CONSULTBOOK_REDIS_ADDR)")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			be, err := openBackends(cfg, log, nil)
			if err != nil {
				return err
			}
			defer be.close()

			w := notify.NewWorker(notify.NewLogSink(log), be.reminders, log)
			if err := notify.RunWorker(ctx, workerConfig(cfg), w); err != nil {
				log.Error("notification worker failed", slog.Any("err", err))
				return err
			}
			return nil
		},
	}
}
