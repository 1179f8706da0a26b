package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"consultbook/backend/internal/config"
	"consultbook/backend/internal/directory"
	"consultbook/backend/internal/domain"
	"consultbook/backend/internal/store"
	"consultbook/backend/internal/store/memory"
	"consultbook/backend/internal/store/postgres"
)

type reminderStore interface {
	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error)
}

type backends struct {
	bookings  store.BookingRepository
	schedules store.ScheduleRepository
	pinger    store.Pinger
	directory directory.Directory
	reminders reminderStore
	close     func()
}

// openBackends builds the repositories for the configured store driver.
// The memory driver has no user read model, so its directory is seeded from
// id:role pairs.
func openBackends(cfg config.Config, log *slog.Logger, users []string) (*backends, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		dir, err := staticDirectory(users)
		if err != nil {
			return nil, err
		}
		st := memory.New()
		log.Warn("using in-memory store; bookings are lost on restart", slog.Int("directory_users", len(users)))
		return &backends{
			bookings:  st,
			schedules: st,
			pinger:    st,
			directory: dir,
			reminders: st,
			close:     func() {},
		}, nil
	}

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		return nil, err
	}

	repo := postgres.NewBookingRepo(db)
	return &backends{
		bookings:  repo,
		schedules: postgres.NewScheduleRepo(db),
		pinger:    repo,
		directory: directory.NewPostgres(db),
		reminders: repo,
		close: func() {
			if err := postgres.Close(db); err != nil {
				log.Warn("database close failed", slog.Any("err", err))
			}
		},
	}, nil
}

func staticDirectory(pairs []string) (*directory.Static, error) {
	dir := directory.NewStatic()
	for _, p := range pairs {
		id, role, ok := strings.Cut(p, ":")
		id = strings.TrimSpace(id)
		r := domain.Role(strings.TrimSpace(role))
		if !ok || id == "" || !r.Valid() {
			return nil, fmt.Errorf("invalid user %q: want id:role with role member, consultant or admin", p)
		}
		dir.Put(directory.User{ID: id, Role: r, DisplayName: id})
	}
	return dir, nil
}

// newRedis returns nil when no Redis address is configured.
func newRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}
