package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"consultbook/backend/internal/auth"
	"consultbook/backend/internal/cache"
	"consultbook/backend/internal/config"
	"consultbook/backend/internal/notify"
	"consultbook/backend/internal/observability/metrics"
	"consultbook/backend/internal/service/availability"
	"consultbook/backend/internal/service/booking"
	"consultbook/backend/internal/service/schedule"
	grpcTransport "consultbook/backend/internal/transport/grpc"
	httpTransport "consultbook/backend/internal/transport/http"
)

func newServeCmd() *cobra.Command {
	var users []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC booking API and the ops HTTP endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log, users)
		},
	}
	cmd.Flags().StringArrayVar(&users, "user", nil, "directory entry id:role for the memory store (repeatable)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger, users []string) error {
	log.Info("starting",
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("store_driver", cfg.StoreDriver),
		slog.String("auth_mode", cfg.AuthMode),
		slog.String("log_level", cfg.LogLevel),
	)

	be, err := openBackends(cfg, log, users)
	if err != nil {
		return err
	}
	defer be.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewBookingMetrics(reg)

	rdb := newRedis(cfg)
	slots := cache.NewSlotCache(rdb, cfg.SlotCacheTTL)

	var pub notify.Publisher = notify.NewLogPublisher(log)
	if rdb != nil {
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn("redis close failed", slog.Any("err", err))
			}
		}()
		client := asynq.NewClient(notify.RedisOpt(workerConfig(cfg)))
		defer func() {
			if err := client.Close(); err != nil {
				log.Warn("asynq client close failed", slog.Any("err", err))
			}
		}()
		pub = notify.NewAsynqPublisher(client, cfg.ReminderLead)
	}
	events := notify.NewDispatcher(pub, cfg.NotifyTimeout, log, m)
	defer events.Wait()

	schedules := schedule.NewService(be.schedules, be.directory, slots, cfg.Timezone, log)
	avail := availability.NewService(be.bookings, be.directory, slots, m, availability.Config{
		Location:        cfg.Timezone,
		DefaultDuration: cfg.DefaultDuration,
	}, log)
	coordinator := booking.NewCoordinator(be.bookings, be.directory, booking.Config{
		Location:           cfg.Timezone,
		LeadTime:           cfg.LeadTime,
		CancellationCutoff: cfg.CancellationCutoff,
		DefaultDuration:    cfg.DefaultDuration,
		MeetingLinkBase:    cfg.MeetingLinkBase,
	},
		booking.WithEvents(events),
		booking.WithCache(slots),
		booking.WithMetrics(m),
		booking.WithLogger(log),
	)

	var verifier *auth.JWTVerifier
	if cfg.AuthMode == config.AuthModeJWT {
		verifier, err = auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			log.Error("jwt verifier setup failed", slog.Any("err", err))
			return err
		}
	}

	hs := health.NewServer()
	grpcServer := grpcTransport.NewServer(grpcTransport.ServerConfig{
		RequestTimeout: cfg.GRPCRequestTimeout,
		AuthMode:       cfg.AuthMode,
		Verifier:       verifier,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, grpcTransport.NewBookingServer(schedules, avail, coordinator, cfg.Timezone, log), hs, log)

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr()))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("grpc server stopped with error", slog.Any("err", err))
			return err
		}
		return nil
	})

	var opsServer *http.Server
	if cfg.HTTPAddr != "" {
		opsServer = &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: httpTransport.NewRouter(httpTransport.Config{
				Logger:         log,
				Ready:          be.pinger.Ping,
				MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			}),
			ReadHeaderTimeout: cfg.GRPCRequestTimeout,
		}
		g.Go(func() error {
			log.Info("ops http server started", slog.String("http_addr", cfg.HTTPAddr))
			if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("ops http server stopped with error", slog.Any("err", err))
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")
		hs.Shutdown()
		if opsServer != nil {
			sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := opsServer.Shutdown(sctx); err != nil {
				log.Warn("ops http shutdown failed", slog.Any("err", err))
			}
		}
		grpcTransport.Shutdown(log, grpcServer, cfg.ShutdownTimeout)
		return nil
	})

	return g.Wait()
}

func workerConfig(cfg config.Config) notify.WorkerConfig {
	return notify.WorkerConfig{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		Concurrency:   cfg.WorkerConcurrency,
	}
}
