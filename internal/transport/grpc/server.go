package grpc

import (
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	bookingv1 "consultbook/backend/internal/api/bookingv1"
	"consultbook/backend/internal/auth"
)

type ServerConfig struct {
	RequestTimeout time.Duration
	AuthMode       string
	Verifier       *auth.JWTVerifier
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewServer builds the gRPC server: request timeout, then authentication,
// then per-caller rate limiting, in front of the booking and health services.
func NewServer(cfg ServerConfig, booking bookingv1.BookingServiceServer, hs *health.Server, log *slog.Logger) *grpc.Server {
	s := grpc.NewServer(
		grpc.ForceServerCodec(bookingv1.Codec{}),
		grpc.ChainUnaryInterceptor(
			TimeoutInterceptor(cfg.RequestTimeout),
			AuthInterceptor(cfg.AuthMode, cfg.Verifier, log),
			NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Interceptor(),
		),
	)
	bookingv1.RegisterBookingServiceServer(s, booking)
	if hs != nil {
		healthpb.RegisterHealthServer(s, hs)
		hs.SetServingStatus(bookingv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	}
	return s
}

// Shutdown stops s gracefully, forcing it once timeout passes.
func Shutdown(log *slog.Logger, s *grpc.Server, timeout time.Duration) {
	log.Info("shutting down grpc server", slog.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}
