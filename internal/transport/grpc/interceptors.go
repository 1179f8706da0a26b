package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"consultbook/backend/internal/auth"
)

const healthServicePrefix = "/grpc.health.v1.Health/"

const (
	AuthModeHeader = "header"
	AuthModeJWT    = "jwt"
)

// TimeoutInterceptor applies timeout to requests that arrive without a deadline.
func TimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

// AuthInterceptor establishes the caller identity. In header mode a trusted
// gateway supplies x-user-id and x-user-role; in jwt mode the caller sends
// "authorization: Bearer <token>". Health checks are not authenticated.
func AuthInterceptor(mode string, verifier *auth.JWTVerifier, log *slog.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "grpc.auth"))

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, healthServicePrefix) {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		var (
			id  auth.Identity
			err error
		)
		switch mode {
		case AuthModeJWT:
			id, err = bearerIdentity(md, verifier)
		default:
			id, err = auth.FromHeaders(first(md, "x-user-id"), first(md, "x-user-role"))
		}
		if err != nil {
			log.Info("unauthenticated request", slog.String("method", info.FullMethod))
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		return handler(auth.WithIdentity(ctx, id), req)
	}
}

func bearerIdentity(md metadata.MD, verifier *auth.JWTVerifier) (auth.Identity, error) {
	if verifier == nil {
		return auth.Identity{}, errors.New("jwt verifier not configured")
	}
	header := first(md, "authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		token, ok = strings.CutPrefix(header, "bearer ")
	}
	if !ok || strings.TrimSpace(token) == "" {
		return auth.Identity{}, auth.ErrUnauthenticated
	}
	return verifier.Verify(strings.TrimSpace(token))
}

func first(md metadata.MD, key string) string {
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

// RateLimiter keeps one token bucket per caller. It must run after
// AuthInterceptor so the caller is known.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*callerLimiter
	maxIdle  time.Duration
	now      func() time.Time
}

type callerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const sweepThreshold = 10000

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*callerLimiter),
		maxIdle:  10 * time.Minute,
		now:      time.Now,
	}
}

func (l *RateLimiter) Allow(key string) bool {
	if l.rps <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cl, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= sweepThreshold {
			l.sweep(now)
		}
		cl = &callerLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

func (l *RateLimiter) sweep(now time.Time) {
	for key, cl := range l.limiters {
		if now.Sub(cl.lastSeen) > l.maxIdle {
			delete(l.limiters, key)
		}
	}
}

func (l *RateLimiter) Interceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, healthServicePrefix) {
			return handler(ctx, req)
		}
		key := "anonymous"
		if id, ok := auth.FromContext(ctx); ok {
			key = id.UserID
		}
		if !l.Allow(key) {
			return nil, status.Error(codes.ResourceExhausted, "too many requests, slow down")
		}
		return handler(ctx, req)
	}
}
