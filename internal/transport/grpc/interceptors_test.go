package grpc

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"consultbook/backend/internal/auth"
	"consultbook/backend/internal/domain"
)

var bookingInfo = &grpc.UnaryServerInfo{FullMethod: "/consultbook.booking.v1.BookingService/GetBooking"}

func captureIdentity(got *auth.Identity) grpc.UnaryHandler {
	return func(ctx context.Context, req any) (any, error) {
		*got, _ = auth.FromContext(ctx)
		return "ok", nil
	}
}

func TestTimeoutInterceptor_SetsDeadlineWhenMissing(t *testing.T) {
	var hasDeadline bool
	_, err := TimeoutInterceptor(time.Second)(context.Background(), nil, bookingInfo, func(ctx context.Context, req any) (any, error) {
		_, hasDeadline = ctx.Deadline()
		return nil, nil
	})
	if err != nil || !hasDeadline {
		t.Fatalf("deadline set = %v, err = %v", hasDeadline, err)
	}
}

func TestTimeoutInterceptor_KeepsCallerDeadline(t *testing.T) {
	want := time.Now().Add(time.Hour)
	ctx, cancel := context.WithDeadline(context.Background(), want)
	defer cancel()

	var got time.Time
	_, _ = TimeoutInterceptor(time.Second)(ctx, nil, bookingInfo, func(ctx context.Context, req any) (any, error) {
		got, _ = ctx.Deadline()
		return nil, nil
	})
	if !got.Equal(want) {
		t.Fatalf("deadline = %v, want %v", got, want)
	}
}

func TestAuthInterceptor_HeaderMode(t *testing.T) {
	interceptor := AuthInterceptor(AuthModeHeader, nil, discardLogger())

	var got auth.Identity
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-user-id", "p1", "x-user-role", "consultant"))
	if _, err := interceptor(ctx, nil, bookingInfo, captureIdentity(&got)); err != nil {
		t.Fatalf("interceptor error: %v", err)
	}
	if got.UserID != "p1" || got.Role != domain.RoleConsultant {
		t.Fatalf("identity = %+v", got)
	}

	_, err := interceptor(context.Background(), nil, bookingInfo, captureIdentity(&got))
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.Unauthenticated)
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-user-id", "p1", "x-user-role", "root"))
	if _, err := interceptor(ctx, nil, bookingInfo, captureIdentity(&got)); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("unknown role code = %s, want %s", status.Code(err), codes.Unauthenticated)
	}
}

func TestAuthInterceptor_JWTMode(t *testing.T) {
	verifier, err := auth.NewJWTVerifier("test-secret", "consultbook")
	if err != nil {
		t.Fatalf("NewJWTVerifier error: %v", err)
	}
	token, err := verifier.Sign(auth.Identity{UserID: "a1", Role: domain.RoleAdmin}, time.Minute)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	interceptor := AuthInterceptor(AuthModeJWT, verifier, discardLogger())

	var got auth.Identity
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
	if _, err := interceptor(ctx, nil, bookingInfo, captureIdentity(&got)); err != nil {
		t.Fatalf("interceptor error: %v", err)
	}
	if !got.IsAdmin() || got.UserID != "a1" {
		t.Fatalf("identity = %+v", got)
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-user-id", "a1", "x-user-role", "admin"))
	if _, err := interceptor(ctx, nil, bookingInfo, captureIdentity(&got)); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("header identity in jwt mode code = %s, want %s", status.Code(err), codes.Unauthenticated)
	}
}

func TestAuthInterceptor_SkipsHealthChecks(t *testing.T) {
	interceptor := AuthInterceptor(AuthModeJWT, nil, discardLogger())
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	if _, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) { return nil, nil }); err != nil {
		t.Fatalf("health check rejected: %v", err)
	}
}

func TestRateLimiter_PerCaller(t *testing.T) {
	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 2)
	l.now = func() time.Time { return now }

	if !l.Allow("r1") || !l.Allow("r1") {
		t.Fatalf("burst of 2 not allowed")
	}
	if l.Allow("r1") {
		t.Fatalf("third request within the same instant allowed")
	}
	if !l.Allow("r2") {
		t.Fatalf("other caller throttled by r1's bucket")
	}

	now = now.Add(time.Second)
	if !l.Allow("r1") {
		t.Fatalf("bucket did not refill after one second")
	}
}

func TestRateLimiter_InterceptorReturnsResourceExhausted(t *testing.T) {
	l := NewRateLimiter(1, 1)
	interceptor := l.Interceptor()
	ctx := auth.WithIdentity(context.Background(), caller)
	handler := func(ctx context.Context, req any) (any, error) { return nil, nil }

	if _, err := interceptor(ctx, nil, bookingInfo, handler); err != nil {
		t.Fatalf("first request error: %v", err)
	}
	if _, err := interceptor(ctx, nil, bookingInfo, handler); status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.ResourceExhausted)
	}
}

func TestRateLimiter_DisabledWhenRateIsZero(t *testing.T) {
	l := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !l.Allow("r1") {
			t.Fatalf("request %d throttled with limiting disabled", i)
		}
	}
}
