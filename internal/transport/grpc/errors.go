package grpc

import (
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"consultbook/backend/internal/domain"
)

var kindCodes = map[domain.ErrorKind]codes.Code{
	domain.KindNotFound:                  codes.NotFound,
	domain.KindLeadTimeViolation:         codes.FailedPrecondition,
	domain.KindSlotUnavailable:           codes.FailedPrecondition,
	domain.KindCancellationWindowExpired: codes.FailedPrecondition,
	domain.KindInvalidStateTransition:    codes.FailedPrecondition,
	domain.KindConcurrentBookingConflict: codes.Aborted,
	domain.KindUnauthorized:              codes.PermissionDenied,
	domain.KindValidation:                codes.InvalidArgument,
	domain.KindInvalidRating:             codes.InvalidArgument,
	domain.KindIdempotencyConflict:       codes.AlreadyExists,
	domain.KindInfrastructure:            codes.Unavailable,
}

func codeFor(kind domain.ErrorKind) codes.Code {
	if c, ok := kindCodes[kind]; ok {
		return c
	}
	return codes.Internal
}

// statusError converts a service error into a gRPC status carrying the
// kind's public message. Storage details only reach the log.
func statusError(log *slog.Logger, err error) error {
	kind := domain.KindOf(err)
	switch kind {
	case domain.KindInfrastructure:
		log.Error("request failed", slog.Any("err", err))
	case domain.KindValidation, domain.KindUnauthorized, domain.KindInvalidRating:
		log.Warn("request rejected", slog.String("kind", string(kind)), slog.Any("err", err))
	default:
		log.Info("request refused", slog.String("kind", string(kind)), slog.Any("err", err))
	}
	return status.Error(codeFor(kind), domain.MessageOf(err))
}

func invalidArgument(log *slog.Logger, reason, msg string) error {
	log.Warn("invalid request", slog.String("reason", reason))
	return status.Error(codes.InvalidArgument, msg)
}
