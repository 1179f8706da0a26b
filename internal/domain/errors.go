package domain

import "errors"

type ErrorKind string

const (
	KindNotFound                  ErrorKind = "not_found"
	KindLeadTimeViolation         ErrorKind = "lead_time_violation"
	KindSlotUnavailable           ErrorKind = "slot_unavailable"
	KindConcurrentBookingConflict ErrorKind = "concurrent_booking_conflict"
	KindUnauthorized              ErrorKind = "unauthorized"
	KindCancellationWindowExpired ErrorKind = "cancellation_window_expired"
	KindInvalidStateTransition    ErrorKind = "invalid_state_transition"
	KindInvalidRating             ErrorKind = "invalid_rating"
	KindValidation                ErrorKind = "validation"
	KindIdempotencyConflict       ErrorKind = "idempotency_conflict"
	KindInfrastructure            ErrorKind = "infrastructure"
)

var messages = map[ErrorKind]string{
	KindNotFound:                  "the requested resource does not exist",
	KindLeadTimeViolation:         "bookings must be made at least the minimum lead time in advance",
	KindSlotUnavailable:           "the provider is not available at the requested time",
	KindConcurrentBookingConflict: "the time slot was just booked by someone else",
	KindUnauthorized:              "you are not allowed to perform this action",
	KindCancellationWindowExpired: "the booking can no longer be cancelled",
	KindInvalidStateTransition:    "the booking is not in a state that allows this action",
	KindInvalidRating:             "rating must be between 1 and 5",
	KindValidation:                "the request is invalid",
	KindIdempotencyConflict:       "the idempotency key was already used for a different request",
	KindInfrastructure:            "the service is temporarily unavailable, please retry",
}

// Error is the failure type returned by every booking operation. Callers
// branch on Kind; Message is safe to show to end users.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return string(e.Kind) + ": " + e.Detail
	}
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message()
}

// Message is the stable user-facing text for the error. Validation errors
// expose their detail since it names the offending field.
func (e *Error) Message() string {
	if e.Kind == KindValidation && e.Detail != "" {
		return e.Detail
	}
	if msg, ok := messages[e.Kind]; ok {
		return msg
	}
	return messages[KindInfrastructure]
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the Err* values below work
// with errors.Is regardless of detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound                  = &Error{Kind: KindNotFound}
	ErrLeadTimeViolation         = &Error{Kind: KindLeadTimeViolation}
	ErrSlotUnavailable           = &Error{Kind: KindSlotUnavailable}
	ErrConcurrentBookingConflict = &Error{Kind: KindConcurrentBookingConflict}
	ErrUnauthorized              = &Error{Kind: KindUnauthorized}
	ErrCancellationWindowExpired = &Error{Kind: KindCancellationWindowExpired}
	ErrInvalidStateTransition    = &Error{Kind: KindInvalidStateTransition}
	ErrInvalidRating             = &Error{Kind: KindInvalidRating}
	ErrValidation                = &Error{Kind: KindValidation}
	ErrIdempotencyConflict       = &Error{Kind: KindIdempotencyConflict}
	ErrInfrastructure            = &Error{Kind: KindInfrastructure}
)

func NewError(kind ErrorKind, detail string) error {
	return &Error{Kind: kind, Detail: detail}
}

func Validation(detail string) error {
	return &Error{Kind: KindValidation, Detail: detail}
}

func NotFound(detail string) error {
	return &Error{Kind: KindNotFound, Detail: detail}
}

// Infrastructure wraps a storage or transport failure. Nil stays nil.
func Infrastructure(err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: KindInfrastructure, Err: err}
}

// KindOf classifies err; anything that is not a domain error is infrastructure.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInfrastructure
}

// MessageOf returns the user-facing message for any error.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message()
	}
	return messages[KindInfrastructure]
}
