package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"consultbook/backend/internal/domain"
)

// BookingFilter narrows ListBookings. Zero values mean "no constraint".
// The window applies to start_at: WindowStart <= start_at < WindowEnd.
type BookingFilter struct {
	ProviderID    string
	RequesterID   string
	ParticipantID string
	Statuses      []domain.BookingStatus
	WindowStart   time.Time
	WindowEnd     time.Time
	OnlyUnrated   bool
	Ascending     bool
	Limit         int
}

type ProviderStats struct {
	ProviderID    string
	Completed     int
	Rated         int
	AverageRating *float64
}

// ProviderTx is the view of one provider's calendar while its lock is held.
// Every read observes writes made earlier in the same transaction.
type ProviderTx interface {
	DaySchedule(ctx context.Context, providerID string, day time.Time) (domain.DaySchedule, error)
	InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
}

type BookingRepository interface {
	// InProviderTransaction runs fn with the provider's calendar locked.
	// Calls for the same provider are serialized; fn's writes commit only
	// if it returns nil.
	InProviderTransaction(ctx context.Context, providerID string, fn func(ctx context.Context, tx ProviderTx) error) error

	// DaySchedule reads rules, exceptions and occupying bookings for the
	// calendar date of day as one consistent snapshot.
	DaySchedule(ctx context.Context, providerID string, day time.Time) (domain.DaySchedule, error)

	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	ListBookings(ctx context.Context, f BookingFilter) ([]domain.Booking, error)
	ProviderStats(ctx context.Context, providerID string) (ProviderStats, error)
	CountByStatus(ctx context.Context) (map[domain.BookingStatus]int, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error)
}

type ScheduleRepository interface {
	CreateRule(ctx context.Context, rule domain.WeeklyRule) (domain.WeeklyRule, error)
	ListRules(ctx context.Context, providerID string) ([]domain.WeeklyRule, error)
	SetRuleActive(ctx context.Context, providerID string, ruleID uuid.UUID, active bool) (domain.WeeklyRule, error)
	CreateException(ctx context.Context, ex domain.Exception) (domain.Exception, error)
	// ListExceptions returns exceptions dated within [from, to], inclusive.
	ListExceptions(ctx context.Context, providerID string, from, to time.Time) ([]domain.Exception, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}
