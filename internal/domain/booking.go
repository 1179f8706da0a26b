package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	StatusScheduled BookingStatus = "scheduled"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
	StatusNoShow    BookingStatus = "no_show"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	default:
		return false
	}
}

// Occupies reports whether a booking in this status holds its time window.
func (s BookingStatus) Occupies() bool {
	return s.Valid() && s != StatusCancelled
}

// CanTransitionTo encodes the booking lifecycle: only a scheduled booking
// moves, and it moves exactly once.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	if s != StatusScheduled {
		return false
	}
	switch next {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	default:
		return false
	}
}

const (
	MinRating = 1
	MaxRating = 5
)

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID              uuid.UUID     `bun:"id,pk,type:uuid"`
	ProviderID      string        `bun:"provider_id,notnull"`
	RequesterID     string        `bun:"requester_id,notnull"`
	StartAt         time.Time     `bun:"start_at,notnull"`
	EndAt           time.Time     `bun:"end_at,notnull"`
	DurationMinutes int           `bun:"duration_minutes,notnull"`
	Status          BookingStatus `bun:"status,notnull"`
	Notes           string        `bun:"notes"`
	MeetingLink     string        `bun:"meeting_link"`
	Rating          *int          `bun:"rating"`
	Feedback        *string       `bun:"feedback"`
	ReminderSent    bool          `bun:"reminder_sent,notnull"`
	CompletedAt     *time.Time    `bun:"completed_at"`
	CancelledAt     *time.Time    `bun:"cancelled_at"`
	CreatedAt       time.Time     `bun:"created_at,notnull"`
	UpdatedAt       time.Time     `bun:"updated_at,notnull"`
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
		b.EndAt = b.End()
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}

func (b Booking) Duration() time.Duration {
	return time.Duration(b.DurationMinutes) * time.Minute
}

func (b Booking) End() time.Time {
	return b.StartAt.Add(b.Duration())
}

// Overlaps is the half-open interval test against [start, end).
func (b Booking) Overlaps(start, end time.Time) bool {
	return b.StartAt.Before(end) && start.Before(b.End())
}

func (b Booking) IsParticipant(userID string) bool {
	return userID != "" && (userID == b.ProviderID || userID == b.RequesterID)
}

type EventType string

const (
	EventBookingCreated   EventType = "booking.created"
	EventBookingCancelled EventType = "booking.cancelled"
	EventBookingCompleted EventType = "booking.completed"
	EventBookingNoShow    EventType = "booking.no_show"
)

type BookingEvent struct {
	Type        EventType     `json:"type"`
	BookingID   uuid.UUID     `json:"booking_id"`
	ProviderID  string        `json:"provider_id"`
	RequesterID string        `json:"requester_id"`
	StartAt     time.Time     `json:"start_at"`
	Status      BookingStatus `json:"status"`
	OccurredAt  time.Time     `json:"occurred_at"`
}

func NewBookingEvent(t EventType, b Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:        t,
		BookingID:   b.ID,
		ProviderID:  b.ProviderID,
		RequesterID: b.RequesterID,
		StartAt:     b.StartAt,
		Status:      b.Status,
		OccurredAt:  at,
	}
}
