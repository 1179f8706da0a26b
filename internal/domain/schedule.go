package domain

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const minutesPerDay = 24 * 60

// Clock is a wall-clock time of day, stored as minutes since midnight.
// 24:00 is representable so a window may close at the end of the day.
type Clock int16

func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock accepts "HH:MM" (and "HH:MM:SS" with zero seconds).
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	if len(parts) == 3 && parts[2] != "00" {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	c := NewClock(h, m)
	if h < 0 || !c.Valid() {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return c, nil
}

// ClockOf returns the time of day of t in t's own location.
func ClockOf(t time.Time) Clock {
	return NewClock(t.Hour(), t.Minute())
}

func (c Clock) Valid() bool {
	return c >= 0 && c <= minutesPerDay
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) Add(d time.Duration) Clock {
	return c + Clock(d/time.Minute)
}

// On places c on the calendar date of day, in day's location.
func (c Clock) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, int(c)/60, int(c)%60, 0, 0, day.Location())
}

// StartOfDay truncates t to midnight of its calendar date in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// CivilDate normalizes a calendar date to UTC midnight, the form dates are persisted in.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

type WeeklyRule struct {
	bun.BaseModel `bun:"table:weekly_rules"`

	ID         uuid.UUID    `bun:"id,pk,type:uuid"`
	ProviderID string       `bun:"provider_id,notnull"`
	DayOfWeek  time.Weekday `bun:"day_of_week,notnull"`
	StartTime  Clock        `bun:"start_minute,notnull"`
	EndTime    Clock        `bun:"end_minute,notnull"`
	Active     bool         `bun:"active,notnull"`
	CreatedAt  time.Time    `bun:"created_at,notnull"`
	UpdatedAt  time.Time    `bun:"updated_at,notnull"`
}

func (r *WeeklyRule) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if r.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			r.ID = id
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		r.UpdatedAt = now
	}
	return nil
}

func (r WeeklyRule) Validate() error {
	if strings.TrimSpace(r.ProviderID) == "" {
		return Validation("provider_id is required")
	}
	if r.DayOfWeek < time.Sunday || r.DayOfWeek > time.Saturday {
		return Validation("day_of_week must be between 0 (Sunday) and 6 (Saturday)")
	}
	if !r.StartTime.Valid() || !r.EndTime.Valid() {
		return Validation("start_time and end_time must be within the day")
	}
	if r.StartTime >= r.EndTime {
		return Validation("start_time must be before end_time")
	}
	return nil
}

// Contains reports whether [start, end] lies inside an active rule window.
// A window may end exactly at the rule's end.
func (r WeeklyRule) Contains(start, end Clock) bool {
	return r.Active && r.StartTime <= start && end <= r.EndTime
}

type ExceptionKind string

const (
	ExceptionUnavailable ExceptionKind = "unavailable"
	ExceptionCustomHours ExceptionKind = "custom_hours"
	ExceptionBusy        ExceptionKind = "busy"
)

func (k ExceptionKind) Valid() bool {
	switch k {
	case ExceptionUnavailable, ExceptionCustomHours, ExceptionBusy:
		return true
	default:
		return false
	}
}

type Exception struct {
	bun.BaseModel `bun:"table:availability_exceptions"`

	ID         uuid.UUID     `bun:"id,pk,type:uuid"`
	ProviderID string        `bun:"provider_id,notnull"`
	Date       time.Time     `bun:"date,type:date,notnull"`
	Kind       ExceptionKind `bun:"kind,notnull"`
	StartTime  *Clock        `bun:"start_minute"`
	EndTime    *Clock        `bun:"end_minute"`
	Reason     string        `bun:"reason"`
	CreatedAt  time.Time     `bun:"created_at,notnull"`
}

func (e *Exception) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if e.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		e.ID = id
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (e Exception) Validate() error {
	if strings.TrimSpace(e.ProviderID) == "" {
		return Validation("provider_id is required")
	}
	if e.Date.IsZero() {
		return Validation("date is required")
	}
	switch e.Kind {
	case ExceptionUnavailable:
		if e.StartTime != nil || e.EndTime != nil {
			return Validation("unavailable exceptions cover the whole day and take no times")
		}
	case ExceptionCustomHours, ExceptionBusy:
		if e.StartTime == nil || e.EndTime == nil {
			return Validation("start_time and end_time are required for " + string(e.Kind))
		}
		if !e.StartTime.Valid() || !e.EndTime.Valid() {
			return Validation("start_time and end_time must be within the day")
		}
		if *e.StartTime >= *e.EndTime {
			return Validation("start_time must be before end_time")
		}
	default:
		return Validation("kind must be one of unavailable, custom_hours, busy")
	}
	return nil
}

// Blocks reports whether the exception excludes any part of [start, end).
func (e Exception) Blocks(start, end Clock) bool {
	if e.Kind == ExceptionUnavailable {
		return true
	}
	if e.StartTime == nil || e.EndTime == nil {
		return false
	}
	return *e.StartTime < end && start < *e.EndTime
}

// DaySchedule is everything that decides a provider's availability on one date.
type DaySchedule struct {
	// Date is midnight of the calendar date in the provider's location.
	Date       time.Time
	Rules      []WeeklyRule
	Exceptions []Exception
	Bookings   []Booking
}
