// Package availability answers availability questions for one provider by
// reading a consistent day snapshot and handing it to the pure resolver.
package availability

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"consultbook/backend/internal/availability"
	"consultbook/backend/internal/directory"
	"consultbook/backend/internal/domain"
	"consultbook/backend/internal/observability/metrics"
)

const maxWindow = 24 * time.Hour

type dayReader interface {
	DaySchedule(ctx context.Context, providerID string, day time.Time) (domain.DaySchedule, error)
}

type slotCache interface {
	Get(ctx context.Context, providerID string, day time.Time, slotLength time.Duration) ([]time.Time, bool, error)
	Put(ctx context.Context, providerID string, day time.Time, slotLength time.Duration, slots []time.Time) error
}

type Config struct {
	Location        *time.Location
	DefaultDuration time.Duration
}

type Service struct {
	repo    dayReader
	dir     directory.Directory
	cache   slotCache
	metrics *metrics.BookingMetrics
	cfg     Config
	log     *slog.Logger
}

func NewService(repo dayReader, dir directory.Directory, cache slotCache, m *metrics.BookingMetrics, cfg Config, log *slog.Logger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 60 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:    repo,
		dir:     dir,
		cache:   cache,
		metrics: m,
		cfg:     cfg,
		log:     log.With(slog.String("component", "service.availability")),
	}
}

// IsAvailable reports whether the provider can take a booking of length d
// starting at the given instant. A zero d means the default booking length.
func (s *Service) IsAvailable(ctx context.Context, providerID string, at time.Time, d time.Duration) (bool, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return false, domain.Validation("provider_id is required")
	}
	if at.IsZero() {
		return false, domain.Validation("start_at is required")
	}
	if d == 0 {
		d = s.cfg.DefaultDuration
	}
	if err := validateLength("duration", d); err != nil {
		return false, err
	}
	if err := s.requireProvider(ctx, providerID); err != nil {
		return false, err
	}

	day, err := s.repo.DaySchedule(ctx, providerID, domain.StartOfDay(at, s.cfg.Location))
	if err != nil {
		return false, domain.Infrastructure(err)
	}
	return availability.IsAvailable(day, at, d), nil
}

// FreeSlots lists the free slot starts on the calendar date of date, read in
// the service location. A zero slotLength means the default booking length.
func (s *Service) FreeSlots(ctx context.Context, providerID string, date time.Time, slotLength time.Duration) ([]time.Time, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return nil, domain.Validation("provider_id is required")
	}
	if date.IsZero() {
		return nil, domain.Validation("date is required")
	}
	if slotLength == 0 {
		slotLength = s.cfg.DefaultDuration
	}
	if err := validateLength("slot_length", slotLength); err != nil {
		return nil, err
	}
	if err := s.requireProvider(ctx, providerID); err != nil {
		return nil, err
	}

	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, s.cfg.Location)

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, providerID, day, slotLength)
		if err != nil {
			s.log.Warn("slot cache read failed", slog.String("provider_id", providerID), slog.Any("err", err))
		} else if ok {
			s.metrics.ObserveSlotQuery(true)
			return s.inLocation(cached), nil
		}
	}
	s.metrics.ObserveSlotQuery(false)

	snapshot, err := s.repo.DaySchedule(ctx, providerID, day)
	if err != nil {
		return nil, domain.Infrastructure(err)
	}
	slots := availability.FreeSlots(snapshot, slotLength)

	if s.cache != nil {
		if err := s.cache.Put(ctx, providerID, day, slotLength, slots); err != nil {
			s.log.Warn("slot cache write failed", slog.String("provider_id", providerID), slog.Any("err", err))
		}
	}
	return slots, nil
}

func (s *Service) inLocation(slots []time.Time) []time.Time {
	out := make([]time.Time, len(slots))
	for i, t := range slots {
		out[i] = t.In(s.cfg.Location)
	}
	return out
}

func (s *Service) requireProvider(ctx context.Context, providerID string) error {
	u, err := s.dir.Lookup(ctx, providerID)
	if err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return domain.NotFound("provider not found")
		}
		return domain.Infrastructure(err)
	}
	if u.Role != domain.RoleConsultant {
		return domain.NotFound("provider not found")
	}
	return nil
}

func validateLength(field string, d time.Duration) error {
	switch {
	case d < time.Minute:
		return domain.Validation(field + " must be at least one minute")
	case d%time.Minute != 0:
		return domain.Validation(field + " must be a whole number of minutes")
	case d > maxWindow:
		return domain.Validation(field + " too long")
	}
	return nil
}
