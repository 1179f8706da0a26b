// Package booking is the booking coordinator. Every state change runs inside
// the provider's calendar transaction, so overlapping requests for the same
// provider cannot both be admitted.
package booking

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"consultbook/backend/internal/auth"
	"consultbook/backend/internal/availability"
	"consultbook/backend/internal/directory"
	"consultbook/backend/internal/domain"
	"consultbook/backend/internal/observability/metrics"
	"consultbook/backend/internal/store"
)

const (
	maxDurationMinutes = 24 * 60
	maxNotesLength     = 2000
	maxKeyLength       = 256
	defaultListLimit   = 100
	maxListLimit       = 500
)

// Dispatcher receives booking lifecycle events. Dispatch must not block.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev domain.BookingEvent)
}

type dayInvalidator interface {
	InvalidateDay(ctx context.Context, providerID string, day time.Time) error
}

type Config struct {
	Location           *time.Location
	LeadTime           time.Duration
	CancellationCutoff time.Duration
	DefaultDuration    time.Duration
	MeetingLinkBase    string
}

type Option func(*Coordinator)

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithEvents(d Dispatcher) Option {
	return func(c *Coordinator) { c.events = d }
}

func WithCache(cache dayInvalidator) Option {
	return func(c *Coordinator) { c.cache = cache }
}

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

type Coordinator struct {
	repo    store.BookingRepository
	dir     directory.Directory
	cfg     Config
	now     func() time.Time
	events  Dispatcher
	cache   dayInvalidator
	metrics *metrics.BookingMetrics
	log     *slog.Logger
	tracer  trace.Tracer
}

func NewCoordinator(repo store.BookingRepository, dir directory.Directory, cfg Config, opts ...Option) *Coordinator {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LeadTime <= 0 {
		cfg.LeadTime = time.Hour
	}
	if cfg.CancellationCutoff <= 0 {
		cfg.CancellationCutoff = 24 * time.Hour
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 60 * time.Minute
	}
	c := &Coordinator{
		repo:   repo,
		dir:    dir,
		cfg:    cfg,
		now:    time.Now,
		log:    slog.Default(),
		tracer: otel.Tracer("consultbook.internal.service.booking"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(slog.String("component", "service.booking"))
	return c
}

type CreateInput struct {
	Actor       auth.Identity
	ProviderID  string
	RequesterID string
	StartAt     time.Time
	// DurationMinutes of zero means the configured default.
	DurationMinutes int
	Notes           string
	IdempotencyKey  string
}

func (c *Coordinator) CreateBooking(ctx context.Context, in CreateInput) (out domain.Booking, err error) {
	ctx, span := c.start(ctx, "CreateBooking",
		attribute.String("provider_id", in.ProviderID),
		attribute.String("requester_id", in.RequesterID),
	)
	started := time.Now()
	defer func() { c.finish(span, "create", started, err) }()

	providerID := strings.TrimSpace(in.ProviderID)
	requesterID := strings.TrimSpace(in.RequesterID)
	notes := strings.TrimSpace(in.Notes)
	key := strings.TrimSpace(in.IdempotencyKey)
	duration := in.DurationMinutes
	if duration == 0 {
		duration = int(c.cfg.DefaultDuration / time.Minute)
	}

	switch {
	case providerID == "":
		return domain.Booking{}, domain.Validation("provider_id is required")
	case requesterID == "":
		return domain.Booking{}, domain.Validation("requester_id is required")
	case providerID == requesterID:
		return domain.Booking{}, domain.Validation("a provider cannot book themself")
	case in.StartAt.IsZero():
		return domain.Booking{}, domain.Validation("start_at is required")
	case duration <= 0:
		return domain.Booking{}, domain.Validation("duration_minutes must be positive")
	case duration > maxDurationMinutes:
		return domain.Booking{}, domain.Validation("duration too long")
	case len(notes) > maxNotesLength:
		return domain.Booking{}, domain.Validation("notes too long")
	case len(key) > maxKeyLength:
		return domain.Booking{}, domain.Validation("idempotency_key too long")
	}
	if !in.Actor.IsAdmin() && in.Actor.UserID != requesterID {
		return domain.Booking{}, domain.NewError(domain.KindUnauthorized, "bookings can only be made for yourself")
	}
	if err := c.requireProvider(ctx, providerID); err != nil {
		return domain.Booking{}, err
	}
	if err := c.requireUser(ctx, requesterID, "requester not found"); err != nil {
		return domain.Booking{}, err
	}

	now := c.now()
	start := in.StartAt.UTC()
	b := domain.Booking{
		ProviderID:      providerID,
		RequesterID:     requesterID,
		StartAt:         start,
		DurationMinutes: duration,
		Status:          domain.StatusScheduled,
		Notes:           notes,
		MeetingLink:     c.cfg.MeetingLinkBase + strconv.FormatInt(now.UnixMilli(), 10),
	}
	if key != "" {
		b.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("consultbook:create_booking:"+requesterID+":"+key))
		existing, err := c.repo.GetBooking(ctx, b.ID)
		switch {
		case err == nil:
			return replay(existing, b)
		case !errors.Is(err, store.ErrNotFound):
			return domain.Booking{}, domain.Infrastructure(err)
		}
	}

	if start.Before(now.Add(c.cfg.LeadTime)) {
		return domain.Booking{}, domain.NewError(domain.KindLeadTimeViolation,
			"start_at must be at least "+c.cfg.LeadTime.String()+" from now")
	}

	day := domain.StartOfDay(start, c.cfg.Location)
	snapshot, err := c.repo.DaySchedule(ctx, providerID, day)
	if err != nil {
		return domain.Booking{}, domain.Infrastructure(err)
	}
	if !availability.IsAvailable(snapshot, start, b.Duration()) {
		return domain.Booking{}, domain.NewError(domain.KindSlotUnavailable, "")
	}

	replayed := false
	err = c.repo.InProviderTransaction(ctx, providerID, func(ctx context.Context, tx store.ProviderTx) error {
		if key != "" {
			existing, err := tx.GetBooking(ctx, b.ID)
			if err == nil {
				out, err = replay(existing, b)
				replayed = true
				return err
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		current, err := tx.DaySchedule(ctx, providerID, day)
		if err != nil {
			return err
		}
		if !availability.IsAvailable(current, start, b.Duration()) {
			return store.ErrConflict
		}
		out, err = tx.InsertBooking(ctx, b)
		return err
	})
	if err != nil {
		return domain.Booking{}, c.storeErr(err)
	}
	if replayed {
		return out, nil
	}

	c.invalidate(ctx, out)
	c.emit(ctx, domain.EventBookingCreated, out)
	c.log.Info("booking created",
		slog.String("booking_id", out.ID.String()),
		slog.String("provider_id", out.ProviderID),
		slog.String("requester_id", out.RequesterID),
		slog.Time("start_at", out.StartAt),
		slog.Int("duration_minutes", out.DurationMinutes),
	)
	return out, nil
}

// replay answers a repeated create: the stored booking when the request is
// the same, an idempotency conflict otherwise.
func replay(existing, requested domain.Booking) (domain.Booking, error) {
	if existing.ProviderID != requested.ProviderID ||
		existing.RequesterID != requested.RequesterID ||
		!existing.StartAt.Equal(requested.StartAt) ||
		existing.DurationMinutes != requested.DurationMinutes ||
		existing.Notes != requested.Notes {
		return domain.Booking{}, domain.NewError(domain.KindIdempotencyConflict, "")
	}
	return existing, nil
}

type CancelInput struct {
	BookingID uuid.UUID
	Actor     auth.Identity
	Reason    string
}

// CancelBooking is open to the two participants only, and only while the
// booking starts more than the cancellation cutoff from now.
func (c *Coordinator) CancelBooking(ctx context.Context, in CancelInput) (out domain.Booking, err error) {
	ctx, span := c.start(ctx, "CancelBooking", attribute.String("booking_id", in.BookingID.String()))
	started := time.Now()
	defer func() { c.finish(span, "cancel", started, err) }()

	reason := strings.TrimSpace(in.Reason)
	if len(reason) > maxNotesLength {
		return domain.Booking{}, domain.Validation("reason too long")
	}

	out, err = c.transition(ctx, in.BookingID, func(b *domain.Booking, now time.Time) error {
		if !b.IsParticipant(in.Actor.UserID) {
			return domain.NewError(domain.KindUnauthorized, "only the provider or the requester may cancel")
		}
		if !b.Status.CanTransitionTo(domain.StatusCancelled) {
			return domain.NewError(domain.KindInvalidStateTransition, "booking is "+string(b.Status))
		}
		if b.StartAt.Sub(now) <= c.cfg.CancellationCutoff {
			return domain.NewError(domain.KindCancellationWindowExpired, "")
		}

		if reason == "" {
			reason = "not provided"
		}
		entry := "Cancellation reason: " + reason
		if b.Notes != "" {
			b.Notes += "\n" + entry
		} else {
			b.Notes = entry
		}
		b.Status = domain.StatusCancelled
		b.CancelledAt = &now
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	c.invalidate(ctx, out)
	c.emit(ctx, domain.EventBookingCancelled, out)
	c.log.Info("booking cancelled",
		slog.String("booking_id", out.ID.String()),
		slog.String("actor_id", in.Actor.UserID),
	)
	return out, nil
}

type CompleteInput struct {
	BookingID uuid.UUID
	// Actor is optional; the zero value is the system itself.
	Actor    auth.Identity
	Rating   *int
	Feedback *string
}

func (c *Coordinator) CompleteBooking(ctx context.Context, in CompleteInput) (out domain.Booking, err error) {
	ctx, span := c.start(ctx, "CompleteBooking", attribute.String("booking_id", in.BookingID.String()))
	started := time.Now()
	defer func() { c.finish(span, "complete", started, err) }()

	if in.Rating != nil && (*in.Rating < domain.MinRating || *in.Rating > domain.MaxRating) {
		return domain.Booking{}, domain.NewError(domain.KindInvalidRating, "")
	}
	var feedback *string
	if in.Feedback != nil {
		fb := strings.TrimSpace(*in.Feedback)
		if len(fb) > maxNotesLength {
			return domain.Booking{}, domain.Validation("feedback too long")
		}
		if fb != "" {
			feedback = &fb
		}
	}

	out, err = c.transition(ctx, in.BookingID, func(b *domain.Booking, now time.Time) error {
		if in.Actor.UserID != "" && !in.Actor.IsAdmin() && !b.IsParticipant(in.Actor.UserID) {
			return domain.NewError(domain.KindUnauthorized, "only a participant may complete the booking")
		}
		if !b.Status.CanTransitionTo(domain.StatusCompleted) {
			return domain.NewError(domain.KindInvalidStateTransition, "booking is "+string(b.Status))
		}
		b.Status = domain.StatusCompleted
		b.CompletedAt = &now
		if in.Rating != nil {
			r := *in.Rating
			b.Rating = &r
		}
		b.Feedback = feedback
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	c.emit(ctx, domain.EventBookingCompleted, out)
	c.log.Info("booking completed", slog.String("booking_id", out.ID.String()))
	return out, nil
}

// MarkNoShow records that the requester did not attend. Only the provider or
// an admin may do so, and not before the booking has started.
func (c *Coordinator) MarkNoShow(ctx context.Context, bookingID uuid.UUID, actor auth.Identity) (out domain.Booking, err error) {
	ctx, span := c.start(ctx, "MarkNoShow", attribute.String("booking_id", bookingID.String()))
	started := time.Now()
	defer func() { c.finish(span, "no_show", started, err) }()

	out, err = c.transition(ctx, bookingID, func(b *domain.Booking, now time.Time) error {
		if !actor.IsAdmin() && actor.UserID != b.ProviderID {
			return domain.NewError(domain.KindUnauthorized, "only the provider may mark a no-show")
		}
		if !b.Status.CanTransitionTo(domain.StatusNoShow) {
			return domain.NewError(domain.KindInvalidStateTransition, "booking is "+string(b.Status))
		}
		if now.Before(b.StartAt) {
			return domain.NewError(domain.KindInvalidStateTransition, "booking has not started yet")
		}
		b.Status = domain.StatusNoShow
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	c.emit(ctx, domain.EventBookingNoShow, out)
	c.log.Info("booking marked no-show", slog.String("booking_id", out.ID.String()))
	return out, nil
}

// transition loads the booking under its provider's lock, lets mutate apply
// the policy checks and the change, and persists the result.
func (c *Coordinator) transition(ctx context.Context, id uuid.UUID, mutate func(b *domain.Booking, now time.Time) error) (domain.Booking, error) {
	if id == uuid.Nil {
		return domain.Booking{}, domain.Validation("booking_id is required")
	}
	current, err := c.repo.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, c.storeErr(err)
	}

	var out domain.Booking
	err = c.repo.InProviderTransaction(ctx, current.ProviderID, func(ctx context.Context, tx store.ProviderTx) error {
		b, err := tx.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		if err := mutate(&b, c.now().UTC()); err != nil {
			return err
		}
		out, err = tx.UpdateBooking(ctx, b)
		return err
	})
	if err != nil {
		return domain.Booking{}, c.storeErr(err)
	}
	return out, nil
}

func (c *Coordinator) GetBooking(ctx context.Context, actor auth.Identity, id uuid.UUID) (domain.Booking, error) {
	if id == uuid.Nil {
		return domain.Booking{}, domain.Validation("booking_id is required")
	}
	b, err := c.repo.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, c.storeErr(err)
	}
	if !actor.IsAdmin() && !b.IsParticipant(actor.UserID) {
		return domain.Booking{}, domain.NewError(domain.KindUnauthorized, "")
	}
	return b, nil
}

type ListInput struct {
	ProviderID  string
	RequesterID string
	Statuses    []domain.BookingStatus
	WindowStart time.Time
	WindowEnd   time.Time
	Limit       int
}

// ListBookings queries by provider or requester, newest start first.
func (c *Coordinator) ListBookings(ctx context.Context, actor auth.Identity, in ListInput) ([]domain.Booking, error) {
	f := store.BookingFilter{
		ProviderID:  strings.TrimSpace(in.ProviderID),
		RequesterID: strings.TrimSpace(in.RequesterID),
		Statuses:    in.Statuses,
		WindowStart: in.WindowStart,
		WindowEnd:   in.WindowEnd,
	}
	if f.ProviderID == "" && f.RequesterID == "" {
		return nil, domain.Validation("provider_id or requester_id is required")
	}
	if !actor.IsAdmin() && actor.UserID != f.ProviderID && actor.UserID != f.RequesterID {
		return nil, domain.NewError(domain.KindUnauthorized, "")
	}
	for _, st := range f.Statuses {
		if !st.Valid() {
			return nil, domain.Validation("unknown status " + string(st))
		}
	}
	if !f.WindowStart.IsZero() && !f.WindowEnd.IsZero() && !f.WindowEnd.After(f.WindowStart) {
		return nil, domain.Validation("window_end must be after window_start")
	}
	limit, err := listLimit(in.Limit)
	if err != nil {
		return nil, err
	}
	f.Limit = limit

	out, err := c.repo.ListBookings(ctx, f)
	if err != nil {
		return nil, domain.Infrastructure(err)
	}
	return out, nil
}

// UpcomingBookings lists the user's scheduled bookings that have not started,
// soonest first, whichever side of the booking the user is on.
func (c *Coordinator) UpcomingBookings(ctx context.Context, actor auth.Identity, userID string, limit int) ([]domain.Booking, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.Validation("user_id is required")
	}
	if !actor.IsAdmin() && actor.UserID != userID {
		return nil, domain.NewError(domain.KindUnauthorized, "")
	}
	n, err := listLimit(limit)
	if err != nil {
		return nil, err
	}
	out, err := c.repo.ListBookings(ctx, store.BookingFilter{
		ParticipantID: userID,
		Statuses:      []domain.BookingStatus{domain.StatusScheduled},
		WindowStart:   c.now().UTC(),
		Ascending:     true,
		Limit:         n,
	})
	if err != nil {
		return nil, domain.Infrastructure(err)
	}
	return out, nil
}

// UnratedBookings lists the requester's completed bookings still waiting
// for a rating.
func (c *Coordinator) UnratedBookings(ctx context.Context, actor auth.Identity, requesterID string) ([]domain.Booking, error) {
	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return nil, domain.Validation("requester_id is required")
	}
	if !actor.IsAdmin() && actor.UserID != requesterID {
		return nil, domain.NewError(domain.KindUnauthorized, "")
	}
	out, err := c.repo.ListBookings(ctx, store.BookingFilter{
		RequesterID: requesterID,
		Statuses:    []domain.BookingStatus{domain.StatusCompleted},
		OnlyUnrated: true,
		Limit:       maxListLimit,
	})
	if err != nil {
		return nil, domain.Infrastructure(err)
	}
	return out, nil
}

func (c *Coordinator) ProviderStats(ctx context.Context, providerID string) (store.ProviderStats, error) {
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return store.ProviderStats{}, domain.Validation("provider_id is required")
	}
	if err := c.requireProvider(ctx, providerID); err != nil {
		return store.ProviderStats{}, err
	}
	stats, err := c.repo.ProviderStats(ctx, providerID)
	if err != nil {
		return store.ProviderStats{}, domain.Infrastructure(err)
	}
	return stats, nil
}

type SystemStats struct {
	Total    int
	ByStatus map[domain.BookingStatus]int
}

func (c *Coordinator) SystemStats(ctx context.Context, actor auth.Identity) (SystemStats, error) {
	if !actor.IsAdmin() {
		return SystemStats{}, domain.NewError(domain.KindUnauthorized, "admin only")
	}
	counts, err := c.repo.CountByStatus(ctx)
	if err != nil {
		return SystemStats{}, domain.Infrastructure(err)
	}
	out := SystemStats{ByStatus: counts}
	for _, n := range counts {
		out.Total += n
	}
	return out, nil
}

func listLimit(n int) (int, error) {
	switch {
	case n == 0:
		return defaultListLimit, nil
	case n < 0:
		return 0, domain.Validation("limit must not be negative")
	case n > maxListLimit:
		return maxListLimit, nil
	}
	return n, nil
}

func (c *Coordinator) requireProvider(ctx context.Context, providerID string) error {
	u, err := c.dir.Lookup(ctx, providerID)
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

func (c *Coordinator) requireUser(ctx context.Context, userID, detail string) error {
	if _, err := c.dir.Lookup(ctx, userID); err != nil {
		if errors.Is(err, directory.ErrUserNotFound) {
			return domain.NotFound(detail)
		}
		return domain.Infrastructure(err)
	}
	return nil
}

// storeErr maps store sentinels onto the domain taxonomy. Domain errors
// raised inside a transaction pass through unchanged.
func (c *Coordinator) storeErr(err error) error {
	var de *domain.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, store.ErrConflict):
		return domain.NewError(domain.KindConcurrentBookingConflict, "")
	case errors.Is(err, store.ErrNotFound):
		return domain.NotFound("booking not found")
	case errors.Is(err, store.ErrIdempotencyConflict):
		return domain.NewError(domain.KindIdempotencyConflict, "")
	}
	c.log.Error("booking store failure", slog.Any("err", err))
	return domain.Infrastructure(err)
}

func (c *Coordinator) invalidate(ctx context.Context, b domain.Booking) {
	if c.cache == nil {
		return
	}
	day := domain.StartOfDay(b.StartAt, c.cfg.Location)
	if err := c.cache.InvalidateDay(ctx, b.ProviderID, day); err != nil {
		c.log.Warn("slot cache invalidation failed", slog.String("provider_id", b.ProviderID), slog.Any("err", err))
	}
}

func (c *Coordinator) emit(ctx context.Context, t domain.EventType, b domain.Booking) {
	if c.events == nil {
		return
	}
	c.events.Dispatch(ctx, domain.NewBookingEvent(t, b, c.now().UTC()))
}

func (c *Coordinator) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "booking."+name, trace.WithAttributes(attrs...))
}

func (c *Coordinator) finish(span trace.Span, op string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.MessageOf(err))
	}
	c.metrics.ObserveOperation(op, outcome, time.Since(started).Seconds())
	span.End()
}
