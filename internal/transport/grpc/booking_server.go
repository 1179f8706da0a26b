package grpc

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	bookingv1 "consultbook/backend/internal/api/bookingv1"
	"consultbook/backend/internal/auth"
	"consultbook/backend/internal/domain"
	"consultbook/backend/internal/service/booking"
	"consultbook/backend/internal/service/schedule"
	"consultbook/backend/internal/store"
)

type BookingServer struct {
	bookingv1.UnimplementedBookingServiceServer

	schedule     scheduleService
	availability availabilityService
	bookings     bookingService
	loc          *time.Location
	log          *slog.Logger
}

type scheduleService interface {
	CreateWeeklyRule(ctx context.Context, actor auth.Identity, in schedule.CreateRuleInput) (domain.WeeklyRule, error)
	ListWeeklyRules(ctx context.Context, providerID string) ([]domain.WeeklyRule, error)
	SetWeeklyRuleActive(ctx context.Context, actor auth.Identity, providerID string, ruleID uuid.UUID, active bool) (domain.WeeklyRule, error)
	AddException(ctx context.Context, actor auth.Identity, in schedule.AddExceptionInput) (domain.Exception, error)
	ListExceptions(ctx context.Context, providerID string, from, to time.Time) ([]domain.Exception, error)
}

type availabilityService interface {
	IsAvailable(ctx context.Context, providerID string, at time.Time, d time.Duration) (bool, error)
	FreeSlots(ctx context.Context, providerID string, date time.Time, slotLength time.Duration) ([]time.Time, error)
}

type bookingService interface {
	CreateBooking(ctx context.Context, in booking.CreateInput) (domain.Booking, error)
	CancelBooking(ctx context.Context, in booking.CancelInput) (domain.Booking, error)
	CompleteBooking(ctx context.Context, in booking.CompleteInput) (domain.Booking, error)
	MarkNoShow(ctx context.Context, bookingID uuid.UUID, actor auth.Identity) (domain.Booking, error)
	GetBooking(ctx context.Context, actor auth.Identity, id uuid.UUID) (domain.Booking, error)
	ListBookings(ctx context.Context, actor auth.Identity, in booking.ListInput) ([]domain.Booking, error)
	UpcomingBookings(ctx context.Context, actor auth.Identity, userID string, limit int) ([]domain.Booking, error)
	UnratedBookings(ctx context.Context, actor auth.Identity, requesterID string) ([]domain.Booking, error)
	ProviderStats(ctx context.Context, providerID string) (store.ProviderStats, error)
	SystemStats(ctx context.Context, actor auth.Identity) (booking.SystemStats, error)
}

func NewBookingServer(sched scheduleService, avail availabilityService, bookings bookingService, loc *time.Location, log *slog.Logger) *BookingServer {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &BookingServer{
		schedule:     sched,
		availability: avail,
		bookings:     bookings,
		loc:          loc,
		log:          log.With(slog.String("component", "grpc.booking")),
	}
}

func (s *BookingServer) rpc(ctx context.Context, name string) (*slog.Logger, auth.Identity, error) {
	log := s.log.With(slog.String("rpc", name))
	id, ok := auth.FromContext(ctx)
	if !ok {
		log.Warn("missing caller identity")
		return log, auth.Identity{}, status.Error(codes.Unauthenticated, "authentication required")
	}
	return log.With(slog.String("caller_id", id.UserID)), id, nil
}

func (s *BookingServer) ListWeeklyRules(ctx context.Context, req *bookingv1.ListWeeklyRulesRequest) (*bookingv1.ListWeeklyRulesResponse, error) {
	log, _, err := s.rpc(ctx, "ListWeeklyRules")
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}

	rules, err := s.schedule.ListWeeklyRules(ctx, req.ProviderId)
	if err != nil {
		return nil, statusError(log, err)
	}
	out := make([]*bookingv1.WeeklyRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, toProtoRule(r))
	}
	log.Debug("weekly rules listed", slog.String("provider_id", req.ProviderId), slog.Int("count", len(out)))
	return &bookingv1.ListWeeklyRulesResponse{Rules: out}, nil
}

func (s *BookingServer) CreateWeeklyRule(ctx context.Context, req *bookingv1.CreateWeeklyRuleRequest) (*bookingv1.CreateWeeklyRuleResponse, error) {
	log, caller, err := s.rpc(ctx, "CreateWeeklyRule")
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	start, end, err := parseWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, invalidArgument(log, "invalid_time", err.Error())
	}

	rule, err := s.schedule.CreateWeeklyRule(ctx, caller, schedule.CreateRuleInput{
		ProviderID: req.ProviderId,
		DayOfWeek:  time.Weekday(req.DayOfWeek),
		StartTime:  start,
		EndTime:    end,
	})
	if err != nil {
		return nil, statusError(log, err)
	}
	return &bookingv1.CreateWeeklyRuleResponse{Rule: toProtoRule(rule)}, nil
}

func (s *BookingServer) SetWeeklyRuleActive(ctx context.Context, req *bookingv1.SetWeeklyRuleActiveRequest) (*bookingv1.SetWeeklyRuleActiveResponse, error) {
	log, caller, err := s.rpc(ctx, "SetWeeklyRuleActive")
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	id, err := uuid.Parse(req.RuleId)
	if err != nil {
		return nil, invalidArgument(log, "invalid_uuid", "rule_id must be a UUID")
	}

	rule, err := s.schedule.SetWeeklyRuleActive(ctx, caller, req.ProviderId, id, req.Active)
	if err != nil {
		return nil, statusError(log, err)
	}
	return &bookingv1.SetWeeklyRuleActiveResponse{Rule: toProtoRule(rule)}, nil
}

func (s *BookingServer) AddException(ctx context.Context, req *bookingv1.AddExceptionRequest) (*bookingv1.AddExceptionResponse, error) {
	log, caller, err := s.rpc(ctx, "AddException")
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	date, err := s.parseDate(req.Date)
	if err != nil {
		return nil, invalidArgument(log, "invalid_date", "date must be YYYY-MM-DD")
	}
	in := schedule.AddExceptionInput{
		ProviderID: req.ProviderId,
		Date:       date,
		Kind:       domain.ExceptionKind(req.Kind),
		Reason:     req.Reason,
	}
	if req.StartTime != "" || req.EndTime != "" {
		start, end, err := parseWindow(req.StartTime, req.EndTime)
		if err != nil {
			return nil, invalidArgument(log, "invalid_time", err.Error())
		}
		in.StartTime, in.EndTime = &start, &end
	}

	ex, err := s.schedule.AddException(ctx, caller, in)
	if err != nil {
		return nil, statusError(log, err)
	}
	return &bookingv1.AddExceptionResponse{Exception: toProtoException(ex)}, nil
}

func (s *BookingServer) ListExceptions(ctx context.Context, req *bookingv1.ListExceptionsRequest) (*bookingv1.ListExceptionsResponse, error) {
	log, _, err := s.rpc(ctx, "ListExceptions")
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	from, err := s.parseDate(req.From)
	if err != nil {
		return nil, invalidArgument(log, "invalid_date", "from must be YYYY-MM-DD")
	}
	to, err := s.parseDate(req.To)
	if err != nil {
		return nil, invalidArgument(log, "invalid_date", "to must be YYYY-MM-DD")
	}

	list, err := s.schedule.ListExceptions(ctx, req.ProviderId, from, to)
	if err != nil {
		return nil, statusError(log, err)
	}
	out := make([]*bookingv1.Exception, 0, len(list))
	for _, ex := range list {
		out = append(out, toProtoException(ex))
	}
	return &bookingv1.ListExceptionsResponse{Exceptions: out}, nil
}

func (s *BookingServer) GetFreeSlots(ctx context.Context, req *bookingv1.GetFreeSlotsRequest) (*bookingv1.GetFreeSlotsResponse, error) {
	log, _, err := s.rpc(ctx, "GetFreeSlots")
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	date, err := s.parseDate(req.Date)
	if err != nil {
		return nil, invalidArgument(log, "invalid_date", "date must be YYYY-MM-DD")
	}

	slots, err := s.availability.FreeSlots(ctx, req.ProviderId, date, time.Duration(req.SlotMinutes)*time.Minute)
	if err != nil {
		return nil, statusError(log, err)
	}
	out := make([]*timestamppb.Timestamp, 0, len(slots))
	for _, t := range slots {
		out = append(out, timestamppb.New(t))
	}
	log.Debug("free slots listed", slog.String("provider_id", req.ProviderId), slog.String("date", req.Date), slog.Int("count", len(out)))
	return &bookingv1.GetFreeSlotsResponse{Slots: out}, nil
}

func (s *BookingServer) CheckAvailability(ctx context.Context, req *bookingv1.CheckAvailabilityRequest) (*bookingv1.CheckAvailabilityResponse, error) {
	log, _, err := s.rpc(ctx, "CheckAvailability")
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	if req.StartAt == nil {
		return nil, invalidArgument(log, "missing_start", "start_at is required")
	}

	ok, err := s.availability.IsAvailable(ctx, req.ProviderId, req.StartAt.AsTime(), time.Duration(req.DurationMinutes)*time.Minute)
	if err != nil {
		return nil, statusError(log, err)
	}
	return &bookingv1.CheckAvailabilityResponse{Available: ok}, nil
}

func (s *BookingServer) CreateBooking(ctx context.Context, req *bookingv1.CreateBookingRequest) (*bookingv1.CreateBookingResponse, error) {
	log, caller, err := s.rpc(ctx, "CreateBooking")
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	if req.StartAt == nil {
		return nil, invalidArgument(log, "missing_start", "start_at is required")
	}
	requesterID := req.RequesterId
	if requesterID == "" {
		requesterID = caller.UserID
	}

	b, err := s.bookings.CreateBooking(ctx, booking.CreateInput{
		Actor:           caller,
		ProviderID:      req.ProviderId,
		RequesterID:     requesterID,
		StartAt:         req.StartAt.AsTime(),
		DurationMinutes: int(req.DurationMinutes),
		Notes:           req.Notes,
		IdempotencyKey:  idempotencyKey(ctx),
	})
	if err != nil {
		return nil, statusError(log, err)
	}

	log.Info(
		"booking created",
		slog.String("booking_id", b.ID.String()),
		slog.String("provider_id", b.ProviderID),
		slog.Time("start_at", b.StartAt),
	)
	return &bookingv1.CreateBookingResponse{Booking: toProtoBooking(b)}, nil
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("idempotency-key")
	if len(values) == 0 {
		values = md.Get("x-idempotency-key")
	}
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func (s *BookingServer) CancelBooking(ctx context.Context, req *bookingv1.CancelBookingRequest) (*bookingv1.CancelBookingResponse, error) {
	log, caller, err := s.rpc(ctx, "CancelBooking")
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	id, err := uuid.Parse(req.BookingId)
	if err != nil {
		return nil, invalidArgument(log, "invalid_uuid", "booking_id must be a UUID")
	}

	b, err := s.bookings.CancelBooking(ctx, booking.CancelInput{BookingID: id, Actor: caller, Reason: req.Reason})
	if err != nil {
		return nil, statusError(log, err)
	}
	log.Info("booking cancelled", slog.String("booking_id", id.String()))
	return &bookingv1.CancelBookingResponse{Booking: toProtoBooking(b)}, nil
}

func (s *BookingServer) CompleteBooking(ctx context.Context, req *bookingv1.CompleteBookingRequest) (*bookingv1.CompleteBookingResponse, error) {
	log, caller, err := s.rpc(ctx, "CompleteBooking")
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	id, err := uuid.Parse(req.BookingId)
	if err != nil {
		return nil, invalidArgument(log, "invalid_uuid", "booking_id must be a UUID")
	}
	in := booking.CompleteInput{BookingID: id, Actor: caller, Feedback: req.Feedback}
	if req.Rating != nil {
		r := int(*req.Rating)
		in.Rating = &r
	}

	b, err := s.bookings.CompleteBooking(ctx, in)
	if err != nil {
		return nil, statusError(log, err)
	}
	log.Info("booking completed", slog.String("booking_id", id.String()))
	return &bookingv1.CompleteBookingResponse{Booking: toProtoBooking(b)}, nil
}

func (s *BookingServer) MarkNoShow(ctx context.Context, req *bookingv1.MarkNoShowRequest) (*bookingv1.MarkNoShowResponse, error) {
	log, caller, err := s.rpc(ctx, "MarkNoShow")
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	id, err := uuid.Parse(req.BookingId)
	if err != nil {
		return nil, invalidArgument(log, "invalid_uuid", "booking_id must be a UUID")
	}

	b, err := s.bookings.MarkNoShow(ctx, id, caller)
	if err != nil {
		return nil, statusError(log, err)
	}
	return &bookingv1.MarkNoShowResponse{Booking: toProtoBooking(b)}, nil
}

func (s *BookingServer) GetBooking(ctx context.Context, req *bookingv1.GetBookingRequest) (*bookingv1.GetBookingResponse, error) {
	log, caller, err := s.rpc(ctx, "GetBooking")
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	id, err := uuid.Parse(req.BookingId)
	if err != nil {
		return nil, invalidArgument(log, "invalid_uuid", "booking_id must be a UUID")
	}

	b, err := s.bookings.GetBooking(ctx, caller, id)
	if err != nil {
		return nil, statusError(log, err)
	}
	return &bookingv1.GetBookingResponse{Booking: toProtoBooking(b)}, nil
}

func (s *BookingServer) ListBookings(ctx context.Context, req *bookingv1.ListBookingsRequest) (*bookingv1.ListBookingsResponse, error) {
	log, caller, err := s.rpc(ctx, "ListBookings")
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	in := booking.ListInput{
		ProviderID:  req.ProviderId,
		RequesterID: req.RequesterId,
		Limit:       int(req.Limit),
	}
	for _, st := range req.Statuses {
		in.Statuses = append(in.Statuses, domain.BookingStatus(st))
	}
	if req.WindowStart != nil {
		in.WindowStart = req.WindowStart.AsTime()
	}
	if req.WindowEnd != nil {
		in.WindowEnd = req.WindowEnd.AsTime()
	}

	list, err := s.bookings.ListBookings(ctx, caller, in)
	if err != nil {
		return nil, statusError(log, err)
	}
	log.Debug("bookings listed", slog.Int("count", len(list)))
	return &bookingv1.ListBookingsResponse{Bookings: toProtoBookings(list)}, nil
}

func (s *BookingServer) UpcomingBookings(ctx context.Context, req *bookingv1.UpcomingBookingsRequest) (*bookingv1.UpcomingBookingsResponse, error) {
	log, caller, err := s.rpc(ctx, "UpcomingBookings")
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	userID := req.UserId
	if userID == "" {
		userID = caller.UserID
	}

	list, err := s.bookings.UpcomingBookings(ctx, caller, userID, int(req.Limit))
	if err != nil {
		return nil, statusError(log, err)
	}
	return &bookingv1.UpcomingBookingsResponse{Bookings: toProtoBookings(list)}, nil
}

func (s *BookingServer) UnratedBookings(ctx context.Context, req *bookingv1.UnratedBookingsRequest) (*bookingv1.UnratedBookingsResponse, error) {
	log, caller, err := s.rpc(ctx, "UnratedBookings")
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}
	requesterID := req.RequesterId
	if requesterID == "" {
		requesterID = caller.UserID
	}

	list, err := s.bookings.UnratedBookings(ctx, caller, requesterID)
	if err != nil {
		return nil, statusError(log, err)
	}
	return &bookingv1.UnratedBookingsResponse{Bookings: toProtoBookings(list)}, nil
}

func (s *BookingServer) GetProviderStats(ctx context.Context, req *bookingv1.GetProviderStatsRequest) (*bookingv1.GetProviderStatsResponse, error) {
	log, _, err := s.rpc(ctx, "GetProviderStats")
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalidArgument(log, "nil_request", "request is required")
	}

	stats, err := s.bookings.ProviderStats(ctx, req.ProviderId)
	if err != nil {
		return nil, statusError(log, err)
	}
	return &bookingv1.GetProviderStatsResponse{
		ProviderId:    stats.ProviderID,
		Completed:     int32(stats.Completed),
		Rated:         int32(stats.Rated),
		AverageRating: stats.AverageRating,
	}, nil
}

func (s *BookingServer) GetSystemStats(ctx context.Context, req *bookingv1.GetSystemStatsRequest) (*bookingv1.GetSystemStatsResponse, error) {
	log, caller, err := s.rpc(ctx, "GetSystemStats")
	if err != nil {
		return nil, err
	}

	stats, err := s.bookings.SystemStats(ctx, caller)
	if err != nil {
		return nil, statusError(log, err)
	}
	out := &bookingv1.GetSystemStatsResponse{
		Total:    int32(stats.Total),
		ByStatus: make(map[string]int32, len(stats.ByStatus)),
	}
	for st, n := range stats.ByStatus {
		out.ByStatus[string(st)] = int32(n)
	}
	return out, nil
}

func (s *BookingServer) parseDate(v string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, strings.TrimSpace(v), s.loc)
}

func parseWindow(start, end string) (domain.Clock, domain.Clock, error) {
	from, err := domain.ParseClock(start)
	if err != nil {
		return 0, 0, err
	}
	to, err := domain.ParseClock(end)
	if err != nil {
		return 0, 0, err
	}
	return from, to, nil
}

func toProtoBooking(b domain.Booking) *bookingv1.Booking {
	out := &bookingv1.Booking{
		BookingId:       b.ID.String(),
		ProviderId:      b.ProviderID,
		RequesterId:     b.RequesterID,
		StartAt:         timestamppb.New(b.StartAt),
		EndAt:           timestamppb.New(b.End()),
		DurationMinutes: int32(b.DurationMinutes),
		Status:          string(b.Status),
		Notes:           b.Notes,
		MeetingLink:     b.MeetingLink,
		Feedback:        b.Feedback,
		CreatedAt:       timestamppb.New(b.CreatedAt),
	}
	if b.Rating != nil {
		r := int32(*b.Rating)
		out.Rating = &r
	}
	if b.CompletedAt != nil {
		out.CompletedAt = timestamppb.New(*b.CompletedAt)
	}
	if b.CancelledAt != nil {
		out.CancelledAt = timestamppb.New(*b.CancelledAt)
	}
	return out
}

func toProtoBookings(list []domain.Booking) []*bookingv1.Booking {
	out := make([]*bookingv1.Booking, 0, len(list))
	for _, b := range list {
		out = append(out, toProtoBooking(b))
	}
	return out
}

func toProtoRule(r domain.WeeklyRule) *bookingv1.WeeklyRule {
	return &bookingv1.WeeklyRule{
		RuleId:     r.ID.String(),
		ProviderId: r.ProviderID,
		DayOfWeek:  int32(r.DayOfWeek),
		StartTime:  r.StartTime.String(),
		EndTime:    r.EndTime.String(),
		Active:     r.Active,
	}
}

func toProtoException(e domain.Exception) *bookingv1.Exception {
	out := &bookingv1.Exception{
		ExceptionId: e.ID.String(),
		ProviderId:  e.ProviderID,
		Date:        e.Date.Format(time.DateOnly),
		Kind:        string(e.Kind),
		Reason:      e.Reason,
	}
	if e.StartTime != nil {
		out.StartTime = e.StartTime.String()
	}
	if e.EndTime != nil {
		out.EndTime = e.EndTime.String()
	}
	return out
}
