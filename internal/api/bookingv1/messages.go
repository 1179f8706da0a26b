package bookingv1

import "google.golang.org/protobuf/types/known/timestamppb"

type Booking struct {
	BookingId       string                 `json:"booking_id"`
	ProviderId      string                 `json:"provider_id"`
	RequesterId     string                 `json:"requester_id"`
	StartAt         *timestamppb.Timestamp `json:"start_at"`
	EndAt           *timestamppb.Timestamp `json:"end_at"`
	DurationMinutes int32                  `json:"duration_minutes"`
	Status          string                 `json:"status"`
	Notes           string                 `json:"notes,omitempty"`
	MeetingLink     string                 `json:"meeting_link,omitempty"`
	Rating          *int32                 `json:"rating,omitempty"`
	Feedback        *string                `json:"feedback,omitempty"`
	CompletedAt     *timestamppb.Timestamp `json:"completed_at,omitempty"`
	CancelledAt     *timestamppb.Timestamp `json:"cancelled_at,omitempty"`
	CreatedAt       *timestamppb.Timestamp `json:"created_at"`
}

// WeeklyRule times are "HH:MM" in the service timezone.
type WeeklyRule struct {
	RuleId     string `json:"rule_id"`
	ProviderId string `json:"provider_id"`
	DayOfWeek  int32  `json:"day_of_week"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Active     bool   `json:"active"`
}

// Exception dates are "YYYY-MM-DD"; times are "HH:MM" and empty for
// whole-day exceptions.
type Exception struct {
	ExceptionId string `json:"exception_id"`
	ProviderId  string `json:"provider_id"`
	Date        string `json:"date"`
	Kind        string `json:"kind"`
	StartTime   string `json:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type ListWeeklyRulesRequest struct {
	ProviderId string `json:"provider_id"`
}

type ListWeeklyRulesResponse struct {
	Rules []*WeeklyRule `json:"rules"`
}

type CreateWeeklyRuleRequest struct {
	ProviderId string `json:"provider_id"`
	DayOfWeek  int32  `json:"day_of_week"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

type CreateWeeklyRuleResponse struct {
	Rule *WeeklyRule `json:"rule"`
}

type SetWeeklyRuleActiveRequest struct {
	ProviderId string `json:"provider_id"`
	RuleId     string `json:"rule_id"`
	Active     bool   `json:"active"`
}

type SetWeeklyRuleActiveResponse struct {
	Rule *WeeklyRule `json:"rule"`
}

type AddExceptionRequest struct {
	ProviderId string `json:"provider_id"`
	Date       string `json:"date"`
	Kind       string `json:"kind"`
	StartTime  string `json:"start_time,omitempty"`
	EndTime    string `json:"end_time,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type AddExceptionResponse struct {
	Exception *Exception `json:"exception"`
}

type ListExceptionsRequest struct {
	ProviderId string `json:"provider_id"`
	From       string `json:"from"`
	To         string `json:"to"`
}

type ListExceptionsResponse struct {
	Exceptions []*Exception `json:"exceptions"`
}

type GetFreeSlotsRequest struct {
	ProviderId  string `json:"provider_id"`
	Date        string `json:"date"`
	SlotMinutes int32  `json:"slot_minutes,omitempty"`
}

type GetFreeSlotsResponse struct {
	Slots []*timestamppb.Timestamp `json:"slots"`
}

type CheckAvailabilityRequest struct {
	ProviderId      string                 `json:"provider_id"`
	StartAt         *timestamppb.Timestamp `json:"start_at"`
	DurationMinutes int32                  `json:"duration_minutes,omitempty"`
}

type CheckAvailabilityResponse struct {
	Available bool `json:"available"`
}

type CreateBookingRequest struct {
	ProviderId      string                 `json:"provider_id"`
	RequesterId     string                 `json:"requester_id"`
	StartAt         *timestamppb.Timestamp `json:"start_at"`
	DurationMinutes int32                  `json:"duration_minutes,omitempty"`
	Notes           string                 `json:"notes,omitempty"`
}

type CreateBookingResponse struct {
	Booking *Booking `json:"booking"`
}

type CancelBookingRequest struct {
	BookingId string `json:"booking_id"`
	Reason    string `json:"reason,omitempty"`
}

type CancelBookingResponse struct {
	Booking *Booking `json:"booking"`
}

type CompleteBookingRequest struct {
	BookingId string  `json:"booking_id"`
	Rating    *int32  `json:"rating,omitempty"`
	Feedback  *string `json:"feedback,omitempty"`
}

type CompleteBookingResponse struct {
	Booking *Booking `json:"booking"`
}

type MarkNoShowRequest struct {
	BookingId string `json:"booking_id"`
}

type MarkNoShowResponse struct {
	Booking *Booking `json:"booking"`
}

type GetBookingRequest struct {
	BookingId string `json:"booking_id"`
}

type GetBookingResponse struct {
	Booking *Booking `json:"booking"`
}

type ListBookingsRequest struct {
	ProviderId  string                 `json:"provider_id,omitempty"`
	RequesterId string                 `json:"requester_id,omitempty"`
	Statuses    []string               `json:"statuses,omitempty"`
	WindowStart *timestamppb.Timestamp `json:"window_start,omitempty"`
	WindowEnd   *timestamppb.Timestamp `json:"window_end,omitempty"`
	Limit       int32                  `json:"limit,omitempty"`
}

type ListBookingsResponse struct {
	Bookings []*Booking `json:"bookings"`
}

type UpcomingBookingsRequest struct {
	UserId string `json:"user_id"`
	Limit  int32  `json:"limit,omitempty"`
}

type UpcomingBookingsResponse struct {
	Bookings []*Booking `json:"bookings"`
}

type UnratedBookingsRequest struct {
	RequesterId string `json:"requester_id"`
}

type UnratedBookingsResponse struct {
	Bookings []*Booking `json:"bookings"`
}

type GetProviderStatsRequest struct {
	ProviderId string `json:"provider_id"`
}

type GetProviderStatsResponse struct {
	ProviderId    string   `json:"provider_id"`
	Completed     int32    `json:"completed"`
	Rated         int32    `json:"rated"`
	AverageRating *float64 `json:"average_rating,omitempty"`
}

type GetSystemStatsRequest struct{}

type GetSystemStatsResponse struct {
	Total    int32            `json:"total"`
	ByStatus map[string]int32 `json:"by_status"`
}
