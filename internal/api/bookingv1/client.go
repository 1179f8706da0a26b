package bookingv1

import (
	"context"

	"google.golang.org/grpc"
)

type BookingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewBookingServiceClient(cc grpc.ClientConnInterface) *BookingServiceClient {
	return &BookingServiceClient{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookingServiceClient) ListWeeklyRules(ctx context.Context, in *ListWeeklyRulesRequest, opts ...grpc.CallOption) (*ListWeeklyRulesResponse, error) {
	return invoke[ListWeeklyRulesRequest, ListWeeklyRulesResponse](ctx, c.cc, "ListWeeklyRules", in, opts)
}

func (c *BookingServiceClient) CreateWeeklyRule(ctx context.Context, in *CreateWeeklyRuleRequest, opts ...grpc.CallOption) (*CreateWeeklyRuleResponse, error) {
	return invoke[CreateWeeklyRuleRequest, CreateWeeklyRuleResponse](ctx, c.cc, "CreateWeeklyRule", in, opts)
}

func (c *BookingServiceClient) SetWeeklyRuleActive(ctx context.Context, in *SetWeeklyRuleActiveRequest, opts ...grpc.CallOption) (*SetWeeklyRuleActiveResponse, error) {
	return invoke[SetWeeklyRuleActiveRequest, SetWeeklyRuleActiveResponse](ctx, c.cc, "SetWeeklyRuleActive", in, opts)
}

func (c *BookingServiceClient) AddException(ctx context.Context, in *AddExceptionRequest, opts ...grpc.CallOption) (*AddExceptionResponse, error) {
	return invoke[AddExceptionRequest, AddExceptionResponse](ctx, c.cc, "AddException", in, opts)
}

func (c *BookingServiceClient) ListExceptions(ctx context.Context, in *ListExceptionsRequest, opts ...grpc.CallOption) (*ListExceptionsResponse, error) {
	return invoke[ListExceptionsRequest, ListExceptionsResponse](ctx, c.cc, "ListExceptions", in, opts)
}

func (c *BookingServiceClient) GetFreeSlots(ctx context.Context, in *GetFreeSlotsRequest, opts ...grpc.CallOption) (*GetFreeSlotsResponse, error) {
	return invoke[GetFreeSlotsRequest, GetFreeSlotsResponse](ctx, c.cc, "GetFreeSlots", in, opts)
}

func (c *BookingServiceClient) CheckAvailability(ctx context.Context, in *CheckAvailabilityRequest, opts ...grpc.CallOption) (*CheckAvailabilityResponse, error) {
	return invoke[CheckAvailabilityRequest, CheckAvailabilityResponse](ctx, c.cc, "CheckAvailability", in, opts)
}

func (c *BookingServiceClient) CreateBooking(ctx context.Context, in *CreateBookingRequest, opts ...grpc.CallOption) (*CreateBookingResponse, error) {
	return invoke[CreateBookingRequest, CreateBookingResponse](ctx, c.cc, "CreateBooking", in, opts)
}

func (c *BookingServiceClient) CancelBooking(ctx context.Context, in *CancelBookingRequest, opts ...grpc.CallOption) (*CancelBookingResponse, error) {
	return invoke[CancelBookingRequest, CancelBookingResponse](ctx, c.cc, "CancelBooking", in, opts)
}

func (c *BookingServiceClient) CompleteBooking(ctx context.Context, in *CompleteBookingRequest, opts ...grpc.CallOption) (*CompleteBookingResponse, error) {
	return invoke[CompleteBookingRequest, CompleteBookingResponse](ctx, c.cc, "CompleteBooking", in, opts)
}

func (c *BookingServiceClient) MarkNoShow(ctx context.Context, in *MarkNoShowRequest, opts ...grpc.CallOption) (*MarkNoShowResponse, error) {
	return invoke[MarkNoShowRequest, MarkNoShowResponse](ctx, c.cc, "MarkNoShow", in, opts)
}

func (c *BookingServiceClient) GetBooking(ctx context.Context, in *GetBookingRequest, opts ...grpc.CallOption) (*GetBookingResponse, error) {
	return invoke[GetBookingRequest, GetBookingResponse](ctx, c.cc, "GetBooking", in, opts)
}

func (c *BookingServiceClient) ListBookings(ctx context.Context, in *ListBookingsRequest, opts ...grpc.CallOption) (*ListBookingsResponse, error) {
	return invoke[ListBookingsRequest, ListBookingsResponse](ctx, c.cc, "ListBookings", in, opts)
}

func (c *BookingServiceClient) UpcomingBookings(ctx context.Context, in *UpcomingBookingsRequest, opts ...grpc.CallOption) (*UpcomingBookingsResponse, error) {
	return invoke[UpcomingBookingsRequest, UpcomingBookingsResponse](ctx, c.cc, "UpcomingBookings", in, opts)
}

func (c *BookingServiceClient) UnratedBookings(ctx context.Context, in *UnratedBookingsRequest, opts ...grpc.CallOption) (*UnratedBookingsResponse, error) {
	return invoke[UnratedBookingsRequest, UnratedBookingsResponse](ctx, c.cc, "UnratedBookings", in, opts)
}

func (c *BookingServiceClient) GetProviderStats(ctx context.Context, in *GetProviderStatsRequest, opts ...grpc.CallOption) (*GetProviderStatsResponse, error) {
	return invoke[GetProviderStatsRequest, GetProviderStatsResponse](ctx, c.cc, "GetProviderStats", in, opts)
}

func (c *BookingServiceClient) GetSystemStats(ctx context.Context, in *GetSystemStatsRequest, opts ...grpc.CallOption) (*GetSystemStatsResponse, error) {
	return invoke[GetSystemStatsRequest, GetSystemStatsResponse](ctx, c.cc, "GetSystemStats", in, opts)
}
