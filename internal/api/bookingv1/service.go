// Package bookingv1 defines the consultbook.booking.v1.BookingService RPC
// surface: its messages, service descriptor, client and wire codec.
package bookingv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "consultbook.booking.v1.BookingService"

// FullMethod returns the RPC path of method, e.g. "/consultbook.booking.v1.BookingService/CreateBooking".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type BookingServiceServer interface {
	ListWeeklyRules(context.Context, *ListWeeklyRulesRequest) (*ListWeeklyRulesResponse, error)
	CreateWeeklyRule(context.Context, *CreateWeeklyRuleRequest) (*CreateWeeklyRuleResponse, error)
	SetWeeklyRuleActive(context.Context, *SetWeeklyRuleActiveRequest) (*SetWeeklyRuleActiveResponse, error)
	AddException(context.Context, *AddExceptionRequest) (*AddExceptionResponse, error)
	ListExceptions(context.Context, *ListExceptionsRequest) (*ListExceptionsResponse, error)
	GetFreeSlots(context.Context, *GetFreeSlotsRequest) (*GetFreeSlotsResponse, error)
	CheckAvailability(context.Context, *CheckAvailabilityRequest) (*CheckAvailabilityResponse, error)
	CreateBooking(context.Context, *CreateBookingRequest) (*CreateBookingResponse, error)
	CancelBooking(context.Context, *CancelBookingRequest) (*CancelBookingResponse, error)
	CompleteBooking(context.Context, *CompleteBookingRequest) (*CompleteBookingResponse, error)
	MarkNoShow(context.Context, *MarkNoShowRequest) (*MarkNoShowResponse, error)
	GetBooking(context.Context, *GetBookingRequest) (*GetBookingResponse, error)
	ListBookings(context.Context, *ListBookingsRequest) (*ListBookingsResponse, error)
	UpcomingBookings(context.Context, *UpcomingBookingsRequest) (*UpcomingBookingsResponse, error)
	UnratedBookings(context.Context, *UnratedBookingsRequest) (*UnratedBookingsResponse, error)
	GetProviderStats(context.Context, *GetProviderStatsRequest) (*GetProviderStatsResponse, error)
	GetSystemStats(context.Context, *GetSystemStatsRequest) (*GetSystemStatsResponse, error)
}

// UnimplementedBookingServiceServer answers every RPC with codes.Unimplemented.
// Embed it to stay forward compatible with new methods.
type UnimplementedBookingServiceServer struct{}

func unimplemented(method string) error {
	return status.Error(codes.Unimplemented, "method "+method+" not implemented")
}

func (UnimplementedBookingServiceServer) ListWeeklyRules(context.Context, *ListWeeklyRulesRequest) (*ListWeeklyRulesResponse, error) {
	return nil, unimplemented("ListWeeklyRules")
}

func (UnimplementedBookingServiceServer) CreateWeeklyRule(context.Context, *CreateWeeklyRuleRequest) (*CreateWeeklyRuleResponse, error) {
	return nil, unimplemented("CreateWeeklyRule")
}

func (UnimplementedBookingServiceServer) SetWeeklyRuleActive(context.Context, *SetWeeklyRuleActiveRequest) (*SetWeeklyRuleActiveResponse, error) {
	return nil, unimplemented("SetWeeklyRuleActive")
}

func (UnimplementedBookingServiceServer) AddException(context.Context, *AddExceptionRequest) (*AddExceptionResponse, error) {
	return nil, unimplemented("AddException")
}

func (UnimplementedBookingServiceServer) ListExceptions(context.Context, *ListExceptionsRequest) (*ListExceptionsResponse, error) {
	return nil, unimplemented("ListExceptions")
}

func (UnimplementedBookingServiceServer) GetFreeSlots(context.Context, *GetFreeSlotsRequest) (*GetFreeSlotsResponse, error) {
	return nil, unimplemented("GetFreeSlots")
}

func (UnimplementedBookingServiceServer) CheckAvailability(context.Context, *CheckAvailabilityRequest) (*CheckAvailabilityResponse, error) {
	return nil, unimplemented("CheckAvailability")
}

func (UnimplementedBookingServiceServer) CreateBooking(context.Context, *CreateBookingRequest) (*CreateBookingResponse, error) {
	return nil, unimplemented("CreateBooking")
}

func (UnimplementedBookingServiceServer) CancelBooking(context.Context, *CancelBookingRequest) (*CancelBookingResponse, error) {
	return nil, unimplemented("CancelBooking")
}

func (UnimplementedBookingServiceServer) CompleteBooking(context.Context, *CompleteBookingRequest) (*CompleteBookingResponse, error) {
	return nil, unimplemented("CompleteBooking")
}

func (UnimplementedBookingServiceServer) MarkNoShow(context.Context, *MarkNoShowRequest) (*MarkNoShowResponse, error) {
	return nil, unimplemented("MarkNoShow")
}

func (UnimplementedBookingServiceServer) GetBooking(context.Context, *GetBookingRequest) (*GetBookingResponse, error) {
	return nil, unimplemented("GetBooking")
}

func (UnimplementedBookingServiceServer) ListBookings(context.Context, *ListBookingsRequest) (*ListBookingsResponse, error) {
	return nil, unimplemented("ListBookings")
}

func (UnimplementedBookingServiceServer) UpcomingBookings(context.Context, *UpcomingBookingsRequest) (*UpcomingBookingsResponse, error) {
	return nil, unimplemented("UpcomingBookings")
}

func (UnimplementedBookingServiceServer) UnratedBookings(context.Context, *UnratedBookingsRequest) (*UnratedBookingsResponse, error) {
	return nil, unimplemented("UnratedBookings")
}

func (UnimplementedBookingServiceServer) GetProviderStats(context.Context, *GetProviderStatsRequest) (*GetProviderStatsResponse, error) {
	return nil, unimplemented("GetProviderStats")
}

func (UnimplementedBookingServiceServer) GetSystemStats(context.Context, *GetSystemStatsRequest) (*GetSystemStatsResponse, error) {
	return nil, unimplemented("GetSystemStats")
}

func unary[Req, Resp any](method string, call func(BookingServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BookingServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(BookingServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var BookingService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListWeeklyRules", BookingServiceServer.ListWeeklyRules),
		unary("CreateWeeklyRule", BookingServiceServer.CreateWeeklyRule),
		unary("SetWeeklyRuleActive", BookingServiceServer.SetWeeklyRuleActive),
		unary("AddException", BookingServiceServer.AddException),
		unary("ListExceptions", BookingServiceServer.ListExceptions),
		unary("GetFreeSlots", BookingServiceServer.GetFreeSlots),
		unary("CheckAvailability", BookingServiceServer.CheckAvailability),
		unary("CreateBooking", BookingServiceServer.CreateBooking),
		unary("CancelBooking", BookingServiceServer.CancelBooking),
		unary("CompleteBooking", BookingServiceServer.CompleteBooking),
		unary("MarkNoShow", BookingServiceServer.MarkNoShow),
		unary("GetBooking", BookingServiceServer.GetBooking),
		unary("ListBookings", BookingServiceServer.ListBookings),
		unary("UpcomingBookings", BookingServiceServer.UpcomingBookings),
		unary("UnratedBookings", BookingServiceServer.UnratedBookings),
		unary("GetProviderStats", BookingServiceServer.GetProviderStats),
		unary("GetSystemStats", BookingServiceServer.GetSystemStats),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "consultbook/booking/v1/booking.proto",
}

func RegisterBookingServiceServer(s grpc.ServiceRegistrar, srv BookingServiceServer) {
	s.RegisterService(&BookingService_ServiceDesc, srv)
}
