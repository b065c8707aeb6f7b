package api

import (
	"context"
	"errors"

	"roombook/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	bookingServiceName = "roombook.booking.v1.BookingService"

	methodCreateReservation   = "/" + bookingServiceName + "/CreateReservation"
	methodUpdateReservation   = "/" + bookingServiceName + "/UpdateReservation"
	methodDeleteReservation   = "/" + bookingServiceName + "/DeleteReservation"
	methodGetReservation      = "/" + bookingServiceName + "/GetReservation"
	methodValidateReservation = "/" + bookingServiceName + "/ValidateReservation"
)

// BookingServiceServer is the gRPC surface of the booking service. Messages
// are google.protobuf.Struct with the same fields as the HTTP JSON bodies.
type BookingServiceServer interface {
	CreateReservation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateReservation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteReservation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReservation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ValidateReservation(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(BookingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BookingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BookingServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// BookingServiceDesc registers BookingServiceServer without generated code.
var BookingServiceDesc = grpc.ServiceDesc{
	ServiceName: bookingServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateReservation", Handler: unaryHandler(methodCreateReservation, BookingServiceServer.CreateReservation)},
		{MethodName: "UpdateReservation", Handler: unaryHandler(methodUpdateReservation, BookingServiceServer.UpdateReservation)},
		{MethodName: "DeleteReservation", Handler: unaryHandler(methodDeleteReservation, BookingServiceServer.DeleteReservation)},
		{MethodName: "GetReservation", Handler: unaryHandler(methodGetReservation, BookingServiceServer.GetReservation)},
		{MethodName: "ValidateReservation", Handler: unaryHandler(methodValidateReservation, BookingServiceServer.ValidateReservation)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "roombook/booking/v1/booking.proto",
}

// BookingGRPCService adapts BookingService to BookingServiceServer.
type BookingGRPCService struct {
	booking *service.BookingService
}

func NewBookingGRPCService(booking *service.BookingService) *BookingGRPCService {
	return &BookingGRPCService{booking: booking}
}

type idBody struct {
	ID int64 `json:"id"`
}

type updateBody struct {
	ID int64 `json:"id"`
	reservationPatchBody
}

func (s *BookingGRPCService) CreateReservation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var body reservationBody
	if err := decodeStruct(in, &body); err != nil {
		return nil, grpcError(err)
	}
	req, err := body.toRequest()
	if err != nil {
		return nil, grpcError(err)
	}

	res, err := s.booking.Create(ctx, req, requesterFrom(ctx))
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeResponse(res)
}

func (s *BookingGRPCService) UpdateReservation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var body updateBody
	if err := decodeStruct(in, &body); err != nil {
		return nil, grpcError(err)
	}
	if body.ID <= 0 {
		return nil, grpcError(invalidInput("id is required"))
	}
	patch, err := body.toPatch()
	if err != nil {
		return nil, grpcError(err)
	}

	res, err := s.booking.Update(ctx, body.ID, patch, requesterFrom(ctx))
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeResponse(res)
}

func (s *BookingGRPCService) DeleteReservation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var body idBody
	if err := decodeStruct(in, &body); err != nil {
		return nil, grpcError(err)
	}
	if body.ID <= 0 {
		return nil, grpcError(invalidInput("id is required"))
	}
	if err := s.booking.Delete(ctx, body.ID, requesterFrom(ctx)); err != nil {
		return nil, grpcError(err)
	}
	return encodeResponse(map[string]any{"deleted": true, "id": body.ID})
}

func (s *BookingGRPCService) GetReservation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var body idBody
	if err := decodeStruct(in, &body); err != nil {
		return nil, grpcError(err)
	}
	res, err := s.booking.Get(ctx, body.ID)
	if err != nil {
		return nil, grpcError(err)
	}
	return encodeResponse(res)
}

// ValidateReservation reports rule violations in the response body, as the
// HTTP dry-run endpoint does.
func (s *BookingGRPCService) ValidateReservation(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var body reservationBody
	if err := decodeStruct(in, &body); err != nil {
		return nil, grpcError(err)
	}
	req, err := body.toRequest()
	if err == nil {
		err = s.booking.ValidateRequest(ctx, req, body.ExcludeID)
	}

	var (
		ve *service.ValidationError
		nf *service.NotFoundError
	)
	switch {
	case err == nil:
		return encodeResponse(map[string]any{"valid": true})
	case errors.As(err, &ve), errors.As(err, &nf):
		e := classify(err)
		return encodeResponse(map[string]any{"valid": false, "code": e.Code, "error": e.Message})
	}
	return nil, grpcError(err)
}

func encodeResponse(v any) (*structpb.Struct, error) {
	out, err := encodeStruct(v)
	if err != nil {
		return nil, grpcError(err)
	}
	return out, nil
}
