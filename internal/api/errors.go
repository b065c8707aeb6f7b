package api

import (
	"errors"
	"net/http"

	"roombook/internal/service"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// apiError is the transport view of a service error.
type apiError struct {
	HTTPStatus int
	GRPCCode   codes.Code
	Code       string
	Message    string
}

func classify(err error) apiError {
	msg := err.Error()
	switch {
	case errors.Is(err, service.ErrNotFound):
		return apiError{http.StatusNotFound, codes.NotFound, "not_found", msg}
	case errors.Is(err, service.ErrPastDate):
		return apiError{http.StatusBadRequest, codes.FailedPrecondition, "past_date", msg}
	case errors.Is(err, service.ErrCapacityExceeded):
		return apiError{http.StatusBadRequest, codes.FailedPrecondition, "capacity_exceeded", msg}
	case errors.Is(err, service.ErrSlotConflict):
		return apiError{http.StatusConflict, codes.AlreadyExists, "slot_conflict", msg}
	case errors.Is(err, service.ErrInvalidInput):
		return apiError{http.StatusBadRequest, codes.InvalidArgument, "invalid_input", msg}
	case errors.Is(err, service.ErrForbidden), errors.Is(err, errPermissionDenied):
		return apiError{http.StatusForbidden, codes.PermissionDenied, "forbidden", msg}
	case errors.Is(err, service.ErrInUse):
		return apiError{http.StatusConflict, codes.FailedPrecondition, "in_use", msg}
	case errors.Is(err, service.ErrStorage):
		// store details stay in the logs
		return apiError{http.StatusInternalServerError, codes.Unavailable, "storage_error", service.ErrStorage.Error()}
	case errors.Is(err, errMissingCredentials), errors.Is(err, errInvalidAPIKey), errors.Is(err, errInvalidExtra):
		return apiError{http.StatusUnauthorized, codes.Unauthenticated, "unauthenticated", msg}
	}
	return apiError{http.StatusInternalServerError, codes.Internal, "internal", "internal error"}
}

// grpcError converts a service error into a gRPC status.
func grpcError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	e := classify(err)
	return status.Error(e.GRPCCode, e.Message)
}
