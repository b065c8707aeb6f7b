package service

import (
	"errors"
	"fmt"

	"roombook/internal/database"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPastDate         = errors.New("reservation date is in the past")
	ErrCapacityExceeded = errors.New("attendee count exceeds room capacity")
	ErrSlotConflict     = errors.New("time slot already reserved")
	ErrForbidden        = errors.New("forbidden")
	ErrStorage          = errors.New("storage failure")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInUse            = errors.New("resource is in use")
)

// NotFoundError reports a missing room, time slot, user or reservation.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func notFound(resource string, key interface{}) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: fmt.Sprint(key)}
}

// ValidationError is a rejected write. Kind is one of ErrPastDate,
// ErrCapacityExceeded, ErrSlotConflict or ErrInvalidInput.
type ValidationError struct {
	Kind   error
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Kind }

func invalid(kind error, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

type ForbiddenError struct {
	Action        string
	ReservationID int64
	UserID        int64
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("user %d may not %s reservation %d", e.UserID, e.Action, e.ReservationID)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// StorageError wraps a backing store failure. It may be transient.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// storeErr classifies an error coming out of the store. Errors that already
// carry a service type pass through.
func storeErr(op string, err error, resource string, key interface{}) error {
	if err == nil {
		return nil
	}

	var (
		nf *NotFoundError
		ve *ValidationError
		fe *ForbiddenError
		se *StorageError
	)
	switch {
	case errors.As(err, &nf), errors.As(err, &ve), errors.As(err, &fe), errors.As(err, &se):
		return err
	case errors.Is(err, database.ErrNotFound):
		return notFound(resource, key)
	}
	return &StorageError{Op: op, Err: err}
}
