package service

import (
	"fmt"

	"github.com/iliyamo/parish-booking/internal/model"
)

// ValidationError reports missing or malformed input.  Field names the
// offending input using its wire name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// NotFoundError reports an unknown booking id.
type NotFoundError struct {
	Kind model.Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// InvalidTransitionError reports an illegal status change.  The booking is
// left untouched when this is returned.
type InvalidTransitionError struct {
	ID   string
	From model.Status
	To   model.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("booking %s is %s and cannot become %s", e.ID, e.From, e.To)
}

// DateUnavailableError reports that the requested date already has an
// active booking.  Callers may retry with another date.
type DateUnavailableError struct {
	Kind model.Kind
	Date model.Date
}

func (e *DateUnavailableError) Error() string {
	return fmt.Sprintf("%s date %s is already booked", e.Kind, e.Date)
}

// StoreError wraps a persistence failure.  It is not retried here.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }
