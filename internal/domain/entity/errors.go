package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthRequired is returned when the payroll API answers 401
	ErrAuthRequired = errors.New("authentication required")

	// ErrForbidden is returned when the payroll API answers 403
	ErrForbidden = errors.New("forbidden")

	// ErrSuperseded is returned when a newer load of the same month was issued
	// while this one was in flight; the response is discarded
	ErrSuperseded = errors.New("superseded by a newer request")

	// ErrInvalidMonth is returned for month keys that are not YYYY-MM
	ErrInvalidMonth = errors.New("invalid month key")

	// ErrEmployeeNotFound is returned when an employee is not in the displayed list
	ErrEmployeeNotFound = errors.New("employee not found in preview")
)

// ForbiddenMessage is shown when the payroll API denies access
const ForbiddenMessage = "You do not have permission to view payroll previews"

// TransportError covers network failures, timeouts, unexpected status codes
// and undecodable responses from the payroll API
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is or wraps a *TransportError
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
