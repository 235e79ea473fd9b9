package services

import (
	"errors"
	"fmt"
)

// ValidationError is a caller mistake: missing or malformed input.
type ValidationError struct{ Message string }

func (e *ValidationError) Error() string { return e.Message }

// ConflictError reports a lost uniqueness race, e.g. a taken username.
type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

// NotFoundError reports a missing target such as an unknown friend code.
type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// ResourceExhaustedError is returned when the user has no energy left.
type ResourceExhaustedError struct {
	Energy         int
	EnergyTS       int64
	NextRechargeAt int64
}

func (e *ResourceExhaustedError) Error() string {
	return fmt.Sprintf("no energy left, next recharge at %d", e.NextRechargeAt)
}

// UpstreamError wraps a failure of the identity provider or object store.
// CallerFault marks errors caused by the request (bad password, unknown code).
type UpstreamError struct {
	Message     string
	CallerFault bool
	Cause       error
}

func (e *UpstreamError) Error() string { return e.Message }
func (e *UpstreamError) Unwrap() error { return e.Cause }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsCallerError reports whether err should be answered with a 4xx status.
func IsCallerError(err error) bool {
	var (
		ve *ValidationError
		ce *ConflictError
		ne *NotFoundError
		re *ResourceExhaustedError
		ue *UpstreamError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &ce), errors.As(err, &ne), errors.As(err, &re):
		return true
	case errors.As(err, &ue):
		return ue.CallerFault
	}
	return false
}
