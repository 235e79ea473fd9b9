package store

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

var (
	// ErrNotFound is returned when a keyed row does not exist.
	ErrNotFound = errors.New("item not found")
	// ErrConflict is returned when a conditional write lost against a concurrent one.
	ErrConflict = errors.New("conditional write conflict")
)

// RetryableError marks throttling failures that may succeed on a later attempt.
type RetryableError struct{ Cause error }

func (e *RetryableError) Error() string { return fmt.Sprintf("retryable: %v", e.Cause) }
func (e *RetryableError) Unwrap() error { return e.Cause }

// Classify maps DynamoDB API errors onto the store's sentinel errors.
// Conflicts keep the original error in the chain.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var api smithy.APIError
	if errors.As(err, &api) {
		switch api.ErrorCode() {
		case "ConditionalCheckFailedException", "TransactionCanceledException":
			return fmt.Errorf("%w: %w", ErrConflict, err)
		case "ProvisionedThroughputExceededException", "ThrottlingException", "RequestLimitExceeded":
			return &RetryableError{Cause: err}
		}
	}
	return err
}

// IsRetryable reports whether err was classified as throttling.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
