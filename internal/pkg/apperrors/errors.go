// internal/pkg/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the domain services. Handlers map these to HTTP
// responses; services wrap them with context via fmt.Errorf and %w so callers
// can still branch with errors.Is.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a concurrent conflicting mutation was detected.
	ErrConflict = errors.New("conflicting concurrent modification")

	// ErrStorage indicates an underlying persistence failure. No partial
	// mutation is left visible when a service returns it.
	ErrStorage = errors.New("storage failure")

	// ErrInvalidTransition indicates an illegal order state-machine move.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAlreadyTerminal indicates an issue was reported on an order that is
	// already cancelled or refunded.
	ErrAlreadyTerminal = errors.New("order already in terminal status")

	// ErrRefundFailed indicates the payment gateway could not reverse the
	// charge. The order's fulfillment status is left unchanged.
	ErrRefundFailed = errors.New("payment reversal failed")

	// ErrNotEligible indicates a review was submitted against an order that
	// is not eligible (wrong owner or not delivered).
	ErrNotEligible = errors.New("not eligible for review")

	// ErrValidation indicates the request payload failed business validation.
	ErrValidation = errors.New("validation failed")
)

// Storagef wraps a persistence error with context and tags it as ErrStorage.
func Storagef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrStorage, fmt.Sprintf(format, args...))
}

// Validationf builds a validation error with a human-readable message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
