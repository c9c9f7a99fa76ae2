package review

import (
	"errors"
	"fmt"
)

var (
	// ErrInFlight is returned when a decision for the same entity is still outstanding
	ErrInFlight = errors.New("a decision for this entity is already in progress")
	// ErrReversalWindowClosed is returned when a reversal is no longer offered
	ErrReversalWindowClosed = errors.New("reversal window has closed")
	// ErrInvalidTransition is returned for approve/reject on an entity that is not pending
	ErrInvalidTransition = errors.New("entity is not pending")
	// ErrUnknownEntity is returned for ids missing from the current snapshot
	ErrUnknownEntity = errors.New("entity not found")
	// ErrClosed is returned once the controller has been closed
	ErrClosed = errors.New("review controller closed")
)

// ValidationError is an operator input problem caught before any remote call
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
