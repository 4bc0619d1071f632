package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("ledger entry not found")
	ErrCardNotFound = errors.New("card not found")

	// ErrInvalidIntent is wrapped by every ValidationError.
	ErrInvalidIntent = errors.New("invalid charge intent")

	// ErrInvalidTransition is returned when a status change would leave a terminal
	// state or move backwards.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStaleStatus is returned by conditional updates whose FromStatus no longer matches.
	ErrStaleStatus = errors.New("entry status changed concurrently")

	// ErrSeriesSumMismatch flags a series whose amounts do not add up to the
	// requested total. It is reported, never repaired.
	ErrSeriesSumMismatch = errors.New("series sum mismatch")
)

// ValidationError describes why an intent was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidIntent
}

// TransitionError carries the offending statuses.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move entry from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
