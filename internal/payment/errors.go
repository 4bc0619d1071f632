package payment

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("charge not found")

	// ErrPaymentNotFound is the provider answering that it has no such payment.
	ErrPaymentNotFound = errors.New("provider payment not found")

	// ErrIgnoredEvent marks webhook notifications that are not about payments.
	ErrIgnoredEvent = errors.New("event ignored")

	// ErrMalformedEvent marks notifications that can never be processed. They are
	// logged and dropped, never retried.
	ErrMalformedEvent = errors.New("malformed event")

	ErrMalformedReference = errors.New("malformed external reference")

	// ErrTransient is matched by every TransientError.
	ErrTransient = errors.New("transient failure")

	ErrInvalidCharge = errors.New("invalid charge")
	ErrNotPending    = errors.New("charge is not pending")
)

// TransientError reports a failure worth retrying later: the provider was
// unreachable, timed out or answered 5xx.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() []error {
	return []error{ErrTransient, e.Err}
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
