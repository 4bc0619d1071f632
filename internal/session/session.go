package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is a booked photo session. The financial core only ever writes
// AmountPaid; everything else belongs to the scheduling side of the app.
type Session struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	ClientID    uuid.UUID
	Title       string
	ScheduledAt time.Time
	TotalAmount int64 // Amount in cents
	AmountPaid  int64 // Sum of paid installments, in cents
	UpdatedAt   *time.Time
}

// PaymentState summarizes how much of the session has been paid.
type PaymentState string

const (
	PaymentOpen    PaymentState = "open"
	PaymentPartial PaymentState = "partial"
	PaymentSettled PaymentState = "settled"
)

func (s *Session) PaymentState() PaymentState {
	switch {
	case s.AmountPaid <= 0:
		return PaymentOpen
	case s.AmountPaid < s.TotalAmount:
		return PaymentPartial
	default:
		return PaymentSettled
	}
}

// Balance is what is still owed, never negative.
func (s *Session) Balance() int64 {
	return max(s.TotalAmount-s.AmountPaid, 0)
}
