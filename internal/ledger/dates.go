package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Date returns the calendar date as UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf drops the clock part of t, keeping its calendar date.
func DateOf(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// AddMonths moves base n months forward keeping its day-of-month, clamped to
// the last day of the target month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(base time.Time, n int) time.Time {
	return dayInMonth(base.Year(), base.Month()+time.Month(n), base.Day())
}

// dayInMonth normalizes year/month overflow and clamps day to the month length.
func dayInMonth(year int, month time.Month, day int) time.Time {
	first := Date(year, month, 1)
	last := first.AddDate(0, 1, -1).Day()

	return Date(first.Year(), first.Month(), min(day, last))
}

// FirstInvoice returns the due date of the card statement a purchase lands on.
// A purchase on or after the closing day misses the statement closing that month
// and is billed on the due day two months later; before it, one month later.
func FirstInvoice(card *Card, purchase time.Time) time.Time {
	offset := 1
	if purchase.Day() >= card.ClosingDay {
		offset = 2
	}

	return dayInMonth(purchase.Year(), purchase.Month()+time.Month(offset), card.DueDay)
}

// StatementID identifies a card statement by card and due month.
func StatementID(cardID uuid.UUID, due time.Time) string {
	return fmt.Sprintf("%s:%04d-%02d", cardID, due.Year(), int(due.Month()))
}
