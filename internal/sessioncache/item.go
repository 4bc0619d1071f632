package sessioncache

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Period is one calendar month.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Start is midnight UTC of the first day of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the last instant of the period.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0).Add(-time.Nanosecond)
}

func (p Period) Add(months int) Period {
	return PeriodOf(p.Start().AddDate(0, months, 0))
}

type ItemKind string

const (
	ItemSession ItemKind = "session"
	ItemEntry   ItemKind = "entry"
)

// Item is one row of a month view: a session with its payment state or a
// ledger entry.
type Item struct {
	ID         uuid.UUID `json:"id"`
	Kind       ItemKind  `json:"kind"`
	Date       time.Time `json:"date"`
	Title      string    `json:"title"`
	Amount     int64     `json:"amount"`
	AmountPaid int64     `json:"amount_paid"`
	Status     string    `json:"status"`
}

// ItemPatch lists the fields UpdateItem changes. Nil fields are left alone.
type ItemPatch struct {
	Date       *time.Time `json:"date,omitempty"`
	Title      *string    `json:"title,omitempty"`
	Amount     *int64     `json:"amount,omitempty"`
	AmountPaid *int64     `json:"amount_paid,omitempty"`
	Status     *string    `json:"status,omitempty"`
}

func (p ItemPatch) apply(it Item) Item {
	if p.Date != nil {
		it.Date = *p.Date
	}

	if p.Title != nil {
		it.Title = *p.Title
	}

	if p.Amount != nil {
		it.Amount = *p.Amount
	}

	if p.AmountPaid != nil {
		it.AmountPaid = *p.AmountPaid
	}

	if p.Status != nil {
		it.Status = *p.Status
	}

	return it
}

func sortItems(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}

		return strings.Compare(a.ID.String(), b.ID.String())
	})
}

// Source loads the authoritative items of a period.
type Source interface {
	Load(ctx context.Context, p Period) ([]Item, error)
}

type SourceFunc func(ctx context.Context, p Period) ([]Item, error)

func (f SourceFunc) Load(ctx context.Context, p Period) ([]Item, error) {
	return f(ctx, p)
}
