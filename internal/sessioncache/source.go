package sessioncache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	"github.com/MrJamesThe3rd/studiobooks/internal/session"
)

type SessionLister interface {
	ListMonth(ctx context.Context, ownerID uuid.UUID, year int, month time.Month) ([]*session.Session, error)
}

type EntryLister interface {
	List(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]*ledger.Entry, error)
}

// NewSource loads a month view from the system of record: the owner's
// sessions scheduled in the month followed by the ledger entries due in it.
func NewSource(ownerID uuid.UUID, sessions SessionLister, entries EntryLister) Source {
	return SourceFunc(func(ctx context.Context, p Period) ([]Item, error) {
		ss, err := sessions.ListMonth(ctx, ownerID, p.Year, p.Month)
		if err != nil {
			return nil, fmt.Errorf("listing sessions: %w", err)
		}

		es, err := entries.List(ctx, ownerID, p.Start(), p.End())
		if err != nil {
			return nil, fmt.Errorf("listing entries: %w", err)
		}

		items := make([]Item, 0, len(ss)+len(es))
		for _, s := range ss {
			items = append(items, SessionItem(s))
		}

		for _, e := range es {
			items = append(items, EntryItem(e))
		}

		return items, nil
	})
}

func SessionItem(s *session.Session) Item {
	return Item{
		ID:         s.ID,
		Kind:       ItemSession,
		Date:       s.ScheduledAt,
		Title:      s.Title,
		Amount:     s.TotalAmount,
		AmountPaid: s.AmountPaid,
		Status:     string(s.PaymentState()),
	}
}

// EntryItem titles installments "Description (i/n)".
func EntryItem(e *ledger.Entry) Item {
	title := e.Description
	if e.InstallmentIndex != nil && e.InstallmentCount != nil {
		title = fmt.Sprintf("%s (%d/%d)", e.Description, *e.InstallmentIndex, *e.InstallmentCount)
	}

	it := Item{
		ID:     e.ID,
		Kind:   ItemEntry,
		Date:   e.DueDate,
		Title:  title,
		Amount: e.Amount,
		Status: string(e.Status),
	}

	if e.Status == ledger.StatusPaid {
		it.AmountPaid = e.Amount
	}

	return it
}
