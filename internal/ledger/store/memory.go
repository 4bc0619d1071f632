package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
)

// Memory is an in-process ledger store used by tests and the TUI demo mode.
type Memory struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]ledger.Entry
	cards   map[uuid.UUID]ledger.Card
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[uuid.UUID]ledger.Entry),
		cards:   make(map[uuid.UUID]ledger.Card),
	}
}

func (m *Memory) Insert(_ context.Context, entries []*ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		m.entries[e.ID] = *e
	}

	return nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}

	return &e, nil
}

func (m *Memory) Update(_ context.Context, id uuid.UUID, patch ledger.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		if patch.FromStatus != nil {
			return ledger.ErrStaleStatus
		}

		return ledger.ErrNotFound
	}

	if patch.FromStatus != nil && e.Status != *patch.FromStatus {
		return ledger.ErrStaleStatus
	}

	if patch.Amount != nil {
		e.Amount = *patch.Amount
	}

	if patch.DueDate != nil {
		e.DueDate = ledger.DateOf(*patch.DueDate)
	}

	if patch.Status != nil {
		e.Status = *patch.Status
	}

	e.UpdatedAt = new(time.Now())
	m.entries[id] = e

	return nil
}

func (m *Memory) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return ledger.ErrNotFound
	}

	delete(m.entries, id)

	return nil
}

func (m *Memory) QueryByDateRange(_ context.Context, ownerID uuid.UUID, from, to time.Time) ([]*ledger.Entry, error) {
	return m.filter(func(e ledger.Entry) bool {
		return e.OwnerID == ownerID && !e.DueDate.Before(from) && !e.DueDate.After(to)
	}), nil
}

func (m *Memory) QueryBySeries(_ context.Context, seriesID uuid.UUID) ([]*ledger.Entry, error) {
	return m.filter(func(e ledger.Entry) bool {
		return e.SeriesID != nil && *e.SeriesID == seriesID
	}), nil
}

func (m *Memory) ListDue(_ context.Context, status ledger.Status, onOrBefore time.Time) ([]*ledger.Entry, error) {
	return m.filter(func(e ledger.Entry) bool {
		return e.Status == status && !e.DueDate.After(onOrBefore)
	}), nil
}

// filter returns copies of the matching entries ordered by due date, then
// installment index.
func (m *Memory) filter(keep func(ledger.Entry) bool) []*ledger.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*ledger.Entry

	for _, e := range m.entries {
		if keep(e) {
			out = append(out, new(e))
		}
	}

	slices.SortFunc(out, func(a, b *ledger.Entry) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}

		return cmp.Compare(index(a), index(b))
	})

	return out
}

func index(e *ledger.Entry) int {
	if e.InstallmentIndex == nil {
		return 0
	}

	return *e.InstallmentIndex
}

func (m *Memory) GetCard(_ context.Context, id uuid.UUID) (*ledger.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.cards[id]
	if !ok {
		return nil, ledger.ErrCardNotFound
	}

	return &c, nil
}

func (m *Memory) CreateCard(_ context.Context, c *ledger.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	m.cards[c.ID] = *c

	return nil
}
