package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/session"
)

// Memory keeps sessions in process. The receivable memory store writes
// AmountPaid through it so both views stay in step.
type Memory struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]session.Session
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[uuid.UUID]session.Session)}
}

func (m *Memory) Create(_ context.Context, sess *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}

	m.sessions[sess.ID] = *sess

	return nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}

	return &sess, nil
}

func (m *Memory) ListByPeriod(_ context.Context, ownerID uuid.UUID, from, to time.Time) ([]*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*session.Session

	for _, sess := range m.sessions {
		if sess.OwnerID != ownerID || sess.ScheduledAt.Before(from) || sess.ScheduledAt.After(to) {
			continue
		}

		out = append(out, new(sess))
	}

	slices.SortFunc(out, func(a, b *session.Session) int {
		return a.ScheduledAt.Compare(b.ScheduledAt)
	})

	return out, nil
}

func (m *Memory) UpdateAmountPaid(_ context.Context, id uuid.UUID, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return session.ErrNotFound
	}

	sess.AmountPaid = amount
	sess.UpdatedAt = new(time.Now())
	m.sessions[id] = sess

	return nil
}

// Exists reports whether the session is known.
func (m *Memory) Exists(id uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.sessions[id]

	return ok
}

// TotalAmount returns the session's total, or 0 if unknown.
func (m *Memory) TotalAmount(id uuid.UUID) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sessions[id].TotalAmount
}
