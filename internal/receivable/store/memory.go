package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/receivable"
	"github.com/MrJamesThe3rd/studiobooks/internal/session"
	sessionStore "github.com/MrJamesThe3rd/studiobooks/internal/session/store"
)

// Memory is an in-process plan store. Transactions are serialized and work on
// a private copy that replaces the shared state on Commit.
type Memory struct {
	txMu     sync.Mutex
	mu       sync.RWMutex
	plans    map[uuid.UUID]*receivable.Plan
	sessions *sessionStore.Memory
}

func NewMemory(sessions *sessionStore.Memory) *Memory {
	return &Memory{
		plans:    make(map[uuid.UUID]*receivable.Plan),
		sessions: sessions,
	}
}

func clonePlan(p *receivable.Plan) *receivable.Plan {
	c := *p
	c.Installments = make([]*receivable.Installment, len(p.Installments))

	for i, inst := range p.Installments {
		c.Installments[i] = new(*inst)
	}

	return &c
}

func (m *Memory) snapshot() map[uuid.UUID]*receivable.Plan {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[uuid.UUID]*receivable.Plan, len(m.plans))
	for id, p := range m.plans {
		out[id] = clonePlan(p)
	}

	return out
}

func (m *Memory) ListPlans(_ context.Context, sessionID uuid.UUID) ([]*receivable.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*receivable.Plan

	for _, p := range m.plans {
		if p.SessionID == sessionID {
			out = append(out, clonePlan(p))
		}
	}

	slices.SortFunc(out, func(a, b *receivable.Plan) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	for _, p := range out {
		slices.SortStableFunc(p.Installments, func(a, b *receivable.Installment) int {
			return cmp.Compare(a.InstallmentNumber, b.InstallmentNumber)
		})
	}

	return out, nil
}

func (m *Memory) BeginPlan(ctx context.Context, sessionID uuid.UUID) (receivable.PlanTx, error) {
	mtx := m.Begin()
	if err := mtx.LockSession(ctx, sessionID); err != nil {
		mtx.Rollback()
		return nil, err
	}

	return mtx, nil
}

// Begin opens a transaction without checking any session.
func (m *Memory) Begin() *MemoryTx {
	m.txMu.Lock()

	return &MemoryTx{
		m:     m,
		plans: m.snapshot(),
		paid:  make(map[uuid.UUID]int64),
	}
}

type MemoryTx struct {
	m     *Memory
	plans map[uuid.UUID]*receivable.Plan
	paid  map[uuid.UUID]int64
	done  bool
}

func (t *MemoryTx) Commit() error {
	if t.done {
		return nil
	}

	t.m.mu.Lock()
	t.m.plans = t.plans
	t.m.mu.Unlock()

	for id, amount := range t.paid {
		if err := t.m.sessions.UpdateAmountPaid(context.Background(), id, amount); err != nil {
			t.finish()
			return err
		}
	}

	t.finish()

	return nil
}

func (t *MemoryTx) Rollback() error {
	if !t.done {
		t.finish()
	}

	return nil
}

func (t *MemoryTx) finish() {
	t.done = true
	t.m.txMu.Unlock()
}

func (t *MemoryTx) LockSession(_ context.Context, sessionID uuid.UUID) error {
	if !t.m.sessions.Exists(sessionID) {
		return session.ErrNotFound
	}

	return nil
}

func (t *MemoryTx) ClearScheduled(_ context.Context, sessionID uuid.UUID) error {
	for id, p := range t.plans {
		if p.SessionID != sessionID || p.Kind != receivable.KindScheduled {
			continue
		}

		p.Installments = slices.DeleteFunc(p.Installments, func(i *receivable.Installment) bool {
			return !i.IsPaid()
		})

		if len(p.Installments) == 0 {
			delete(t.plans, id)
		}
	}

	return nil
}

func (t *MemoryTx) CreatePlan(_ context.Context, plan *receivable.Plan) error {
	plan.ID = uuid.New()
	plan.CreatedAt = time.Now()

	for _, inst := range plan.Installments {
		inst.ID = uuid.New()
		inst.PlanID = plan.ID
	}

	t.plans[plan.ID] = clonePlan(plan)

	return nil
}

func (t *MemoryTx) AppendQuickPayment(ctx context.Context, inst *receivable.Installment, clientID uuid.UUID, sessionTotal int64) error {
	if inst.ProviderPaymentID != nil {
		exists, _ := t.PaymentLineExists(ctx, *inst.ProviderPaymentID)
		if exists {
			return receivable.ErrDuplicatePayment
		}
	}

	var quick *receivable.Plan

	for _, p := range t.plans {
		if p.SessionID == inst.SessionID && p.Kind == receivable.KindQuick {
			quick = p
			break
		}
	}

	if quick == nil {
		if !t.m.sessions.Exists(inst.SessionID) {
			return session.ErrNotFound
		}

		if sessionTotal == 0 {
			sessionTotal = t.m.sessions.TotalAmount(inst.SessionID)
		}

		quick = &receivable.Plan{
			ID:          uuid.New(),
			SessionID:   inst.SessionID,
			ClientID:    clientID,
			TotalAmount: sessionTotal,
			Mode:        receivable.ModeFull,
			Kind:        receivable.KindQuick,
			CreatedAt:   time.Now(),
		}
		t.plans[quick.ID] = quick
	}

	inst.ID = uuid.New()
	inst.PlanID = quick.ID
	quick.Installments = append(quick.Installments, new(*inst))

	return nil
}

func (t *MemoryTx) PaymentLineExists(_ context.Context, providerPaymentID string) (bool, error) {
	for _, p := range t.plans {
		for _, inst := range p.Installments {
			if inst.ProviderPaymentID != nil && *inst.ProviderPaymentID == providerPaymentID {
				return true, nil
			}
		}
	}

	return false, nil
}

func (t *MemoryTx) RecomputeAmountPaid(_ context.Context, sessionID uuid.UUID) (int64, error) {
	if !t.m.sessions.Exists(sessionID) {
		return 0, session.ErrNotFound
	}

	var plans []*receivable.Plan

	for _, p := range t.plans {
		if p.SessionID == sessionID {
			plans = append(plans, p)
		}
	}

	paid := receivable.PaidTotal(plans)
	t.paid[sessionID] = paid

	return paid, nil
}

func (t *MemoryTx) DeleteSessionData(_ context.Context, sessionID uuid.UUID, preservePaid bool) error {
	for id, p := range t.plans {
		if p.SessionID != sessionID {
			continue
		}

		if preservePaid {
			p.Installments = slices.DeleteFunc(p.Installments, func(i *receivable.Installment) bool {
				return !i.IsPaid()
			})
		}

		if !preservePaid || len(p.Installments) == 0 {
			delete(t.plans, id)
		}
	}

	return nil
}
