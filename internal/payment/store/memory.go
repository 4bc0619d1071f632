package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/studiobooks/internal/ledger/store"
	"github.com/MrJamesThe3rd/studiobooks/internal/payment"
	receivableStore "github.com/MrJamesThe3rd/studiobooks/internal/receivable/store"
)

// Memory keeps charges in process and writes payment lines and ledger entries
// through the other memory stores, mirroring the single database transaction
// of Store.
type Memory struct {
	txMu    sync.Mutex
	mu      sync.RWMutex
	charges map[uuid.UUID]payment.Charge
	plans   *receivableStore.Memory
	entries *ledgerStore.Memory
}

func NewMemory(plans *receivableStore.Memory, entries *ledgerStore.Memory) *Memory {
	return &Memory{
		charges: make(map[uuid.UUID]payment.Charge),
		plans:   plans,
		entries: entries,
	}
}

func (m *Memory) CreateCharge(_ context.Context, c *payment.Charge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	c.CreatedAt = time.Now()
	m.charges[c.ID] = *c

	return nil
}

func (m *Memory) GetCharge(_ context.Context, id uuid.UUID) (*payment.Charge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.charges[id]
	if !ok {
		return nil, payment.ErrNotFound
	}

	return &c, nil
}

// first returns the newest charge accepted by keep.
func (m *Memory) first(keep func(payment.Charge) bool) (*payment.Charge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *payment.Charge

	for _, c := range m.charges {
		if !keep(c) {
			continue
		}

		if found == nil || c.CreatedAt.After(found.CreatedAt) {
			found = new(c)
		}
	}

	if found == nil {
		return nil, payment.ErrNotFound
	}

	return found, nil
}

func (m *Memory) FindByProviderPaymentID(_ context.Context, providerPaymentID string) (*payment.Charge, error) {
	return m.first(func(c payment.Charge) bool {
		return c.ProviderPaymentID != nil && *c.ProviderPaymentID == providerPaymentID
	})
}

func (m *Memory) FindByPreferenceID(_ context.Context, preferenceID string) (*payment.Charge, error) {
	return m.first(func(c payment.Charge) bool {
		return c.ProviderPreferenceID != nil && *c.ProviderPreferenceID == preferenceID
	})
}

func (m *Memory) FindLatestPending(_ context.Context, ref payment.Reference) (*payment.Charge, error) {
	return m.first(func(c payment.Charge) bool {
		if c.Status != payment.StatusPending || c.OwnerID != ref.OwnerID || c.ClientID != ref.ClientID {
			return false
		}

		return ref.SessionID == nil || (c.SessionID != nil && *c.SessionID == *ref.SessionID)
	})
}

func (m *Memory) ListCharges(_ context.Context, ownerID uuid.UUID, status *payment.Status) ([]*payment.Charge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*payment.Charge

	for _, c := range m.charges {
		if c.OwnerID == ownerID && (status == nil || c.Status == *status) {
			out = append(out, new(c))
		}
	}

	slices.SortFunc(out, func(a, b *payment.Charge) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return out, nil
}

func (m *Memory) BeginReconcile(_ context.Context) (payment.ReconcileTx, error) {
	m.txMu.Lock()

	return &memoryReconcileTx{
		MemoryTx: m.plans.Begin(),
		m:        m,
		staged:   make(map[uuid.UUID]payment.Charge),
		patches:  make(map[uuid.UUID]ledger.Patch),
	}, nil
}

type memoryReconcileTx struct {
	*receivableStore.MemoryTx
	m       *Memory
	staged  map[uuid.UUID]payment.Charge
	patches map[uuid.UUID]ledger.Patch
	done    bool
}

func (t *memoryReconcileTx) LockCharge(ctx context.Context, id uuid.UUID) (*payment.Charge, error) {
	if c, ok := t.staged[id]; ok {
		return &c, nil
	}

	return t.m.GetCharge(ctx, id)
}

func (t *memoryReconcileTx) SetChargeStatus(ctx context.Context, id uuid.UUID, status payment.Status, providerPaymentID string) error {
	c, err := t.LockCharge(ctx, id)
	if err != nil {
		return err
	}

	c.Status = status
	if providerPaymentID != "" {
		c.ProviderPaymentID = &providerPaymentID
	}

	c.UpdatedAt = new(time.Now())
	t.staged[id] = *c

	return nil
}

func (t *memoryReconcileTx) LockEntry(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	e, err := t.m.entries.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if p, ok := t.patches[id]; ok && p.Status != nil {
		e.Status = *p.Status
	}

	return e, nil
}

// UpdateEntry checks the patch's FromStatus now and applies the patch on commit.
func (t *memoryReconcileTx) UpdateEntry(ctx context.Context, id uuid.UUID, patch ledger.Patch) error {
	e, err := t.LockEntry(ctx, id)
	if err != nil {
		return err
	}

	if patch.FromStatus != nil && e.Status != *patch.FromStatus {
		return ledger.ErrStaleStatus
	}

	t.patches[id] = patch

	return nil
}

func (t *memoryReconcileTx) Commit() error {
	if t.done {
		return nil
	}

	for id, p := range t.patches {
		if err := t.m.entries.Update(context.Background(), id, p); err != nil {
			t.Rollback()
			return err
		}
	}

	t.m.mu.Lock()
	for id, c := range t.staged {
		t.m.charges[id] = c
	}
	t.m.mu.Unlock()

	err := t.MemoryTx.Commit()
	t.finish()

	return err
}

func (t *memoryReconcileTx) Rollback() error {
	if t.done {
		return nil
	}

	err := t.MemoryTx.Rollback()
	t.finish()

	return err
}

func (t *memoryReconcileTx) finish() {
	t.done = true
	t.m.txMu.Unlock()
}
