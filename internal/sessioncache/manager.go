// Package sessioncache keeps a month-keyed read cache of session and ledger
// rows for interactive clients. It is never the system of record: callers
// write to the store first and then mirror the change here. Instances of the
// same owner keep each other in sync over a Bus.
package sessioncache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrClosed = errors.New("session cache closed")

const (
	DefaultTTL          = 5 * time.Minute
	DefaultRefreshDelay = 2 * time.Second

	refreshTimeout = 30 * time.Second
)

type Option func(*Manager)

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithRefreshDelay sets how long mutations of a period are coalesced before
// the period is silently reloaded.
func WithRefreshDelay(d time.Duration) Option {
	return func(m *Manager) { m.refreshDelay = d }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithOriginID overrides the random instance id stamped on published messages.
func WithOriginID(id string) Option {
	return func(m *Manager) { m.origin = id }
}

type entry struct {
	items       []Item
	refreshedAt time.Time
}

type Manager struct {
	source       Source
	bus          Bus
	origin       string
	ttl          time.Duration
	refreshDelay time.Duration
	now          func() time.Time
	logger       *slog.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func() error

	mu      sync.Mutex
	entries map[Period]*entry
	pending map[Period]*time.Timer
	closed  bool
}

// New builds a cache over source and subscribes it to bus. bus may be nil for
// a standalone instance.
func New(source Source, bus Bus, opts ...Option) (*Manager, error) {
	m := &Manager{
		source:       source,
		bus:          bus,
		origin:       uuid.NewString(),
		ttl:          DefaultTTL,
		refreshDelay: DefaultRefreshDelay,
		now:          time.Now,
		logger:       slog.Default(),
		entries:      make(map[Period]*entry),
		pending:      make(map[Period]*time.Timer),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())

	if bus != nil {
		unsubscribe, err := bus.Subscribe(m.ctx, m.receive)
		if err != nil {
			m.cancel()
			return nil, fmt.Errorf("subscribing to cache bus: %w", err)
		}

		m.unsubscribe = unsubscribe
	}

	return m, nil
}

func (m *Manager) OriginID() string {
	return m.origin
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Get returns the items of a month, loading them from the source when the
// period is missing, older than the TTL or forceRefresh is set.
func (m *Manager) Get(ctx context.Context, year int, month time.Month, forceRefresh bool) ([]Item, error) {
	p := Period{Year: year, Month: month}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}

	if e, ok := m.entries[p]; ok && !forceRefresh && m.now().Sub(e.refreshedAt) < m.ttl {
		items := slices.Clone(e.items)
		m.mu.Unlock()

		return items, nil
	}
	m.mu.Unlock()

	return m.load(ctx, p)
}

// Peek returns what is cached for p without touching the source.
func (m *Manager) Peek(p Period) ([]Item, time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[p]
	if !ok {
		return nil, time.Time{}, false
	}

	return slices.Clone(e.items), e.refreshedAt, true
}

// Preload loads the previous, current and next month.
func (m *Manager) Preload(ctx context.Context) error {
	current := PeriodOf(m.now())

	var errs []error

	for _, p := range []Period{current.Add(-1), current, current.Add(1)} {
		if _, err := m.load(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// AddItem merges a freshly stored item into its month and schedules a silent
// refresh of that month.
func (m *Manager) AddItem(item Item) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}

	p := m.addLocked(item)
	m.scheduleRefreshLocked(p)
	m.mu.Unlock()

	m.publish(m.ctx, ItemAdded{Item: item})

	return nil
}

// UpdateItem applies patch to the cached item. An item whose date moves to
// another month is moved along with it.
func (m *Manager) UpdateItem(id uuid.UUID, patch ItemPatch) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}

	for _, p := range m.patchLocked(id, patch) {
		m.scheduleRefreshLocked(p)
	}
	m.mu.Unlock()

	m.publish(m.ctx, ItemUpdated{ID: id, Patch: patch})

	return nil
}

func (m *Manager) RemoveItem(id uuid.UUID) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}

	if p, ok := m.removeLocked(id); ok {
		m.scheduleRefreshLocked(p)
	}
	m.mu.Unlock()

	m.publish(m.ctx, ItemRemoved{ID: id})

	return nil
}

// Invalidate drops a month here and in every other instance.
func (m *Manager) Invalidate(year int, month time.Month) error {
	p := Period{Year: year, Month: month}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}

	m.dropLocked(p)
	m.mu.Unlock()

	m.publish(m.ctx, Invalidated{Period: p})

	return nil
}

// Close evicts everything, stops pending refreshes and leaves the bus.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}

	m.closed = true

	for p, t := range m.pending {
		t.Stop()
		delete(m.pending, p)
	}

	clear(m.entries)
	m.mu.Unlock()

	m.cancel()

	if m.unsubscribe != nil {
		if err := m.unsubscribe(); err != nil {
			return fmt.Errorf("leaving cache bus: %w", err)
		}
	}

	return nil
}

func (m *Manager) load(ctx context.Context, p Period) ([]Item, error) {
	items, err := m.source.Load(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", p, err)
	}

	items = slices.Clone(items)
	sortItems(items)

	at := m.now()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}

	m.entries[p] = &entry{items: items, refreshedAt: at}
	m.mu.Unlock()

	m.publish(ctx, CacheUpdated{Period: p, Items: items, RefreshedAt: at})

	return slices.Clone(items), nil
}

func (m *Manager) scheduleRefreshLocked(p Period) {
	if _, ok := m.entries[p]; !ok {
		return
	}

	if _, ok := m.pending[p]; ok {
		return
	}

	m.pending[p] = time.AfterFunc(m.refreshDelay, func() { m.silentRefresh(p) })
}

func (m *Manager) silentRefresh(p Period) {
	m.mu.Lock()
	delete(m.pending, p)
	_, cached := m.entries[p]
	closed := m.closed
	m.mu.Unlock()

	if closed || !cached {
		return
	}

	ctx, cancel := context.WithTimeout(m.ctx, refreshTimeout)
	defer cancel()

	if _, err := m.load(ctx, p); err != nil && !errors.Is(err, ErrClosed) {
		m.logger.Warn("silent cache refresh failed", "period", p.String(), "error", err)
	}
}

func (m *Manager) addLocked(item Item) Period {
	p := PeriodOf(item.Date)

	e, ok := m.entries[p]
	if !ok {
		return p
	}

	items := slices.DeleteFunc(slices.Clone(e.items), func(it Item) bool { return it.ID == item.ID })
	items = append(items, item)
	sortItems(items)
	e.items = items

	return p
}

// removeLocked drops the item from whichever month holds it.
func (m *Manager) removeLocked(id uuid.UUID) (Period, bool) {
	for p, e := range m.entries {
		idx := slices.IndexFunc(e.items, func(it Item) bool { return it.ID == id })
		if idx < 0 {
			continue
		}

		e.items = slices.Delete(slices.Clone(e.items), idx, idx+1)

		return p, true
	}

	return Period{}, false
}

// patchLocked returns the months whose content changed.
func (m *Manager) patchLocked(id uuid.UUID, patch ItemPatch) []Period {
	var found *Item

	for _, e := range m.entries {
		if idx := slices.IndexFunc(e.items, func(it Item) bool { return it.ID == id }); idx >= 0 {
			found = new(e.items[idx])
			break
		}
	}

	if found == nil {
		return nil
	}

	from, _ := m.removeLocked(id)
	updated := patch.apply(*found)
	to := m.addLocked(updated)

	if from == to {
		return []Period{from}
	}

	return []Period{from, to}
}

func (m *Manager) dropLocked(p Period) {
	delete(m.entries, p)

	if t, ok := m.pending[p]; ok {
		t.Stop()
		delete(m.pending, p)
	}
}

func (m *Manager) receive(data []byte) {
	env, msg, err := DecodeMessage(data)
	if err != nil {
		m.logger.Warn("dropping cache message", "error", err)
		return
	}

	if env.OriginID == m.origin {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	switch msg := msg.(type) {
	case CacheUpdated:
		if e, ok := m.entries[msg.Period]; ok && !msg.RefreshedAt.After(e.refreshedAt) {
			return
		}

		items := slices.Clone(msg.Items)
		sortItems(items)
		m.entries[msg.Period] = &entry{items: items, refreshedAt: msg.RefreshedAt}
	case ItemAdded:
		m.scheduleRefreshLocked(m.addLocked(msg.Item))
	case ItemUpdated:
		for _, p := range m.patchLocked(msg.ID, msg.Patch) {
			m.scheduleRefreshLocked(p)
		}
	case ItemRemoved:
		if p, ok := m.removeLocked(msg.ID); ok {
			m.scheduleRefreshLocked(p)
		}
	case Invalidated:
		m.dropLocked(msg.Period)
	}
}

func (m *Manager) publish(ctx context.Context, msg Message) {
	if m.bus == nil {
		return
	}

	data, err := EncodeMessage(m.origin, m.now(), msg)
	if err != nil {
		m.logger.Error("encoding cache message", "action", msg.Action(), "error", err)
		return
	}

	if err := m.bus.Publish(ctx, data); err != nil {
		m.logger.Warn("publishing cache message failed", "action", msg.Action(), "error", err)
	}
}
