package sessioncache

import (
	"context"
	"sync"
)

// Bus carries encoded envelopes between cache instances of the same owner.
// Delivery is best effort: a lost message only delays convergence until the
// next refresh.
type Bus interface {
	Publish(ctx context.Context, data []byte) error
	Subscribe(ctx context.Context, handle func(data []byte)) (unsubscribe func() error, err error)
}

// MemoryHub is an in-process bus. Every subscriber, the publisher included,
// receives each message in the publisher's goroutine.
type MemoryHub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func([]byte)
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{subs: make(map[int]func([]byte))}
}

func (h *MemoryHub) Publish(_ context.Context, data []byte) error {
	h.mu.RLock()
	handlers := make([]func([]byte), 0, len(h.subs))
	for _, fn := range h.subs {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(data)
	}

	return nil
}

func (h *MemoryHub) Subscribe(_ context.Context, handle func([]byte)) (func() error, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.subs[id] = handle

	return func() error {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()

		return nil
	}, nil
}
