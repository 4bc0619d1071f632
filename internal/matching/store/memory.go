package store

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/matching"
)

// Memory mirrors Store's matching rules: case-insensitive containment, longest
// pattern first, newest alias on ties.
type Memory struct {
	mu      sync.RWMutex
	aliases []matching.Alias
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) FindMatch(_ context.Context, ownerID uuid.UUID, rawDescription string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	raw := strings.ToLower(rawDescription)
	best := -1

	for i, a := range m.aliases {
		if a.OwnerID != ownerID || !strings.Contains(raw, strings.ToLower(a.RawPattern)) {
			continue
		}

		if best < 0 || len(a.RawPattern) >= len(m.aliases[best].RawPattern) {
			best = i
		}
	}

	if best < 0 {
		return "", nil
	}

	return m.aliases[best].PreferredDescription, nil
}

func (m *Memory) CreateAlias(_ context.Context, alias matching.Alias) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.aliases = append(m.aliases, alias)

	return nil
}
