package quota

import (
	"context"
	"sync"

	"gatekeeper/internal/domain"
)

// MemoryExemptions is a process-local exemption set.
type MemoryExemptions struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewMemoryExemptions returns a set seeded with ids.
func NewMemoryExemptions(ids ...string) *MemoryExemptions {
	m := &MemoryExemptions{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id != "" {
			m.ids[id] = struct{}{}
		}
	}
	return m
}

func (m *MemoryExemptions) Add(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[userID]; ok {
		return false, nil
	}
	m.ids[userID] = struct{}{}
	return true, nil
}

func (m *MemoryExemptions) Remove(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[userID]; !ok {
		return false, nil
	}
	delete(m.ids, userID)
	return true, nil
}

func (m *MemoryExemptions) Contains(_ context.Context, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ids[userID]
	return ok, nil
}

func (m *MemoryExemptions) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.ids))
	for id := range m.ids {
		out = append(out, id)
	}
	return out, nil
}

var _ domain.ExemptionStore = (*MemoryExemptions)(nil)
