package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/666daji/Food-Craft-sub000/internal/multiblock"
)

// MemoryStructureStore — in-memory реализация StructureStore.
// Используется в тестах и как бэкенд "memory".
type MemoryStructureStore struct {
	mu     sync.RWMutex
	worlds map[multiblock.WorldID][]multiblock.StructureRecord
	closed bool
}

// NewMemoryStructureStore создаёт пустое хранилище
func NewMemoryStructureStore() *MemoryStructureStore {
	return &MemoryStructureStore{worlds: make(map[multiblock.WorldID][]multiblock.StructureRecord)}
}

func (m *MemoryStructureStore) SaveWorld(_ context.Context, world multiblock.WorldID, records []multiblock.StructureRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	cp := make([]multiblock.StructureRecord, len(records))
	copy(cp, records)
	m.worlds[world] = cp
	return nil
}

func (m *MemoryStructureStore) LoadWorld(_ context.Context, world multiblock.WorldID) ([]multiblock.StructureRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	recs := m.worlds[world]
	cp := make([]multiblock.StructureRecord, len(recs))
	copy(cp, recs)
	return cp, nil
}

func (m *MemoryStructureStore) Worlds(_ context.Context) ([]multiblock.WorldID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	out := make([]multiblock.WorldID, 0, len(m.worlds))
	for id := range m.worlds {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *MemoryStructureStore) DeleteWorld(_ context.Context, world multiblock.WorldID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	delete(m.worlds, world)
	return nil
}

func (m *MemoryStructureStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
