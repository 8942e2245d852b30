package persist

import "sync"

// MemoryStore is a non-durable Store, used in tests and when no database is
// configured.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[uint32]int32
	writes int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[uint32]int32)}
}

func (m *MemoryStore) Exists(key uint32) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.values[key]
	return ok, nil
}

func (m *MemoryStore) Read(key uint32) (int32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return 0, ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Write(key uint32, value int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	m.writes++
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values = make(map[uint32]int32)
	return nil
}

// Writes returns how many writes the store has accepted.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
