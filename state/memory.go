package state

import (
	"context"
	"sync"
)

// Ensure both stores implement Store at compile time.
var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// MemoryStore keeps the record in memory. Safe for concurrent access.
// Intended for unit testing and development.
type MemoryStore struct {
	mu       sync.RWMutex
	st       *State
	accounts int
}

// NewMemoryStore returns an empty MemoryStore for a pool of accounts accounts.
func NewMemoryStore(accounts int) *MemoryStore {
	return &MemoryStore{accounts: accounts}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context) *State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.st == nil {
		return Default(m.accounts)
	}
	return m.st.Clone()
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, st *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = st.Clone()
	return nil
}
