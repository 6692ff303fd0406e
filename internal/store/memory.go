package store

import (
	"context"
	"sync"

	"github.com/jpalmerr/tokenwatch/internal/account"
)

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore copies tables on the way in and on the way out, so callers
// never share maps with the store. It also counts saves, which tests use to
// assert that a run persisted exactly once.
type MemoryStore struct {
	mu    sync.RWMutex
	table account.Table
	saves int
}

// NewMemoryStore creates a [MemoryStore] seeded with a copy of initial.
// A nil initial table starts the store empty.
func NewMemoryStore(initial account.Table) *MemoryStore {
	return &MemoryStore{table: initial.Clone()}
}

// Load returns a copy of the current table.
func (m *MemoryStore) Load(ctx context.Context) (account.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.table.Clone(), nil
}

// Save replaces the current table with a copy of table.
func (m *MemoryStore) Save(ctx context.Context, table account.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.table = table.Clone()
	m.saves++
	m.mu.Unlock()
	return nil
}

// Saves returns how many times Save succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
