// Package storage implements the host-side persistence boundary: a single
// opaque state blob written as a whole on every mutation. Backends share the
// StateStore interface; the engine never sees partial or incremental writes.
package storage

import (
	"context"
	"sync"
)

// StateStore persists the keyring's aggregate state blob. Load returns nil
// bytes (and no error) when nothing has been persisted yet.
type StateStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
}

// MemoryStore is an in-process StateStore used in tests and for ephemeral
// deployments.
type MemoryStore struct {
	mu   sync.Mutex
	blob []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored blob, or nil if nothing was saved yet.
func (m *MemoryStore) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blob == nil {
		return nil, nil
	}
	out := make([]byte, len(m.blob))
	copy(out, m.blob)
	return out, nil
}

// Save replaces the stored blob.
func (m *MemoryStore) Save(_ context.Context, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob = make([]byte, len(blob))
	copy(m.blob, blob)
	return nil
}
