package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps objects in process memory. The server falls back to it
// when no bucket is configured; objects do not survive a restart.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, prefix, contentType string, data []byte) (string, error) {
	key, err := newKey(prefix, contentType)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return key, nil
}

func (m *MemoryStore) Delete(_ context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	if foreign(ref) {
		return ErrForeignRef
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, ref)
	return nil
}

// Has reports whether ref is stored.
func (m *MemoryStore) Has(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[ref]
	return ok
}
