package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps assets in a map. Tests use it to observe puts and deletes
// and to inject failures.
type MemoryStore struct {
	mu        sync.Mutex
	namespace string
	objects   map[string]Upload
	deleted   []string

	PutErr    error
	DeleteErr error
}

func NewMemoryStore(namespace string) *MemoryStore {
	return &MemoryStore{namespace: namespace, objects: map[string]Upload{}}
}

func (m *MemoryStore) Put(_ context.Context, upload Upload) (*Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return nil, m.PutErr
	}
	publicID, filename := newObjectName(m.namespace, upload)
	m.objects[publicID] = upload
	return &Asset{PublicID: publicID, URL: "memory://" + publicID, Filename: filename}, nil
}

func (m *MemoryStore) Delete(_ context.Context, publicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, publicID)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.objects, publicID)
	return nil
}

// Has reports whether publicID is currently stored.
func (m *MemoryStore) Has(publicID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[publicID]
	return ok
}

// Deleted lists every public id passed to Delete, including failed attempts.
func (m *MemoryStore) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

// Len is the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
