package session

import (
	"sync"
)

// MockStore keeps artifacts in memory for tests
type MockStore struct {
	artifacts map[string]*Artifact
	mu        sync.RWMutex

	// Error injection for testing
	SaveError   error
	LoadError   error
	DeleteError error
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{artifacts: make(map[string]*Artifact)}
}

func (m *MockStore) Save(a *Artifact) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	if a == nil || a.Name == "" {
		return ErrInvalid
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.artifacts[a.Name] = &cp
	return nil
}

func (m *MockStore) Load(name string) (*Artifact, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.artifacts[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockStore) Delete(name string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.artifacts[name]; !ok {
		return ErrNotFound
	}
	delete(m.artifacts, name)
	return nil
}

func (m *MockStore) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.artifacts[name]
	return ok
}

// Count returns the number of stored artifacts
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.artifacts)
}
