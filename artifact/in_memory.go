package artifact

import (
	"sort"
	"sync"
)

// InMemoryStore is an in‑process ArtifactStore used by tests, examples and
// runs that do not need outputs on disk. Data is copied on save / retrieval
// to avoid accidental external mutation of internal buffers.
//
// Layout: runID -> name -> raw bytes
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]map[string][]byte
}

// NewInMemoryStore returns an empty in‑memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string]map[string][]byte)}
}

// Save stores (or overwrites) the artifact bytes for the given run and name.
func (a *InMemoryStore) Save(runID, name string, data []byte) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.artifacts[runID]; !exists {
		a.artifacts[runID] = make(map[string][]byte)
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	a.artifacts[runID][name] = cp

	return nil
}

// Get returns a copy of the stored artifact bytes or ErrNotFound.
func (a *InMemoryStore) Get(runID, name string) ([]byte, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	data, ok := a.artifacts[runID][name]
	if !ok {
		return nil, ErrNotFound
	}

	cp := make([]byte, len(data))
	copy(cp, data)

	return cp, nil
}

// List returns the sorted artifact names stored for the run.
func (a *InMemoryStore) List(runID string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	m := a.artifacts[runID]

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

// Delete removes the artifact if present or returns ErrNotFound.
func (a *InMemoryStore) Delete(runID, name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	m, ok := a.artifacts[runID]
	if !ok {
		return ErrNotFound
	}

	if _, ok := m[name]; !ok {
		return ErrNotFound
	}

	delete(m, name)

	return nil
}
