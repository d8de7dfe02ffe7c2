package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/flowgrid/flowgrid/pkg/diagram"
	"github.com/flowgrid/flowgrid/pkg/errors"
)

// MemoryStore is an in-memory Store for tests and single-process usage.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Get retrieves a diagram by name.
func (s *MemoryStore) Get(ctx context.Context, name string) (Record, error) {
	if err := validateName(name); err != nil {
		return Record{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[name]
	if !ok {
		return Record{}, errors.New(errors.ErrCodeDiagramNotFound, "diagram %q not found", name)
	}
	return rec, nil
}

// Put stores a diagram under a name, replacing any existing record.
func (s *MemoryStore) Put(ctx context.Context, name string, d diagram.Diagram) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[name] = Record{
		Name:      name,
		Diagram:   d,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

// Delete removes a diagram by name.
func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[name]; !ok {
		return errors.New(errors.ErrCodeDiagramNotFound, "diagram %q not found", name)
	}
	delete(s.records, name)
	return nil
}

// List returns the names of all stored diagrams, sorted.
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close does nothing for the in-memory store.
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
