package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a minimal in-memory Store implementation intended for tests,
// examples and single-process tooling. It uses Ref.Identifier() as its
// deterministic key.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	writes  int
}

type memoryRecord struct {
	ref    Ref
	record Record
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}}
}

func (s *MemoryStore) Get(_ context.Context, ref Ref) (Record, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Record{}, false, err
	}

	s.mu.RLock()
	entry, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return Record{}, false, nil
	}
	return entry.record, true, nil
}

func (s *MemoryStore) Add(_ context.Context, ref Ref, value any, autoload bool) (bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[key]; exists {
		return false, nil
	}
	s.records[key] = memoryRecord{
		ref:    ref.Normalize(),
		record: Record{Name: ref.Name, Value: value, Autoload: autoload},
	}
	s.writes++
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, ref Ref) (bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[key]; !exists {
		return false, nil
	}
	delete(s.records, key)
	s.writes++
	return true, nil
}

func (s *MemoryStore) List(_ context.Context, ns Namespace, tenant int64) ([]Record, error) {
	if !ns.Valid() {
		return nil, ErrInvalidNamespace
	}
	want := Ref{Namespace: ns, Tenant: tenant}.Normalize()

	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, entry := range s.records {
		if entry.ref.Namespace != want.Namespace || entry.ref.Tenant != want.Tenant {
			continue
		}
		out = append(out, entry.record)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Writes reports how many mutations (successful adds and deletes) the store
// has applied. Tests use it to assert that an operation wrote nothing.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
