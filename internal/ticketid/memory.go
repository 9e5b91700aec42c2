package ticketid

import (
	"context"
	"sync"
)

// MemoryStore is a process-local CounterStore.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewMemoryStore returns a store whose sequences start at start+1.
func NewMemoryStore(start int64) *MemoryStore {
	return &MemoryStore{values: map[string]int64{CounterName: start}}
}

// Next implements CounterStore.
func (s *MemoryStore) Next(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name]++
	return s.values[name], nil
}

// SeedCounter raises the named counter to at least floor.
func (s *MemoryStore) SeedCounter(_ context.Context, name string, floor int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = max(s.values[name], floor)
	return nil
}
