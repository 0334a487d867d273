package testutil

import (
	"context"
	"fmt"
	"sync"
)

// InMemorySequenceStore implements sequence.Repository with a plain counter map
type InMemorySequenceStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewInMemorySequenceStore creates a new in-memory sequence repository
func NewInMemorySequenceStore() *InMemorySequenceStore {
	return &InMemorySequenceStore{
		counters: make(map[string]int64),
	}
}

func (m *InMemorySequenceStore) Next(ctx context.Context, agencyID int64, scope string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := fmt.Sprintf("%d|%s", agencyID, scope)
	m.counters[key]++
	return m.counters[key], nil
}

// Clear resets all counters
func (m *InMemorySequenceStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = make(map[string]int64)
}
