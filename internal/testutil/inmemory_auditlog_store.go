package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/andariego/andariego/internal/domain/auditlog"
	ierr "github.com/andariego/andariego/internal/errors"
)

// InMemoryAuditLogStore implements auditlog.Repository
type InMemoryAuditLogStore struct {
	mu     sync.RWMutex
	events []*auditlog.Event
}

// NewInMemoryAuditLogStore creates a new in-memory audit log repository
func NewInMemoryAuditLogStore() *InMemoryAuditLogStore {
	return &InMemoryAuditLogStore{}
}

func (m *InMemoryAuditLogStore) Append(ctx context.Context, event *auditlog.Event) error {
	if event == nil {
		return ierr.NewError("event cannot be nil").
			WithHint("Event cannot be nil").
			Mark(ierr.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *InMemoryAuditLogStore) ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]*auditlog.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*auditlog.Event
	for _, e := range m.events {
		if e.SubscriptionID == subscriptionID {
			result = append(result, e)
		}
	}

	// newest first
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Events returns everything appended so far, in append order
func (m *InMemoryAuditLogStore) Events() []*auditlog.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*auditlog.Event, len(m.events))
	copy(out, m.events)
	return out
}

// Clear resets the store
func (m *InMemoryAuditLogStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
