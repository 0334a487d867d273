package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andariego/andariego/internal/domain/billingcycle"
	ierr "github.com/andariego/andariego/internal/errors"
)

// InMemoryBillingCycleStore implements billingcycle.Repository, enforcing the
// (subscription_id, anchor_date) unique key the way the postgres table does.
// A conflict surfaces as a clean already-exists without poisoning later
// statements, matching the conflict-safe insert of the postgres repository.
type InMemoryBillingCycleStore struct {
	*InMemoryStore[*billingcycle.BillingCycle]

	mu    sync.Mutex
	byKey map[string]string // natural key -> cycle id
}

// NewInMemoryBillingCycleStore creates a new in-memory billing cycle repository
func NewInMemoryBillingCycleStore() *InMemoryBillingCycleStore {
	return &InMemoryBillingCycleStore{
		InMemoryStore: NewInMemoryStore[*billingcycle.BillingCycle](),
		byKey:         make(map[string]string),
	}
}

func cycleKey(subscriptionID string, anchorDate time.Time) string {
	return fmt.Sprintf("%s|%s", subscriptionID, anchorDate.UTC().Format(time.RFC3339))
}

func (m *InMemoryBillingCycleStore) Create(ctx context.Context, cycle *billingcycle.BillingCycle) error {
	if cycle == nil {
		return ierr.NewError("cycle cannot be nil").
			WithHint("Cycle cannot be nil").
			Mark(ierr.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := cycleKey(cycle.SubscriptionID, cycle.AnchorDate)
	if _, exists := m.byKey[key]; exists {
		return ierr.NewErrorf("cycle for subscription %s at %s already exists", cycle.SubscriptionID, cycle.AnchorDateKey).
			WithHint("A cycle already exists for this subscription and anchor date").
			Mark(ierr.ErrAlreadyExists)
	}
	if err := m.InMemoryStore.Create(ctx, cycle.ID, cycle); err != nil {
		return err
	}
	m.byKey[key] = cycle.ID
	return nil
}

func (m *InMemoryBillingCycleStore) Get(ctx context.Context, id string) (*billingcycle.BillingCycle, error) {
	return m.InMemoryStore.Get(ctx, id)
}

func (m *InMemoryBillingCycleStore) GetBySubscriptionAnchor(ctx context.Context, subscriptionID string, anchorDate time.Time) (*billingcycle.BillingCycle, error) {
	m.mu.Lock()
	id, ok := m.byKey[cycleKey(subscriptionID, anchorDate)]
	m.mu.Unlock()

	if !ok {
		return nil, ierr.NewErrorf("cycle for subscription %s not found", subscriptionID).
			WithHint("Cycle not found").
			Mark(ierr.ErrNotFound)
	}
	return m.InMemoryStore.Get(ctx, id)
}

// Clear resets the store and its natural key index
func (m *InMemoryBillingCycleStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InMemoryStore.Clear()
	m.byKey = make(map[string]string)
}
