package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/andariego/andariego/internal/domain/subscription"
	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/andariego/andariego/internal/types"
	"github.com/samber/lo"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
}

// NewInMemorySubscriptionStore creates a new in-memory subscription repository
func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

func (m *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			WithHint("Subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return m.InMemoryStore.Create(ctx, sub.ID, sub)
}

func (m *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	return m.InMemoryStore.Get(ctx, id)
}

func (m *InMemorySubscriptionStore) ListActive(ctx context.Context, agencyIDs []int64) ([]*subscription.Subscription, error) {
	subs, err := m.InMemoryStore.List(ctx, func(ctx context.Context, s *subscription.Subscription) bool {
		if s.SubscriptionStatus != types.SubscriptionStatusActive {
			return false
		}
		if len(agencyIDs) > 0 && !lo.Contains(agencyIDs, s.AgencyID) {
			return false
		}
		return true
	}, nil)
	if err != nil {
		return nil, err
	}

	sort.Slice(subs, func(i, j int) bool { return subs[i].AgencyID < subs[j].AgencyID })
	return subs, nil
}

func (m *InMemorySubscriptionStore) UpdateNextAnchorDate(ctx context.Context, id string, next time.Time) error {
	sub, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return err
	}
	sub.NextAnchorDate = &next
	sub.UpdatedAt = time.Now().UTC()
	return m.InMemoryStore.Update(ctx, id, sub)
}
