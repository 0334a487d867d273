package testutil

import (
	"context"
	"sort"

	"github.com/andariego/andariego/internal/domain/paymentmethod"
	ierr "github.com/andariego/andariego/internal/errors"
)

// InMemoryPaymentMethodStore implements paymentmethod.Repository
type InMemoryPaymentMethodStore struct {
	*InMemoryStore[*paymentmethod.PaymentMethod]
}

// NewInMemoryPaymentMethodStore creates a new in-memory payment method repository
func NewInMemoryPaymentMethodStore() *InMemoryPaymentMethodStore {
	return &InMemoryPaymentMethodStore{
		InMemoryStore: NewInMemoryStore[*paymentmethod.PaymentMethod](),
	}
}

func (m *InMemoryPaymentMethodStore) Create(ctx context.Context, method *paymentmethod.PaymentMethod) error {
	if method == nil {
		return ierr.NewError("payment method cannot be nil").
			WithHint("Payment method cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return m.InMemoryStore.Create(ctx, method.ID, method)
}

func (m *InMemoryPaymentMethodStore) Get(ctx context.Context, id string) (*paymentmethod.PaymentMethod, error) {
	return m.InMemoryStore.Get(ctx, id)
}

func (m *InMemoryPaymentMethodStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]*paymentmethod.PaymentMethod, error) {
	methods, err := m.InMemoryStore.List(ctx, func(ctx context.Context, pm *paymentmethod.PaymentMethod) bool {
		return pm.SubscriptionID == subscriptionID
	}, nil)
	if err != nil {
		return nil, err
	}

	// default-flagged first, then newest first, matching the postgres ordering
	sort.Slice(methods, func(i, j int) bool {
		if methods[i].IsDefault != methods[j].IsDefault {
			return methods[i].IsDefault
		}
		return methods[i].CreatedAt.After(methods[j].CreatedAt)
	})
	return methods, nil
}
