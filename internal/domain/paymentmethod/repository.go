package paymentmethod

import (
	"context"
)

// Repository defines the interface for payment method persistence
type Repository interface {
	Create(ctx context.Context, method *PaymentMethod) error
	Get(ctx context.Context, id string) (*PaymentMethod, error)

	// ListBySubscription returns all methods on file for a subscription,
	// default-flagged first, then newest first.
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*PaymentMethod, error)
}
