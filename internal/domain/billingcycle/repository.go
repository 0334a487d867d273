package billingcycle

import (
	"context"
	"time"
)

// Repository defines the interface for billing cycle persistence.
// (subscription_id, anchor_date) is unique; Create must surface an
// already-exists error on conflict so callers can fall back to the
// pre-existing row.
type Repository interface {
	Create(ctx context.Context, cycle *BillingCycle) error
	Get(ctx context.Context, id string) (*BillingCycle, error)

	// GetBySubscriptionAnchor looks a cycle up by its natural key
	GetBySubscriptionAnchor(ctx context.Context, subscriptionID string, anchorDate time.Time) (*BillingCycle, error)
}
