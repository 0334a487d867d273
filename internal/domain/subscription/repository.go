package subscription

import (
	"context"
	"time"
)

// Repository defines the interface for subscription persistence
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)

	// ListActive returns ACTIVE subscriptions ordered by agency id for
	// deterministic processing. A non-empty agencyIDs restricts the result
	// to those agencies.
	ListActive(ctx context.Context, agencyIDs []int64) ([]*Subscription, error)

	// UpdateNextAnchorDate updates the advisory next_anchor_date cache
	UpdateNextAnchorDate(ctx context.Context, id string, next time.Time) error
}
