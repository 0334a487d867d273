package auditlog

import (
	"context"
)

// Repository defines the append-only interface for the audit trail
type Repository interface {
	Append(ctx context.Context, event *Event) error
	ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]*Event, error)
}
