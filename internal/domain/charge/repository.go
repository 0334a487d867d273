package charge

import (
	"context"
)

// Repository defines the interface for charge and attempt persistence.
// (agency_id, idempotency_key) and (charge_id, attempt_number) are unique;
// Create/CreateAttempt must surface already-exists errors on conflict so the
// caller can fall back to the pre-existing row.
type Repository interface {
	// Charge operations
	Create(ctx context.Context, charge *Charge) error
	Get(ctx context.Context, id string) (*Charge, error)
	GetByIdempotencyKey(ctx context.Context, agencyID int64, key string) (*Charge, error)

	// Attempt operations
	CreateAttempt(ctx context.Context, attempt *ChargeAttempt) error
	GetAttemptByNumber(ctx context.Context, chargeID string, attemptNumber int) (*ChargeAttempt, error)
	ListAttempts(ctx context.Context, chargeID string) ([]*ChargeAttempt, error)
}
