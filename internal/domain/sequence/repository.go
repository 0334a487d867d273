package sequence

import (
	"context"
)

// Named sequences used by the engine
const (
	ScopeAgencyBillingCharge = "agency_billing_charge"
)

// Repository is the per-agency monotonically increasing counter service used
// for human-facing sequential numbers. Next must be transaction-scoped: when
// called inside a database transaction the increment commits or rolls back
// with it, and concurrent increments for the same agency serialize on the
// counter row. Client-side max+1 queries are not an acceptable implementation.
type Repository interface {
	// Next atomically increments and returns the counter for (agencyID, scope)
	Next(ctx context.Context, agencyID int64, scope string) (int64, error)
}
