package idempotency

import (
	"fmt"
)

// Generator generates idempotency keys
type Generator struct{}

// NewGenerator creates a new idempotency key generator
func NewGenerator() *Generator {
	return &Generator{}
}

// ChargeKey derives the idempotency key for a recurring anchor charge.
// The key is deterministic over (agency, zone-local anchor date key), so two
// runs that compute the same anchor date for the same agency always collide
// on the same charge row. The format is part of the persisted data contract;
// do not change it without migrating existing charges.
func (g *Generator) ChargeKey(agencyID int64, anchorDateKey string) string {
	return fmt.Sprintf("%d-%s", agencyID, anchorDateKey)
}

// ValidateChargeKey reports whether key matches the expected parameters
func (g *Generator) ValidateChargeKey(agencyID int64, anchorDateKey string, key string) bool {
	return g.ChargeKey(agencyID, anchorDateKey) == key
}
