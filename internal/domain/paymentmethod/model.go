package paymentmethod

import (
	"github.com/andariego/andariego/internal/types"
)

// PaymentMethod is a collection instrument an agency has on file
type PaymentMethod struct {
	// Unique identifier for this payment method
	ID string `db:"id" json:"id"`
	// The subscription_id links this method to its owning subscription
	SubscriptionID string `db:"subscription_id" json:"subscription_id"`
	// The agency_id identifies the owning agency
	AgencyID int64 `db:"agency_id" json:"agency_id"`
	// The method_type defines how charges are collected through this method
	MethodType types.PaymentMethodType `db:"method_type" json:"method_type"`
	// The method_status is the lifecycle state (ACTIVE, PENDING, INACTIVE)
	MethodStatus types.PaymentMethodStatus `db:"method_status" json:"method_status"`
	// The is_default flag marks the agency's preferred method
	IsDefault bool `db:"is_default" json:"is_default"`
	// The reference is a masked identifier of the underlying instrument
	// (CBU tail, card last four)
	Reference string `db:"reference" json:"reference"`

	types.BaseModel
}

// Usable reports whether this method can currently be used for collection
func (m *PaymentMethod) Usable() bool {
	return m.MethodStatus == types.PaymentMethodStatusActive ||
		m.MethodStatus == types.PaymentMethodStatusPending
}

// PreferredForCollection selects the method a new charge should record:
// an active or pending method, default-flagged first; when none is usable,
// any method on file (even inactive) so the charge still records the intended
// instrument; nil when the agency has nothing on file.
func PreferredForCollection(methods []*PaymentMethod) *PaymentMethod {
	var fallback *PaymentMethod
	var usable *PaymentMethod
	for _, m := range methods {
		if fallback == nil {
			fallback = m
		}
		if !m.Usable() {
			continue
		}
		if m.IsDefault {
			return m
		}
		if usable == nil {
			usable = m
		}
	}
	if usable != nil {
		return usable
	}
	return fallback
}
