package billingcycle

import (
	"encoding/json"

	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/shopspring/decimal"
)

// PlanSnapshotSchemaVersion is the current schema version of the frozen plan
// document. Bump when the document shape changes; old versions stay readable.
const PlanSnapshotSchemaVersion = 1

// PlanSnapshot is the versioned document describing the plan and add-ons
// exactly as they were priced when the cycle was frozen. It exists for audit:
// the cycle must never silently re-price after creation, so the inputs are
// preserved alongside the amounts.
type PlanSnapshot struct {
	SchemaVersion int             `json:"schema_version"`
	Plan          PlanLine        `json:"plan"`
	Addons        []AddonLine     `json:"addons,omitempty"`
	DiscountPct   decimal.Decimal `json:"discount_pct"`
	VatPct        decimal.Decimal `json:"vat_pct"`
}

// PlanLine describes the base plan as priced at freeze time
type PlanLine struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	PriceUSD decimal.Decimal `json:"price_usd"`
}

// AddonLine describes one add-on as priced at freeze time
type AddonLine struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	UnitPriceUSD decimal.Decimal `json:"unit_price_usd"`
	AmountUSD    decimal.Decimal `json:"amount_usd"`
}

// Validate validates the snapshot document
func (s *PlanSnapshot) Validate() error {
	if s.SchemaVersion < 1 || s.SchemaVersion > PlanSnapshotSchemaVersion {
		return ierr.NewError("unsupported plan snapshot schema version").
			WithHintf("Schema version %d is not supported", s.SchemaVersion).
			Mark(ierr.ErrValidation)
	}
	if s.Plan.Code == "" {
		return ierr.NewError("invalid plan snapshot").
			WithHint("Plan code is required").
			Mark(ierr.ErrValidation)
	}
	for _, a := range s.Addons {
		if a.Code == "" || a.Quantity <= 0 {
			return ierr.NewError("invalid addon line").
				WithHintf("Addon %q must have a code and positive quantity", a.Name).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// Serialize renders the snapshot for opaque storage at the persistence boundary
func (s *PlanSnapshot) Serialize() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to serialize plan snapshot").
			Mark(ierr.ErrSystem)
	}
	return data, nil
}

// ParsePlanSnapshot parses and validates a stored snapshot document
func ParsePlanSnapshot(data []byte) (*PlanSnapshot, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var s PlanSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Stored plan snapshot is not valid JSON").
			Mark(ierr.ErrSystem)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
