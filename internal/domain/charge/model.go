package charge

import (
	"fmt"
	"time"

	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/andariego/andariego/internal/types"
	"github.com/shopspring/decimal"
)

// Charge is the payable record derived from a frozen billing cycle. It is
// created once per (agency, idempotency key) and its amounts are never
// rewritten by the anchor engine; amount correction is a separate
// administrative operation.
type Charge struct {
	// Unique identifier for this charge
	ID string `db:"id" json:"id"`
	// Human-facing sequential number, e.g. AB-17-000042, generated from the
	// per-agency counter inside the creating transaction
	Number string `db:"number" json:"number"`
	// The agency_id identifies the paying agency
	AgencyID int64 `db:"agency_id" json:"agency_id"`
	// The subscription_id links the charge to its subscription
	SubscriptionID string `db:"subscription_id" json:"subscription_id"`
	// The cycle_id links the charge to the frozen cycle it collects
	CycleID string `db:"cycle_id" json:"cycle_id"`
	// The idempotency_key is "{agency_id}-{anchor_date_key}", unique per agency
	IdempotencyKey string `db:"idempotency_key" json:"idempotency_key"`
	// Human label derived from the anchor month and year
	Label string `db:"label" json:"label"`
	// The due_date is the anchor date the charge becomes collectable on
	DueDate time.Time `db:"due_date" json:"due_date"`
	// The charge_status starts at READY
	ChargeStatus types.ChargeStatus `db:"charge_status" json:"charge_status"`
	// The kind of this charge; the anchor engine only creates RECURRING
	Kind types.ChargeKind `db:"kind" json:"kind"`

	// Monetary breakdown in the pricing currency (USD)
	BaseUSD     decimal.Decimal `db:"base_usd" json:"base_usd"`
	AddonsUSD   decimal.Decimal `db:"addons_usd" json:"addons_usd"`
	DiscountUSD decimal.Decimal `db:"discount_usd" json:"discount_usd"`
	VatUSD      decimal.Decimal `db:"vat_usd" json:"vat_usd"`
	TotalUSD    decimal.Decimal `db:"total_usd" json:"total_usd"`
	// The fx_rate applied to convert into the settlement currency
	FxRate decimal.Decimal `db:"fx_rate" json:"fx_rate"`
	// The amount_due_ars is the settlement amount to collect
	AmountDueARS decimal.Decimal `db:"amount_due_ars" json:"amount_due_ars"`

	// The payment method selected at creation time; nil when the agency had
	// nothing on file
	PaymentMethodID   *string                  `db:"payment_method_id" json:"payment_method_id,omitempty"`
	PaymentMethodType *types.PaymentMethodType `db:"payment_method_type" json:"payment_method_type,omitempty"`
	// The channel collection attempts go out on
	Channel types.CollectionChannel `db:"channel" json:"channel"`

	// The reconciliation_status starts at PENDING
	ReconciliationStatus types.ReconciliationStatus `db:"reconciliation_status" json:"reconciliation_status"`
	// The dunning_stage counts exhausted collection attempts, starts at 0
	DunningStage int `db:"dunning_stage" json:"dunning_stage"`

	types.BaseModel
}

// ChargeAttempt is one scheduled try to collect a charge. Attempt numbers are
// 1-based and strictly increasing per charge; later code relies on
// attempt_number as a monotonic retry counter.
type ChargeAttempt struct {
	// Unique identifier for this attempt
	ID string `db:"id" json:"id"`
	// The charge_id links this attempt to its parent charge
	ChargeID string `db:"charge_id" json:"charge_id"`
	// The attempt_number is the 1-based position in the dunning schedule,
	// unique per charge
	AttemptNumber int `db:"attempt_number" json:"attempt_number"`
	// The attempt_status starts at PENDING
	AttemptStatus types.AttemptStatus `db:"attempt_status" json:"attempt_status"`
	// The channel this attempt goes out on
	Channel types.CollectionChannel `db:"channel" json:"channel"`
	// The scheduled_for timestamp is the due date plus the configured offset
	// in business or calendar days
	ScheduledFor time.Time `db:"scheduled_for" json:"scheduled_for"`

	types.BaseModel
}

// FormatNumber renders the human-facing charge number for an agency and a
// per-agency sequence value.
func FormatNumber(agencyID int64, seq int64) string {
	return fmt.Sprintf("AB-%d-%06d", agencyID, seq)
}

// spanish month names for the human charge label
var monthLabels = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// FormatLabel renders the human label for the anchor month, e.g.
// "Suscripción Abril 2024".
func FormatLabel(anchorDate time.Time, loc *time.Location) string {
	local := anchorDate.In(loc)
	return fmt.Sprintf("Suscripción %s %d", monthLabels[local.Month()-1], local.Year())
}

// Validate validates the charge
func (c *Charge) Validate() error {
	if c.AgencyID <= 0 {
		return ierr.NewError("invalid agency id").
			WithHint("Agency id must be positive").
			Mark(ierr.ErrValidation)
	}
	if c.IdempotencyKey == "" {
		return ierr.NewError("missing idempotency key").
			WithHint("Idempotency key is required").
			Mark(ierr.ErrValidation)
	}
	if c.CycleID == "" || c.SubscriptionID == "" {
		return ierr.NewError("charge must reference its cycle and subscription").
			WithHint("Cycle id and subscription id are required").
			Mark(ierr.ErrValidation)
	}
	if c.AmountDueARS.IsNegative() {
		return ierr.NewError("invalid amount due").
			WithHint("Amount due cannot be negative").
			Mark(ierr.ErrValidation)
	}
	return c.Channel.Validate()
}

// Validate validates the attempt
func (a *ChargeAttempt) Validate() error {
	if a.ChargeID == "" {
		return ierr.NewError("attempt must reference its charge").
			WithHint("Charge id is required").
			Mark(ierr.ErrValidation)
	}
	if a.AttemptNumber < 1 {
		return ierr.NewError("invalid attempt number").
			WithHintf("Attempt number %d must be 1 or greater", a.AttemptNumber).
			Mark(ierr.ErrValidation)
	}
	if a.ScheduledFor.IsZero() {
		return ierr.NewError("missing scheduled_for").
			WithHint("Attempt schedule time is required").
			Mark(ierr.ErrValidation)
	}
	return a.Channel.Validate()
}
