package billingcycle

import (
	"time"

	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/andariego/andariego/internal/types"
	"github.com/shopspring/decimal"
)

// BillingCycle is a frozen snapshot of what one subscription owes for one
// anchor period. A cycle is created exactly once per (subscription, anchor
// date) and is immutable thereafter: subsequent runs for the same anchor date
// find and reuse it, they never re-price it.
type BillingCycle struct {
	// Unique identifier for this cycle
	ID string `db:"id" json:"id"`
	// The subscription_id links this cycle to its subscription
	SubscriptionID string `db:"subscription_id" json:"subscription_id"`
	// The agency_id identifies the paying agency
	AgencyID int64 `db:"agency_id" json:"agency_id"`
	// The anchor_date is the zone-local billing day this cycle was frozen for,
	// unique per subscription
	AnchorDate time.Time `db:"anchor_date" json:"anchor_date"`
	// The anchor_date_key is the zone-local YYYY-MM-DD rendering of anchor_date
	AnchorDateKey string `db:"anchor_date_key" json:"anchor_date_key"`
	// The period covered by this cycle
	PeriodStart time.Time `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time `db:"period_end" json:"period_end"`

	// FX context the cycle was frozen with
	FxType     types.FxType    `db:"fx_type" json:"fx_type"`
	FxRate     decimal.Decimal `db:"fx_rate" json:"fx_rate"`
	FxRateDate time.Time       `db:"fx_rate_date" json:"fx_rate_date"`

	// Amounts in the pricing currency (USD)
	BaseUSD     decimal.Decimal `db:"base_usd" json:"base_usd"`
	AddonsUSD   decimal.Decimal `db:"addons_usd" json:"addons_usd"`
	DiscountUSD decimal.Decimal `db:"discount_usd" json:"discount_usd"`
	VatUSD      decimal.Decimal `db:"vat_usd" json:"vat_usd"`
	NetUSD      decimal.Decimal `db:"net_usd" json:"net_usd"`
	TotalUSD    decimal.Decimal `db:"total_usd" json:"total_usd"`

	// Amounts in the settlement currency (ARS)
	BaseARS     decimal.Decimal `db:"base_ars" json:"base_ars"`
	AddonsARS   decimal.Decimal `db:"addons_ars" json:"addons_ars"`
	DiscountARS decimal.Decimal `db:"discount_ars" json:"discount_ars"`
	VatARS      decimal.Decimal `db:"vat_ars" json:"vat_ars"`
	NetARS      decimal.Decimal `db:"net_ars" json:"net_ars"`
	TotalARS    decimal.Decimal `db:"total_ars" json:"total_ars"`

	// PlanSnapshot is the full plan and add-on document as priced at freeze
	// time, kept for audit. Stored serialized at the persistence boundary.
	PlanSnapshot *PlanSnapshot `json:"plan_snapshot,omitempty"`

	types.BaseModel
}

// Validate validates the cycle before it is frozen
func (c *BillingCycle) Validate() error {
	if c.SubscriptionID == "" {
		return ierr.NewError("invalid subscription id").
			WithHint("Subscription id is required").
			Mark(ierr.ErrValidation)
	}
	if c.AgencyID <= 0 {
		return ierr.NewError("invalid agency id").
			WithHint("Agency id must be positive").
			Mark(ierr.ErrValidation)
	}
	if c.AnchorDate.IsZero() || c.AnchorDateKey == "" {
		return ierr.NewError("invalid anchor date").
			WithHint("Anchor date is required").
			Mark(ierr.ErrValidation)
	}
	if c.FxRate.IsZero() || c.FxRate.IsNegative() {
		return ierr.NewError("invalid fx rate").
			WithHint("Fx rate must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	if c.PlanSnapshot != nil {
		if err := c.PlanSnapshot.Validate(); err != nil {
			return err
		}
	}
	return nil
}
