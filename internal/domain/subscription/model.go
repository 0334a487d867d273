package subscription

import (
	"time"

	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/andariego/andariego/internal/types"
	"github.com/shopspring/decimal"
)

// Subscription is the recurring billing agreement of one paying agency.
// There is exactly one subscription per agency.
type Subscription struct {
	// Unique identifier for this subscription
	ID string `db:"id" json:"id"`
	// The agency_id identifies the paying agency that owns this subscription
	AgencyID int64 `db:"agency_id" json:"agency_id"`
	// The subscription_status controls whether the anchor engine processes this subscription;
	// only ACTIVE subscriptions are billed
	SubscriptionStatus types.SubscriptionStatus `db:"subscription_status" json:"subscription_status"`
	// The anchor_day is the day-of-month (1-31) this subscription is billed on,
	// clipped to the actual length of shorter months
	AnchorDay int `db:"anchor_day" json:"anchor_day"`
	// The timezone is the IANA zone the anchor date is computed in; empty means
	// the engine default
	Timezone string `db:"timezone" json:"timezone"`
	// The discount_pct is the subscription-level discount percentage applied at pricing time
	DiscountPct decimal.Decimal `db:"discount_pct" json:"discount_pct"`
	// The next_anchor_date is an advisory cache of the next billing date,
	// recomputed by the anchor engine after each run
	NextAnchorDate *time.Time `db:"next_anchor_date" json:"next_anchor_date,omitempty"`

	types.BaseModel
}

// Location resolves the subscription's timezone, falling back to def when the
// subscription carries none or an unparseable one.
func (s *Subscription) Location(def *time.Location) *time.Location {
	if s.Timezone == "" {
		return def
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return def
	}
	return loc
}

// EffectiveAnchorDay returns the configured anchor day, or def when unset.
func (s *Subscription) EffectiveAnchorDay(def int) int {
	if s.AnchorDay < 1 || s.AnchorDay > 31 {
		return def
	}
	return s.AnchorDay
}

// Validate validates the subscription
func (s *Subscription) Validate() error {
	if s.AgencyID <= 0 {
		return ierr.NewError("invalid agency id").
			WithHint("Agency id must be positive").
			Mark(ierr.ErrValidation)
	}
	if err := s.SubscriptionStatus.Validate(); err != nil {
		return err
	}
	if s.AnchorDay < 1 || s.AnchorDay > 31 {
		return ierr.NewError("invalid anchor day").
			WithHintf("Anchor day %d must be between 1 and 31", s.AnchorDay).
			Mark(ierr.ErrValidation)
	}
	if s.DiscountPct.IsNegative() || s.DiscountPct.GreaterThan(decimal.NewFromInt(100)) {
		return ierr.NewError("invalid discount percentage").
			WithHint("Discount must be between 0 and 100").
			Mark(ierr.ErrValidation)
	}
	return nil
}
