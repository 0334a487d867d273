package pricing

import (
	"context"
	"time"

	"github.com/andariego/andariego/internal/domain/billingcycle"
	"github.com/andariego/andariego/internal/types"
	"github.com/shopspring/decimal"
)

// BuildInput is the pricing context for one subscription at one anchor date
type BuildInput struct {
	AgencyID                int64
	SubscriptionID          string
	SubscriptionDiscountPct decimal.Decimal
	// MethodType influences method-dependent discounts (direct debit); nil
	// when the agency has no method on file
	MethodType *types.PaymentMethodType
	// The FX context resolved for the anchor date
	FxRateDate      time.Time
	FxRateArsPerUsd decimal.Decimal
	AnchorDate      time.Time
}

// Snapshot is the priced result for one cycle: amounts in both currencies and
// the plan/add-on document as priced. The anchor engine treats it as
// authoritative and immutable once used to freeze a cycle.
type Snapshot struct {
	BaseUSD     decimal.Decimal
	AddonsUSD   decimal.Decimal
	DiscountUSD decimal.Decimal
	VatUSD      decimal.Decimal
	NetUSD      decimal.Decimal
	TotalUSD    decimal.Decimal

	BaseARS     decimal.Decimal
	AddonsARS   decimal.Decimal
	DiscountARS decimal.Decimal
	VatARS      decimal.Decimal
	NetARS      decimal.Decimal
	TotalARS    decimal.Decimal

	Plan *billingcycle.PlanSnapshot
}

// SnapshotBuilder prices one subscription as of an anchor/FX context. It is
// an external collaborator: a pure function over its input, with plan and
// add-on catalogs, VAT and discount rules living behind it.
type SnapshotBuilder interface {
	Build(ctx context.Context, in BuildInput) (*Snapshot, error)
}
