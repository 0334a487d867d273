package service

import (
	"context"

	"github.com/andariego/andariego/internal/config"
	"github.com/andariego/andariego/internal/domain/billingcycle"
	"github.com/andariego/andariego/internal/domain/pricing"
	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/andariego/andariego/internal/types"
	"github.com/shopspring/decimal"
)

// catalog constants for the single published plan. Plan management lives
// outside this module; until it grows a catalog service this is the source
// of truth the builder prices from.
var (
	catalogPlanCode     = "plan_standard"
	catalogPlanName     = "Standard"
	catalogPlanPriceUSD = decimal.NewFromInt(100)
	catalogVatPct       = decimal.NewFromInt(21)
)

var oneHundred = decimal.NewFromInt(100)

// catalogSnapshotBuilder prices subscriptions from the static catalog,
// applying the subscription discount plus the configured direct debit
// discount when the selected method collects by direct debit.
type catalogSnapshotBuilder struct {
	cfg *config.Configuration
}

// NewCatalogSnapshotBuilder creates the default pricing collaborator
func NewCatalogSnapshotBuilder(cfg *config.Configuration) pricing.SnapshotBuilder {
	return &catalogSnapshotBuilder{cfg: cfg}
}

func (b *catalogSnapshotBuilder) Build(ctx context.Context, in pricing.BuildInput) (*pricing.Snapshot, error) {
	if in.FxRateArsPerUsd.IsZero() || in.FxRateArsPerUsd.IsNegative() {
		return nil, ierr.NewError("invalid fx rate for pricing").
			WithHint("Pricing requires a positive fx rate").
			Mark(ierr.ErrValidation)
	}

	discountPct := in.SubscriptionDiscountPct
	if in.MethodType != nil && *in.MethodType == types.PaymentMethodTypeDirectDebit {
		discountPct = discountPct.Add(decimal.NewFromFloat(b.cfg.Billing.DirectDebitDiscountPct))
	}
	if discountPct.GreaterThan(oneHundred) {
		discountPct = oneHundred
	}

	base := catalogPlanPriceUSD
	discount := base.Mul(discountPct).Div(oneHundred).Round(2)
	net := base.Sub(discount)
	vat := net.Mul(catalogVatPct).Div(oneHundred).Round(2)
	total := net.Add(vat)

	toARS := func(usd decimal.Decimal) decimal.Decimal {
		return usd.Mul(in.FxRateArsPerUsd).Round(2)
	}

	return &pricing.Snapshot{
		BaseUSD:     base,
		AddonsUSD:   decimal.Zero,
		DiscountUSD: discount,
		VatUSD:      vat,
		NetUSD:      net,
		TotalUSD:    total,

		BaseARS:     toARS(base),
		AddonsARS:   decimal.Zero,
		DiscountARS: toARS(discount),
		VatARS:      toARS(vat),
		NetARS:      toARS(net),
		TotalARS:    toARS(total),

		Plan: &billingcycle.PlanSnapshot{
			SchemaVersion: billingcycle.PlanSnapshotSchemaVersion,
			Plan: billingcycle.PlanLine{
				Code:     catalogPlanCode,
				Name:     catalogPlanName,
				PriceUSD: base,
			},
			DiscountPct: discountPct,
			VatPct:      catalogVatPct,
		},
	}, nil
}
