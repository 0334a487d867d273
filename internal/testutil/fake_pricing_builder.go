package testutil

import (
	"context"
	"sync"

	"github.com/andariego/andariego/internal/domain/billingcycle"
	"github.com/andariego/andariego/internal/domain/pricing"
	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/shopspring/decimal"
)

// FakePricingBuilder implements pricing.SnapshotBuilder with a fixed USD base
// amount. The base can be swapped between runs, which tests use to prove
// frozen cycles are reused instead of re-priced.
type FakePricingBuilder struct {
	mu      sync.Mutex
	baseUSD decimal.Decimal
	vatPct  decimal.Decimal
	err     error
	calls   []pricing.BuildInput
}

// NewFakePricingBuilder creates a builder pricing every subscription at
// baseUSD with 21% VAT.
func NewFakePricingBuilder(baseUSD decimal.Decimal) *FakePricingBuilder {
	return &FakePricingBuilder{
		baseUSD: baseUSD,
		vatPct:  decimal.NewFromInt(21),
	}
}

// SetBaseUSD changes the base amount used by subsequent Build calls
func (f *FakePricingBuilder) SetBaseUSD(baseUSD decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.baseUSD = baseUSD
}

// SetError makes every subsequent Build call fail
func (f *FakePricingBuilder) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Calls returns the inputs Build has been invoked with
func (f *FakePricingBuilder) Calls() []pricing.BuildInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]pricing.BuildInput, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakePricingBuilder) Build(ctx context.Context, in pricing.BuildInput) (*pricing.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	if in.FxRateArsPerUsd.IsZero() {
		return nil, ierr.NewError("missing fx rate").
			WithHint("Pricing requires a resolved fx rate").
			Mark(ierr.ErrValidation)
	}

	base := f.baseUSD
	discount := base.Mul(in.SubscriptionDiscountPct).Div(decimal.NewFromInt(100))
	net := base.Sub(discount)
	vat := net.Mul(f.vatPct).Div(decimal.NewFromInt(100))
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
				Code:     "plan_standard",
				Name:     "Standard",
				PriceUSD: base,
			},
			DiscountPct: in.SubscriptionDiscountPct,
			VatPct:      f.vatPct,
		},
	}, nil
}

var _ pricing.SnapshotBuilder = (*FakePricingBuilder)(nil)
