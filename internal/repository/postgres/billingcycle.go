package postgres

import (
	"context"
	"time"

	"github.com/andariego/andariego/internal/domain/billingcycle"
	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/andariego/andariego/internal/logger"
	"github.com/andariego/andariego/internal/postgres"
	"github.com/andariego/andariego/internal/types"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type billingCycleRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewBillingCycleRepository creates a postgres-backed billing cycle repository
func NewBillingCycleRepository(client postgres.IClient, logger *logger.Logger) billingcycle.Repository {
	return &billingCycleRepository{client: client, logger: logger}
}

// cycleRow carries the serialized snapshot across the persistence boundary
type cycleRow struct {
	ID             string          `db:"id"`
	SubscriptionID string          `db:"subscription_id"`
	AgencyID       int64           `db:"agency_id"`
	AnchorDate     time.Time       `db:"anchor_date"`
	AnchorDateKey  string          `db:"anchor_date_key"`
	PeriodStart    time.Time       `db:"period_start"`
	PeriodEnd      time.Time       `db:"period_end"`
	FxType         types.FxType    `db:"fx_type"`
	FxRate         decimal.Decimal `db:"fx_rate"`
	FxRateDate     time.Time       `db:"fx_rate_date"`
	BaseUSD        decimal.Decimal `db:"base_usd"`
	AddonsUSD      decimal.Decimal `db:"addons_usd"`
	DiscountUSD    decimal.Decimal `db:"discount_usd"`
	VatUSD         decimal.Decimal `db:"vat_usd"`
	NetUSD         decimal.Decimal `db:"net_usd"`
	TotalUSD       decimal.Decimal `db:"total_usd"`
	BaseARS        decimal.Decimal `db:"base_ars"`
	AddonsARS      decimal.Decimal `db:"addons_ars"`
	DiscountARS    decimal.Decimal `db:"discount_ars"`
	VatARS         decimal.Decimal `db:"vat_ars"`
	NetARS         decimal.Decimal `db:"net_ars"`
	TotalARS       decimal.Decimal `db:"total_ars"`
	PlanSnapshot   []byte          `db:"plan_snapshot"`

	types.BaseModel
}

func toCycleRow(c *billingcycle.BillingCycle) (*cycleRow, error) {
	row := &cycleRow{
		ID:             c.ID,
		SubscriptionID: c.SubscriptionID,
		AgencyID:       c.AgencyID,
		AnchorDate:     c.AnchorDate,
		AnchorDateKey:  c.AnchorDateKey,
		PeriodStart:    c.PeriodStart,
		PeriodEnd:      c.PeriodEnd,
		FxType:         c.FxType,
		FxRate:         c.FxRate,
		FxRateDate:     c.FxRateDate,
		BaseUSD:        c.BaseUSD,
		AddonsUSD:      c.AddonsUSD,
		DiscountUSD:    c.DiscountUSD,
		VatUSD:         c.VatUSD,
		NetUSD:         c.NetUSD,
		TotalUSD:       c.TotalUSD,
		BaseARS:        c.BaseARS,
		AddonsARS:      c.AddonsARS,
		DiscountARS:    c.DiscountARS,
		VatARS:         c.VatARS,
		NetARS:         c.NetARS,
		TotalARS:       c.TotalARS,
		BaseModel:      c.BaseModel,
	}
	if c.PlanSnapshot != nil {
		data, err := c.PlanSnapshot.Serialize()
		if err != nil {
			return nil, err
		}
		row.PlanSnapshot = data
	}
	return row, nil
}

func (row *cycleRow) toDomain() (*billingcycle.BillingCycle, error) {
	snapshot, err := billingcycle.ParsePlanSnapshot(row.PlanSnapshot)
	if err != nil {
		return nil, err
	}
	return &billingcycle.BillingCycle{
		ID:             row.ID,
		SubscriptionID: row.SubscriptionID,
		AgencyID:       row.AgencyID,
		AnchorDate:     row.AnchorDate,
		AnchorDateKey:  row.AnchorDateKey,
		PeriodStart:    row.PeriodStart,
		PeriodEnd:      row.PeriodEnd,
		FxType:         row.FxType,
		FxRate:         row.FxRate,
		FxRateDate:     row.FxRateDate,
		BaseUSD:        row.BaseUSD,
		AddonsUSD:      row.AddonsUSD,
		DiscountUSD:    row.DiscountUSD,
		VatUSD:         row.VatUSD,
		NetUSD:         row.NetUSD,
		TotalUSD:       row.TotalUSD,
		BaseARS:        row.BaseARS,
		AddonsARS:      row.AddonsARS,
		DiscountARS:    row.DiscountARS,
		VatARS:         row.VatARS,
		NetARS:         row.NetARS,
		TotalARS:       row.TotalARS,
		PlanSnapshot:   snapshot,
		BaseModel:      row.BaseModel,
	}, nil
}

func (r *billingCycleRepository) Create(ctx context.Context, cycle *billingcycle.BillingCycle) error {
	if err := cycle.Validate(); err != nil {
		return err
	}
	row, err := toCycleRow(cycle)
	if err != nil {
		return err
	}

	// DO NOTHING keeps a lost race from aborting the surrounding transaction:
	// the duplicate surfaces as a clean already-exists, not a 23505
	q := r.client.Querier(ctx)
	res, err := sqlx.NamedExecContext(ctx, q, `
		INSERT INTO billing_cycles (
			id, subscription_id, agency_id, anchor_date, anchor_date_key,
			period_start, period_end, fx_type, fx_rate, fx_rate_date,
			base_usd, addons_usd, discount_usd, vat_usd, net_usd, total_usd,
			base_ars, addons_ars, discount_ars, vat_ars, net_ars, total_ars,
			plan_snapshot,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :subscription_id, :agency_id, :anchor_date, :anchor_date_key,
			:period_start, :period_end, :fx_type, :fx_rate, :fx_rate_date,
			:base_usd, :addons_usd, :discount_usd, :vat_usd, :net_usd, :total_usd,
			:base_ars, :addons_ars, :discount_ars, :vat_ars, :net_ars, :total_ars,
			:plan_snapshot,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)
		ON CONFLICT (subscription_id, anchor_date) DO NOTHING`, row)
	if err != nil {
		return postgres.WrapError(err, "creating billing cycle")
	}
	if n, err := res.RowsAffected(); err != nil {
		return postgres.WrapError(err, "creating billing cycle")
	} else if n == 0 {
		return ierr.NewErrorf("cycle for subscription %s at %s already exists",
			cycle.SubscriptionID, cycle.AnchorDateKey).
			WithHint("A cycle already exists for this subscription and anchor date").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (r *billingCycleRepository) Get(ctx context.Context, id string) (*billingcycle.BillingCycle, error) {
	q := r.client.Querier(ctx)
	var row cycleRow
	err := sqlx.GetContext(ctx, q, &row, `
		SELECT * FROM billing_cycles
		WHERE id = $1 AND status != 'deleted'`, id)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ierr.NewErrorf("billing cycle %s not found", id).
				WithHint("Billing cycle does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, postgres.WrapError(err, "getting billing cycle")
	}
	return row.toDomain()
}

func (r *billingCycleRepository) GetBySubscriptionAnchor(ctx context.Context, subscriptionID string, anchorDate time.Time) (*billingcycle.BillingCycle, error) {
	q := r.client.Querier(ctx)
	var row cycleRow
	err := sqlx.GetContext(ctx, q, &row, `
		SELECT * FROM billing_cycles
		WHERE subscription_id = $1 AND anchor_date = $2 AND status != 'deleted'`,
		subscriptionID, anchorDate)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ierr.NewErrorf("no billing cycle for subscription %s at %s",
				subscriptionID, anchorDate.Format(types.DateKeyFormat)).
				WithHint("Billing cycle does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, postgres.WrapError(err, "getting billing cycle by anchor")
	}
	return row.toDomain()
}
