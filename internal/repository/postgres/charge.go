package postgres

import (
	"context"

	"github.com/andariego/andariego/internal/domain/charge"
	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/andariego/andariego/internal/logger"
	"github.com/andariego/andariego/internal/postgres"
	"github.com/jmoiron/sqlx"
)

type chargeRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewChargeRepository creates a postgres-backed charge repository
func NewChargeRepository(client postgres.IClient, logger *logger.Logger) charge.Repository {
	return &chargeRepository{client: client, logger: logger}
}

func (r *chargeRepository) Create(ctx context.Context, c *charge.Charge) error {
	if err := c.Validate(); err != nil {
		return err
	}

	// DO NOTHING keeps a lost race from aborting the surrounding transaction:
	// the duplicate surfaces as a clean already-exists, not a 23505
	q := r.client.Querier(ctx)
	res, err := sqlx.NamedExecContext(ctx, q, `
		INSERT INTO billing_charges (
			id, number, agency_id, subscription_id, cycle_id, idempotency_key,
			label, due_date, charge_status, kind,
			base_usd, addons_usd, discount_usd, vat_usd, total_usd,
			fx_rate, amount_due_ars,
			payment_method_id, payment_method_type, channel,
			reconciliation_status, dunning_stage,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :number, :agency_id, :subscription_id, :cycle_id, :idempotency_key,
			:label, :due_date, :charge_status, :kind,
			:base_usd, :addons_usd, :discount_usd, :vat_usd, :total_usd,
			:fx_rate, :amount_due_ars,
			:payment_method_id, :payment_method_type, :channel,
			:reconciliation_status, :dunning_stage,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)
		ON CONFLICT (agency_id, idempotency_key) DO NOTHING`, c)
	if err != nil {
		return postgres.WrapError(err, "creating charge")
	}
	if n, err := res.RowsAffected(); err != nil {
		return postgres.WrapError(err, "creating charge")
	} else if n == 0 {
		return ierr.NewErrorf("charge with idempotency key %s already exists", c.IdempotencyKey).
			WithHint("A charge already exists for this agency and idempotency key").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (r *chargeRepository) Get(ctx context.Context, id string) (*charge.Charge, error) {
	q := r.client.Querier(ctx)
	var c charge.Charge
	err := sqlx.GetContext(ctx, q, &c, `
		SELECT * FROM billing_charges
		WHERE id = $1 AND status != 'deleted'`, id)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ierr.NewErrorf("charge %s not found", id).
				WithHint("Charge does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, postgres.WrapError(err, "getting charge")
	}
	return &c, nil
}

func (r *chargeRepository) GetByIdempotencyKey(ctx context.Context, agencyID int64, key string) (*charge.Charge, error) {
	q := r.client.Querier(ctx)
	var c charge.Charge
	err := sqlx.GetContext(ctx, q, &c, `
		SELECT * FROM billing_charges
		WHERE agency_id = $1 AND idempotency_key = $2 AND status != 'deleted'`,
		agencyID, key)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ierr.NewErrorf("no charge for agency %d with key %s", agencyID, key).
				WithHint("Charge does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, postgres.WrapError(err, "getting charge by idempotency key")
	}
	return &c, nil
}

func (r *chargeRepository) CreateAttempt(ctx context.Context, attempt *charge.ChargeAttempt) error {
	if err := attempt.Validate(); err != nil {
		return err
	}

	q := r.client.Querier(ctx)
	res, err := sqlx.NamedExecContext(ctx, q, `
		INSERT INTO billing_charge_attempts (
			id, charge_id, attempt_number, attempt_status, channel, scheduled_for,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :charge_id, :attempt_number, :attempt_status, :channel, :scheduled_for,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)
		ON CONFLICT (charge_id, attempt_number) DO NOTHING`, attempt)
	if err != nil {
		return postgres.WrapError(err, "creating charge attempt")
	}
	if n, err := res.RowsAffected(); err != nil {
		return postgres.WrapError(err, "creating charge attempt")
	} else if n == 0 {
		return ierr.NewErrorf("attempt %d for charge %s already exists", attempt.AttemptNumber, attempt.ChargeID).
			WithHint("An attempt already exists for this charge and number").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (r *chargeRepository) GetAttemptByNumber(ctx context.Context, chargeID string, attemptNumber int) (*charge.ChargeAttempt, error) {
	q := r.client.Querier(ctx)
	var attempt charge.ChargeAttempt
	err := sqlx.GetContext(ctx, q, &attempt, `
		SELECT * FROM billing_charge_attempts
		WHERE charge_id = $1 AND attempt_number = $2 AND status != 'deleted'`,
		chargeID, attemptNumber)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ierr.NewErrorf("no attempt %d for charge %s", attemptNumber, chargeID).
				WithHint("Charge attempt does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, postgres.WrapError(err, "getting charge attempt")
	}
	return &attempt, nil
}

func (r *chargeRepository) ListAttempts(ctx context.Context, chargeID string) ([]*charge.ChargeAttempt, error) {
	q := r.client.Querier(ctx)
	var attempts []*charge.ChargeAttempt
	err := sqlx.SelectContext(ctx, q, &attempts, `
		SELECT * FROM billing_charge_attempts
		WHERE charge_id = $1 AND status != 'deleted'
		ORDER BY attempt_number ASC`, chargeID)
	if err != nil {
		return nil, postgres.WrapError(err, "listing charge attempts")
	}
	return attempts, nil
}
