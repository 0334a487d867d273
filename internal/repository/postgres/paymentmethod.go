package postgres

import (
	"context"

	"github.com/andariego/andariego/internal/domain/paymentmethod"
	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/andariego/andariego/internal/logger"
	"github.com/andariego/andariego/internal/postgres"
	"github.com/jmoiron/sqlx"
)

type paymentMethodRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewPaymentMethodRepository creates a postgres-backed payment method repository
func NewPaymentMethodRepository(client postgres.IClient, logger *logger.Logger) paymentmethod.Repository {
	return &paymentMethodRepository{client: client, logger: logger}
}

func (r *paymentMethodRepository) Create(ctx context.Context, method *paymentmethod.PaymentMethod) error {
	q := r.client.Querier(ctx)
	_, err := sqlx.NamedExecContext(ctx, q, `
		INSERT INTO billing_payment_methods (
			id, subscription_id, agency_id, method_type, method_status,
			is_default, reference,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :subscription_id, :agency_id, :method_type, :method_status,
			:is_default, :reference,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`, method)
	if err != nil {
		return postgres.WrapError(err, "creating payment method")
	}
	return nil
}

func (r *paymentMethodRepository) Get(ctx context.Context, id string) (*paymentmethod.PaymentMethod, error) {
	q := r.client.Querier(ctx)
	var method paymentmethod.PaymentMethod
	err := sqlx.GetContext(ctx, q, &method, `
		SELECT * FROM billing_payment_methods
		WHERE id = $1 AND status != 'deleted'`, id)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ierr.NewErrorf("payment method %s not found", id).
				WithHint("Payment method does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, postgres.WrapError(err, "getting payment method")
	}
	return &method, nil
}

func (r *paymentMethodRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*paymentmethod.PaymentMethod, error) {
	q := r.client.Querier(ctx)
	var methods []*paymentmethod.PaymentMethod
	err := sqlx.SelectContext(ctx, q, &methods, `
		SELECT * FROM billing_payment_methods
		WHERE subscription_id = $1 AND status != 'deleted'
		ORDER BY is_default DESC, created_at DESC`, subscriptionID)
	if err != nil {
		return nil, postgres.WrapError(err, "listing payment methods")
	}
	return methods, nil
}
