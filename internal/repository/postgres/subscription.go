package postgres

import (
	"context"
	"time"

	"github.com/andariego/andariego/internal/domain/subscription"
	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/andariego/andariego/internal/logger"
	"github.com/andariego/andariego/internal/postgres"
	"github.com/jmoiron/sqlx"
)

type subscriptionRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewSubscriptionRepository creates a postgres-backed subscription repository
func NewSubscriptionRepository(client postgres.IClient, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{client: client, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	q := r.client.Querier(ctx)
	_, err := sqlx.NamedExecContext(ctx, q, `
		INSERT INTO billing_subscriptions (
			id, agency_id, subscription_status, anchor_day, timezone,
			discount_pct, next_anchor_date,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :agency_id, :subscription_status, :anchor_day, :timezone,
			:discount_pct, :next_anchor_date,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`, sub)
	if err != nil {
		return postgres.WrapError(err, "creating subscription")
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	q := r.client.Querier(ctx)
	var sub subscription.Subscription
	err := sqlx.GetContext(ctx, q, &sub, `
		SELECT * FROM billing_subscriptions
		WHERE id = $1 AND status != 'deleted'`, id)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ierr.NewErrorf("subscription %s not found", id).
				WithHint("Subscription does not exist").
				Mark(ierr.ErrNotFound)
		}
		return nil, postgres.WrapError(err, "getting subscription")
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListActive(ctx context.Context, agencyIDs []int64) ([]*subscription.Subscription, error) {
	q := r.client.Querier(ctx)

	query := `
		SELECT * FROM billing_subscriptions
		WHERE subscription_status = 'ACTIVE' AND status != 'deleted'`
	args := []interface{}{}
	if len(agencyIDs) > 0 {
		var err error
		query, args, err = sqlx.In(query+` AND agency_id IN (?)`, agencyIDs)
		if err != nil {
			return nil, postgres.WrapError(err, "building subscription filter")
		}
		query = sqlx.Rebind(sqlx.DOLLAR, query)
	}
	query += ` ORDER BY agency_id ASC`

	var subs []*subscription.Subscription
	if err := sqlx.SelectContext(ctx, q, &subs, query, args...); err != nil {
		return nil, postgres.WrapError(err, "listing active subscriptions")
	}
	return subs, nil
}

func (r *subscriptionRepository) UpdateNextAnchorDate(ctx context.Context, id string, next time.Time) error {
	q := r.client.Querier(ctx)
	res, err := q.ExecContext(ctx, `
		UPDATE billing_subscriptions
		SET next_anchor_date = $1, updated_at = NOW()
		WHERE id = $2`, next, id)
	if err != nil {
		return postgres.WrapError(err, "updating next anchor date")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ierr.NewErrorf("subscription %s not found", id).
			WithHint("Subscription does not exist").
			Mark(ierr.ErrNotFound)
	}
	return nil
}
