package postgres

import (
	"context"
	"time"

	"github.com/andariego/andariego/internal/domain/fxrate"
	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/andariego/andariego/internal/logger"
	"github.com/andariego/andariego/internal/postgres"
	"github.com/andariego/andariego/internal/types"
	"github.com/jmoiron/sqlx"
)

type fxRateRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewFxRateRepository creates a postgres-backed read-only fx rate repository
func NewFxRateRepository(client postgres.IClient, logger *logger.Logger) fxrate.Repository {
	return &fxRateRepository{client: client, logger: logger}
}

func (r *fxRateRepository) GetByDate(ctx context.Context, fxType types.FxType, date time.Time) (*fxrate.FxRate, error) {
	q := r.client.Querier(ctx)
	var rate fxrate.FxRate
	err := sqlx.GetContext(ctx, q, &rate, `
		SELECT * FROM fx_rates
		WHERE fx_type = $1 AND rate_date = $2
		ORDER BY id DESC
		LIMIT 1`, fxType, date)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ierr.NewErrorf("no %s fx rate on %s", fxType, date.Format(types.DateKeyFormat)).
				WithHint("No exact fx rate quote for date").
				Mark(ierr.ErrNotFound)
		}
		return nil, postgres.WrapError(err, "getting fx rate")
	}
	return &rate, nil
}

func (r *fxRateRepository) GetLatestUpTo(ctx context.Context, fxType types.FxType, date time.Time) (*fxrate.FxRate, error) {
	q := r.client.Querier(ctx)
	var rate fxrate.FxRate
	// latest date wins; same-date ties go to the latest inserted quote
	err := sqlx.GetContext(ctx, q, &rate, `
		SELECT * FROM fx_rates
		WHERE fx_type = $1 AND rate_date <= $2
		ORDER BY rate_date DESC, id DESC
		LIMIT 1`, fxType, date)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ierr.NewErrorf("no %s fx rate at or before %s", fxType, date.Format(types.DateKeyFormat)).
				WithHint("Fx rate series is empty up to date").
				Mark(ierr.ErrNotFound)
		}
		return nil, postgres.WrapError(err, "getting latest fx rate")
	}
	return &rate, nil
}
