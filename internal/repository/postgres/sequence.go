package postgres

import (
	"context"

	"github.com/andariego/andariego/internal/domain/sequence"
	"github.com/andariego/andariego/internal/logger"
	"github.com/andariego/andariego/internal/postgres"
)

type sequenceRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewSequenceRepository creates the postgres-backed per-agency counter service
func NewSequenceRepository(client postgres.IClient, logger *logger.Logger) sequence.Repository {
	return &sequenceRepository{client: client, logger: logger}
}

// Next increments the (agency, scope) counter with a single upsert. The row
// update serializes concurrent increments for one agency; different agencies
// touch different rows and proceed in parallel. Inside a transaction the
// increment commits or rolls back with the caller.
func (r *sequenceRepository) Next(ctx context.Context, agencyID int64, scope string) (int64, error) {
	q := r.client.Querier(ctx)
	var next int64
	err := q.QueryRowxContext(ctx, `
		INSERT INTO billing_agency_sequences (agency_id, scope, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (agency_id, scope)
		DO UPDATE SET value = billing_agency_sequences.value + 1
		RETURNING value`, agencyID, scope).Scan(&next)
	if err != nil {
		return 0, postgres.WrapError(err, "incrementing agency sequence")
	}
	return next, nil
}
