package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/andariego/andariego/internal/domain/auditlog"
	"github.com/andariego/andariego/internal/logger"
	"github.com/andariego/andariego/internal/postgres"
	"github.com/jmoiron/sqlx"
)

type auditLogRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewAuditLogRepository creates a postgres-backed audit log repository
func NewAuditLogRepository(client postgres.IClient, logger *logger.Logger) auditlog.Repository {
	return &auditLogRepository{client: client, logger: logger}
}

type auditEventRow struct {
	ID             string    `db:"id"`
	AgencyID       int64     `db:"agency_id"`
	SubscriptionID string    `db:"subscription_id"`
	EventType      string    `db:"event_type"`
	Payload        []byte    `db:"payload"`
	CreatedBy      string    `db:"created_by"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r *auditLogRepository) Append(ctx context.Context, event *auditlog.Event) error {
	payload, err := event.SerializePayload()
	if err != nil {
		return err
	}

	q := r.client.Querier(ctx)
	_, err = sqlx.NamedExecContext(ctx, q, `
		INSERT INTO billing_audit_events (
			id, agency_id, subscription_id, event_type, payload, created_by, created_at
		) VALUES (
			:id, :agency_id, :subscription_id, :event_type, :payload, :created_by, :created_at
		)`, &auditEventRow{
		ID:             event.ID,
		AgencyID:       event.AgencyID,
		SubscriptionID: event.SubscriptionID,
		EventType:      event.EventType,
		Payload:        payload,
		CreatedBy:      event.CreatedBy,
		CreatedAt:      event.CreatedAt,
	})
	if err != nil {
		return postgres.WrapError(err, "appending audit event")
	}
	return nil
}

func (r *auditLogRepository) ListBySubscription(ctx context.Context, subscriptionID string, limit int) ([]*auditlog.Event, error) {
	if limit <= 0 {
		limit = 50
	}

	q := r.client.Querier(ctx)
	var rows []*auditEventRow
	err := sqlx.SelectContext(ctx, q, &rows, `
		SELECT * FROM billing_audit_events
		WHERE subscription_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, subscriptionID, limit)
	if err != nil {
		return nil, postgres.WrapError(err, "listing audit events")
	}

	events := make([]*auditlog.Event, 0, len(rows))
	for _, row := range rows {
		event := &auditlog.Event{
			ID:             row.ID,
			AgencyID:       row.AgencyID,
			SubscriptionID: row.SubscriptionID,
			EventType:      row.EventType,
			CreatedBy:      row.CreatedBy,
			CreatedAt:      row.CreatedAt,
		}
		if len(row.Payload) > 0 {
			if err := json.Unmarshal(row.Payload, &event.Payload); err != nil {
				r.logger.Warnw("skipping unreadable audit payload", "event_id", row.ID, "error", err)
			}
		}
		events = append(events, event)
	}
	return events, nil
}
