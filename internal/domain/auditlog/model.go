package auditlog

import (
	"context"
	"encoding/json"
	"time"

	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/andariego/andariego/internal/types"
)

// Event types appended by the anchor engine
const (
	EventTypeAnchorRun = "billing.anchor_run"
)

// Event is one append-only audit trail entry
type Event struct {
	// Unique identifier for this event
	ID string `db:"id" json:"id"`
	// The agency_id the event belongs to
	AgencyID int64 `db:"agency_id" json:"agency_id"`
	// The subscription_id the event belongs to, empty for agency-level events
	SubscriptionID string `db:"subscription_id" json:"subscription_id"`
	// The event_type names what happened
	EventType string `db:"event_type" json:"event_type"`
	// The payload holds event-specific details, stored serialized
	Payload map[string]any `json:"payload,omitempty"`
	// The created_by records the acting user
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NewEvent builds an event stamped with the acting user from the context
func NewEvent(ctx context.Context, agencyID int64, subscriptionID string, eventType string, payload map[string]any) *Event {
	return &Event{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_AUDIT_EVENT),
		AgencyID:       agencyID,
		SubscriptionID: subscriptionID,
		EventType:      eventType,
		Payload:        payload,
		CreatedBy:      types.GetUserID(ctx),
		CreatedAt:      time.Now().UTC(),
	}
}

// SerializePayload renders the payload for opaque storage
func (e *Event) SerializePayload() ([]byte, error) {
	if e.Payload == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to serialize audit payload").
			Mark(ierr.ErrSystem)
	}
	return data, nil
}
