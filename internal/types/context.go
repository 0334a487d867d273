package types

import (
	"context"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID     ContextKey = "ctx_request_id"
	CtxUserID        ContextKey = "ctx_user_id"
	CtxAgencyID      ContextKey = "ctx_agency_id"
	CtxDBTransaction ContextKey = "ctx_db_transaction"

	// DefaultUserID is recorded as the actor for unattended runs (cron triggers)
	DefaultUserID = "system"
)

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok && userID != "" {
		return userID
	}
	return DefaultUserID
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

// GetAgencyID returns the acting agency id from the context, 0 when absent
func GetAgencyID(ctx context.Context) int64 {
	if agencyID, ok := ctx.Value(CtxAgencyID).(int64); ok {
		return agencyID
	}
	return 0
}

// SetUserID sets the acting user id in the context
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

// SetAgencyID sets the acting agency id in the context
func SetAgencyID(ctx context.Context, agencyID int64) context.Context {
	return context.WithValue(ctx, CtxAgencyID, agencyID)
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, CtxRequestID, requestID)
}
