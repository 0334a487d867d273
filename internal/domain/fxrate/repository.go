package fxrate

import (
	"context"
	"time"

	"github.com/andariego/andariego/internal/types"
)

// Repository defines the read-only interface over the fx rate series
type Repository interface {
	// GetByDate returns the exact quote for (fxType, date), or a not-found error
	GetByDate(ctx context.Context, fxType types.FxType, date time.Time) (*FxRate, error)

	// GetLatestUpTo returns the most recent quote at or before date, ordered
	// by rate_date descending then insertion order descending (latest
	// inserted wins a same-date tie), or a not-found error when the series
	// has no quote at all up to that date.
	GetLatestUpTo(ctx context.Context, fxType types.FxType, date time.Time) (*FxRate, error)
}
