package service

import (
	"context"
	"sync"
	"time"

	"github.com/andariego/andariego/internal/domain/fxrate"
	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/andariego/andariego/internal/types"
)

// FxResolver resolves the exchange rate for a date key, preferring an exact
// same-day quote and optionally falling back to the most recent prior quote.
//
// A resolver is owned by a single anchor run: the cache is run-scoped, so
// subscriptions sharing an anchor date hit the store once, and concurrent
// runs stay independent of each other.
type FxResolver struct {
	repo   fxrate.Repository
	fxType types.FxType
	loc    *time.Location

	mu    sync.Mutex
	cache map[string]*fxrate.FxRate
}

// NewFxResolver creates a resolver for one run. loc is the zone date keys are
// interpreted in.
func NewFxResolver(repo fxrate.Repository, fxType types.FxType, loc *time.Location) *FxResolver {
	return &FxResolver{
		repo:   repo,
		fxType: fxType,
		loc:    loc,
		cache:  make(map[string]*fxrate.FxRate),
	}
}

// Resolve returns the rate for dateKey. With allowFallback false a missing
// exact quote is ErrRateMissing; with it true the most recent quote at or
// before the date is used, and only an empty series is ErrNoRateAvailable.
// The returned rate carries its own (possibly earlier) rate date.
func (r *FxResolver) Resolve(ctx context.Context, dateKey string, allowFallback bool) (*fxrate.FxRate, error) {
	r.mu.Lock()
	if cached, ok := r.cache[dateKey]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	date, err := types.ParseDateKey(dateKey, r.loc)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Fx lookup key must be YYYY-MM-DD").
			Mark(ierr.ErrValidation)
	}

	rate, err := r.repo.GetByDate(ctx, r.fxType, date)
	if err != nil {
		if !ierr.IsNotFound(err) {
			return nil, err
		}
		if !allowFallback {
			return nil, fxrate.NewRateMissingError(dateKey)
		}
		rate, err = r.repo.GetLatestUpTo(ctx, r.fxType, date)
		if err != nil {
			if ierr.IsNotFound(err) {
				return nil, fxrate.NewNoRateAvailableError(dateKey)
			}
			return nil, err
		}
	}

	r.mu.Lock()
	r.cache[dateKey] = rate
	r.mu.Unlock()
	return rate, nil
}
