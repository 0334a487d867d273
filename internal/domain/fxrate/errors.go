package fxrate

import (
	"github.com/andariego/andariego/internal/errors"
)

// Error codes specific to fx rate resolution
const (
	ErrCodeRateMissing     = "FX_RATE_MISSING"
	ErrCodeNoRateAvailable = "FX_NO_RATE_AVAILABLE"
)

// Common fx resolution errors. Both are recoverable at the per-subscription
// boundary: the run records them and continues with the next subscription.
var (
	// ErrRateMissing: no exact quote for the requested date and fallback was
	// not allowed
	ErrRateMissing = errors.New(ErrCodeRateMissing, "no fx rate for requested date")
	// ErrNoRateAvailable: fallback was allowed but the series has no quote at
	// or before the requested date
	ErrNoRateAvailable = errors.New(ErrCodeNoRateAvailable, "no fx rate available at or before requested date")
)

// NewRateMissingError names the date that had no exact quote
func NewRateMissingError(dateKey string) error {
	return errors.Wrap(ErrRateMissing, ErrCodeRateMissing,
		"no fx rate for date "+dateKey)
}

// NewNoRateAvailableError names the date with an empty series behind it
func NewNoRateAvailableError(dateKey string) error {
	return errors.Wrap(ErrNoRateAvailable, ErrCodeNoRateAvailable,
		"no fx rate available at or before "+dateKey)
}
