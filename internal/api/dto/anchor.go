package dto

import (
	"sort"
	"time"

	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// RunAnchorRequest is the invocation surface of the anchor engine, used both
// by the admin API and the one-shot job runner.
type RunAnchorRequest struct {
	// ReferenceDate selects the anchor month; zero means "now". Each
	// subscription's concrete anchor date is derived from this instant in its
	// own timezone.
	ReferenceDate time.Time `json:"reference_date"`
	// OverrideFx allows falling back to the most recent prior fx quote when
	// the anchor date has no exact quote.
	OverrideFx bool `json:"override_fx"`
	// ActorUserID is recorded as the acting user on everything the run creates
	ActorUserID string `json:"actor_user_id,omitempty"`
	// ActorAgencyID is set when an agency-scoped operator triggers the run;
	// it requires and bounds the agency filter
	ActorAgencyID int64 `json:"actor_agency_id,omitempty"`
	// AgencyIDs optionally restricts the run to a subset of agencies
	AgencyIDs []int64 `json:"agency_ids,omitempty"`
}

// Validate checks structural validity and normalizes the agency filter to a
// deduplicated ascending set. Structural errors fail the whole call before
// any subscription is touched.
func (r *RunAnchorRequest) Validate() error {
	for _, id := range r.AgencyIDs {
		if id <= 0 {
			return ierr.NewErrorf("invalid agency id %d in filter", id).
				WithHint("Agency ids must be positive").
				Mark(ierr.ErrValidation)
		}
	}

	if r.ActorAgencyID > 0 {
		if len(r.AgencyIDs) == 0 {
			return ierr.NewError("agency filter required").
				WithHint("An agency-scoped actor must name the agencies to process").
				Mark(ierr.ErrValidation)
		}
		for _, id := range r.AgencyIDs {
			if id != r.ActorAgencyID {
				return ierr.NewErrorf("agency %d outside actor scope", id).
					WithHint("An agency-scoped actor may only process its own agency").
					Mark(ierr.ErrPermissionDenied)
			}
		}
	}

	r.AgencyIDs = lo.Uniq(r.AgencyIDs)
	sort.Slice(r.AgencyIDs, func(i, j int) bool { return r.AgencyIDs[i] < r.AgencyIDs[j] })
	return nil
}

// RunAnchorError is one per-subscription failure surfaced in the summary
type RunAnchorError struct {
	AgencyID int64  `json:"agency_id"`
	Message  string `json:"message"`
}

// RunAnchorSummary is the single source of truth for what a run did. Callers
// must inspect Errors rather than relying on a returned error to detect
// partial failure: per-subscription failures never abort the run.
type RunAnchorSummary struct {
	// AnchorDateKey is the requested reference date rendered in the engine's
	// default timezone, for reporting
	AnchorDateKey string `json:"anchor_date_key"`
	// FxFallbackAllowed echoes whether fallback was requested
	FxFallbackAllowed bool `json:"fx_fallback_allowed"`

	SubscriptionsProcessed int `json:"subscriptions_processed"`
	CyclesCreated          int `json:"cycles_created"`
	ChargesCreated         int `json:"charges_created"`
	AttemptsCreated        int `json:"attempts_created"`
	// SkippedIdempotent counts subscriptions where nothing at all was newly
	// created (a fully idempotent re-run)
	SkippedIdempotent int `json:"skipped_idempotent"`

	// FxRatesUsed maps the *actual* rate date key used (post-fallback) to the
	// rate, which makes fallback staleness visible
	FxRatesUsed map[string]decimal.Decimal `json:"fx_rates_used"`

	Errors []RunAnchorError `json:"errors"`
}

// HasErrors reports whether the run had partial failures
func (s *RunAnchorSummary) HasErrors() bool {
	return len(s.Errors) > 0
}
