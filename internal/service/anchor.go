package service

import (
	"context"
	"time"

	"github.com/andariego/andariego/internal/api/dto"
	"github.com/andariego/andariego/internal/domain/auditlog"
	"github.com/andariego/andariego/internal/domain/billingcycle"
	"github.com/andariego/andariego/internal/domain/charge"
	"github.com/andariego/andariego/internal/domain/fxrate"
	"github.com/andariego/andariego/internal/domain/paymentmethod"
	"github.com/andariego/andariego/internal/domain/pricing"
	"github.com/andariego/andariego/internal/domain/sequence"
	"github.com/andariego/andariego/internal/domain/subscription"
	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/andariego/andariego/internal/idempotency"
	"github.com/andariego/andariego/internal/types"
	"github.com/shopspring/decimal"
)

// AnchorService runs the recurring billing anchor process
type AnchorService interface {
	// RunAnchor processes every active subscription whose anchor date falls
	// in the reference month. Safe to invoke repeatedly for the same date:
	// every creation step is a find-or-create guarded by a unique key.
	RunAnchor(ctx context.Context, req *dto.RunAnchorRequest) (*dto.RunAnchorSummary, error)
}

type anchorService struct {
	ServiceParams
	idempGen *idempotency.Generator
}

// NewAnchorService creates a new anchor service
func NewAnchorService(params ServiceParams) AnchorService {
	return &anchorService{
		ServiceParams: params,
		idempGen:      idempotency.NewGenerator(),
	}
}

// subscriptionResult is what one subscription contributed to the run
type subscriptionResult struct {
	cycleCreated    bool
	chargeCreated   bool
	attemptsCreated int
	rateDateKey     string
	rate            decimal.Decimal
}

func (r *subscriptionResult) createdAnything() bool {
	return r.cycleCreated || r.chargeCreated || r.attemptsCreated > 0
}

func (s *anchorService) RunAnchor(ctx context.Context, req *dto.RunAnchorRequest) (*dto.RunAnchorSummary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.ActorUserID != "" {
		ctx = types.SetUserID(ctx, req.ActorUserID)
	}

	ref := req.ReferenceDate
	if ref.IsZero() {
		ref = time.Now().UTC()
	}
	defLoc := s.Config.Billing.DefaultLocation()

	summary := &dto.RunAnchorSummary{
		AnchorDateKey:     types.DateKey(ref, defLoc),
		FxFallbackAllowed: req.OverrideFx,
		FxRatesUsed:       make(map[string]decimal.Decimal),
	}

	subs, err := s.SubscriptionRepo.ListActive(ctx, req.AgencyIDs)
	if err != nil {
		return nil, err
	}

	// one resolver per run: the fx cache must not outlive or leak across runs
	resolver := NewFxResolver(s.FxRateRepo, types.FxTypeReference, defLoc)

	for _, sub := range subs {
		summary.SubscriptionsProcessed++

		res, err := s.processSubscription(ctx, sub, ref, req.OverrideFx, resolver)
		if res != nil {
			// every rate that resolved is reported, whether or not the
			// subscription's transaction went on to commit
			summary.FxRatesUsed[res.rateDateKey] = res.rate
		}
		if err != nil {
			// a failed subscription never aborts its siblings
			s.Logger.Errorw("anchor processing failed for subscription",
				"subscription_id", sub.ID,
				"agency_id", sub.AgencyID,
				"error", err,
			)
			summary.Errors = append(summary.Errors, dto.RunAnchorError{
				AgencyID: sub.AgencyID,
				Message:  err.Error(),
			})
			continue
		}

		if res.cycleCreated {
			summary.CyclesCreated++
		}
		if res.chargeCreated {
			summary.ChargesCreated++
		}
		summary.AttemptsCreated += res.attemptsCreated
		if !res.createdAnything() {
			summary.SkippedIdempotent++
		}
	}

	s.Logger.Infow("anchor run finished",
		"anchor_date_key", summary.AnchorDateKey,
		"processed", summary.SubscriptionsProcessed,
		"cycles_created", summary.CyclesCreated,
		"charges_created", summary.ChargesCreated,
		"attempts_created", summary.AttemptsCreated,
		"skipped_idempotent", summary.SkippedIdempotent,
		"errors", len(summary.Errors),
	)
	return summary, nil
}

func (s *anchorService) processSubscription(
	ctx context.Context,
	sub *subscription.Subscription,
	ref time.Time,
	allowFallback bool,
	resolver *FxResolver,
) (*subscriptionResult, error) {
	defLoc := s.Config.Billing.DefaultLocation()
	loc := sub.Location(defLoc)
	anchorDay := sub.EffectiveAnchorDay(s.Config.Billing.DefaultAnchorDay)

	anchorDate := types.AnchorDateForMonth(ref, anchorDay, loc)
	anchorDateKey := types.DateKey(anchorDate, loc)

	rate, err := resolver.Resolve(ctx, anchorDateKey, allowFallback)
	if err != nil {
		return nil, err
	}

	res := &subscriptionResult{
		// report the rate under the date actually used, so a stale fallback
		// is visible in the summary
		rateDateKey: rate.DateKey(defLoc),
		rate:        rate.ArsPerUsd,
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		methods, err := s.PaymentMethodRepo.ListBySubscription(ctx, sub.ID)
		if err != nil {
			return err
		}
		method := paymentmethod.PreferredForCollection(methods)

		var methodType *types.PaymentMethodType
		if method != nil {
			methodType = &method.MethodType
		}

		snap, err := s.PricingBuilder.Build(ctx, pricing.BuildInput{
			AgencyID:                sub.AgencyID,
			SubscriptionID:          sub.ID,
			SubscriptionDiscountPct: sub.DiscountPct,
			MethodType:              methodType,
			FxRateDate:              rate.RateDate,
			FxRateArsPerUsd:         rate.ArsPerUsd,
			AnchorDate:              anchorDate,
		})
		if err != nil {
			return err
		}

		cycle, cycleCreated, err := s.findOrCreateCycle(ctx, sub, anchorDate, anchorDateKey, anchorDay, loc, rate, snap)
		if err != nil {
			return err
		}
		res.cycleCreated = cycleCreated

		chg, chargeCreated, err := s.findOrCreateCharge(ctx, sub, cycle, method, loc)
		if err != nil {
			return err
		}
		res.chargeCreated = chargeCreated

		attemptsCreated, err := s.ensureAttempts(ctx, chg, loc)
		if err != nil {
			return err
		}
		res.attemptsCreated = attemptsCreated

		next := types.NextAnchorDate(anchorDate, anchorDay, loc)
		if err := s.SubscriptionRepo.UpdateNextAnchorDate(ctx, sub.ID, next); err != nil {
			return err
		}

		return s.AuditRepo.Append(ctx, auditlog.NewEvent(ctx, sub.AgencyID, sub.ID,
			auditlog.EventTypeAnchorRun, map[string]any{
				"anchor_date_key":  anchorDateKey,
				"cycle_id":         cycle.ID,
				"cycle_created":    cycleCreated,
				"charge_id":        chg.ID,
				"charge_created":   chargeCreated,
				"attempts_created": attemptsCreated,
				"fx_rate_date":     rate.DateKey(defLoc),
				"fx_ars_per_usd":   rate.ArsPerUsd.String(),
			}))
	})
	// the result carries the resolved rate for the run summary even when the
	// transaction failed
	return res, err
}

// findOrCreateCycle freezes the billing cycle for (subscription, anchorDate),
// or returns the already-frozen one. A found cycle keeps its stored amounts:
// the fresh snapshot is discarded, a cycle never re-prices.
func (s *anchorService) findOrCreateCycle(
	ctx context.Context,
	sub *subscription.Subscription,
	anchorDate time.Time,
	anchorDateKey string,
	anchorDay int,
	loc *time.Location,
	rate *fxrate.FxRate,
	snap *pricing.Snapshot,
) (*billingcycle.BillingCycle, bool, error) {
	existing, err := s.CycleRepo.GetBySubscriptionAnchor(ctx, sub.ID, anchorDate)
	if err == nil {
		return existing, false, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, false, err
	}

	nextAnchor := types.NextAnchorDate(anchorDate, anchorDay, loc)
	cycle := &billingcycle.BillingCycle{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_CYCLE),
		SubscriptionID: sub.ID,
		AgencyID:       sub.AgencyID,
		AnchorDate:     anchorDate,
		AnchorDateKey:  anchorDateKey,
		PeriodStart:    anchorDate,
		PeriodEnd:      types.AddDaysLocal(nextAnchor, -1, loc),
		FxType:         types.FxTypeReference,
		FxRate:         rate.ArsPerUsd,
		FxRateDate:     rate.RateDate,
		BaseUSD:        snap.BaseUSD,
		AddonsUSD:      snap.AddonsUSD,
		DiscountUSD:    snap.DiscountUSD,
		VatUSD:         snap.VatUSD,
		NetUSD:         snap.NetUSD,
		TotalUSD:       snap.TotalUSD,
		BaseARS:        snap.BaseARS,
		AddonsARS:      snap.AddonsARS,
		DiscountARS:    snap.DiscountARS,
		VatARS:         snap.VatARS,
		NetARS:         snap.NetARS,
		TotalARS:       snap.TotalARS,
		PlanSnapshot:   snap.Plan,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}

	if err := s.CycleRepo.Create(ctx, cycle); err != nil {
		if ierr.IsAlreadyExists(err) {
			// concurrent run won the race: adopt its cycle
			found, ferr := s.CycleRepo.GetBySubscriptionAnchor(ctx, sub.ID, anchorDate)
			if ferr != nil {
				return nil, false, ferr
			}
			return found, false, nil
		}
		return nil, false, err
	}
	return cycle, true, nil
}

// findOrCreateCharge creates the charge for the cycle's anchor date, or
// returns the existing one. Amounts always come from the frozen cycle, never
// from a fresh pricing pass.
func (s *anchorService) findOrCreateCharge(
	ctx context.Context,
	sub *subscription.Subscription,
	cycle *billingcycle.BillingCycle,
	method *paymentmethod.PaymentMethod,
	loc *time.Location,
) (*charge.Charge, bool, error) {
	key := s.idempGen.ChargeKey(sub.AgencyID, cycle.AnchorDateKey)

	existing, err := s.ChargeRepo.GetByIdempotencyKey(ctx, sub.AgencyID, key)
	if err == nil {
		return existing, false, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, false, err
	}

	// sequence increment stays inside the transaction so a rollback does not
	// burn a visible charge number
	seq, err := s.SequenceRepo.Next(ctx, sub.AgencyID, sequence.ScopeAgencyBillingCharge)
	if err != nil {
		return nil, false, err
	}

	channel := types.CollectionChannelDirectDebit
	var methodID *string
	var methodType *types.PaymentMethodType
	if method != nil {
		methodID = &method.ID
		methodType = &method.MethodType
		channel = method.MethodType.CollectionChannel()
	}

	chg := &charge.Charge{
		ID:                   types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CHARGE),
		Number:               charge.FormatNumber(sub.AgencyID, seq),
		AgencyID:             sub.AgencyID,
		SubscriptionID:       sub.ID,
		CycleID:              cycle.ID,
		IdempotencyKey:       key,
		Label:                charge.FormatLabel(cycle.AnchorDate, loc),
		DueDate:              cycle.AnchorDate,
		ChargeStatus:         types.ChargeStatusReady,
		Kind:                 types.ChargeKindRecurring,
		BaseUSD:              cycle.BaseUSD,
		AddonsUSD:            cycle.AddonsUSD,
		DiscountUSD:          cycle.DiscountUSD,
		VatUSD:               cycle.VatUSD,
		TotalUSD:             cycle.TotalUSD,
		FxRate:               cycle.FxRate,
		AmountDueARS:         cycle.TotalARS,
		PaymentMethodID:      methodID,
		PaymentMethodType:    methodType,
		Channel:              channel,
		ReconciliationStatus: types.ReconciliationStatusPending,
		DunningStage:         0,
		BaseModel:            types.GetDefaultBaseModel(ctx),
	}

	if err := s.ChargeRepo.Create(ctx, chg); err != nil {
		if ierr.IsAlreadyExists(err) {
			found, ferr := s.ChargeRepo.GetByIdempotencyKey(ctx, sub.AgencyID, key)
			if ferr != nil {
				return nil, false, ferr
			}
			return found, false, nil
		}
		return nil, false, err
	}
	return chg, true, nil
}

// ensureAttempts creates any missing scheduled attempts for the charge and
// returns how many were newly created. Attempt numbers follow the normalized
// offset list in ascending order; existing attempts are left untouched.
func (s *anchorService) ensureAttempts(ctx context.Context, chg *charge.Charge, loc *time.Location) (int, error) {
	offsets := types.NormalizeRetryOffsets(s.Config.Billing.DunningRetryDays)

	created := 0
	for i, offset := range offsets {
		attemptNumber := i + 1

		_, err := s.ChargeRepo.GetAttemptByNumber(ctx, chg.ID, attemptNumber)
		if err == nil {
			continue
		}
		if !ierr.IsNotFound(err) {
			return created, err
		}

		attempt := &charge.ChargeAttempt{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CHARGE_ATTEMPT),
			ChargeID:      chg.ID,
			AttemptNumber: attemptNumber,
			AttemptStatus: types.AttemptStatusPending,
			Channel:       chg.Channel,
			ScheduledFor:  s.scheduleAttempt(chg.DueDate, offset, loc),
			BaseModel:     types.GetDefaultBaseModel(ctx),
		}
		if err := s.ChargeRepo.CreateAttempt(ctx, attempt); err != nil {
			if ierr.IsAlreadyExists(err) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}

// scheduleAttempt computes when an attempt goes out: business days when
// configured and the subscription lives in the business calendar's region,
// calendar days otherwise. Offset 0 is always the due date itself.
func (s *anchorService) scheduleAttempt(dueDate time.Time, offset int, loc *time.Location) time.Time {
	if offset == 0 {
		return dueDate
	}
	if s.Config.Billing.DunningBusinessDays &&
		s.BusinessCalendar != nil &&
		s.BusinessCalendar.Region() == loc.String() {
		return s.BusinessCalendar.AddBusinessDays(dueDate, offset)
	}
	return types.AddDaysLocal(dueDate, offset, loc)
}
