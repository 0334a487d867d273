package service

import (
	"context"
	"testing"
	"time"

	"github.com/andariego/andariego/internal/api/dto"
	"github.com/andariego/andariego/internal/domain/auditlog"
	"github.com/andariego/andariego/internal/domain/billingcycle"
	"github.com/andariego/andariego/internal/domain/bizcal"
	"github.com/andariego/andariego/internal/domain/charge"
	"github.com/andariego/andariego/internal/domain/fxrate"
	"github.com/andariego/andariego/internal/domain/paymentmethod"
	"github.com/andariego/andariego/internal/domain/subscription"
	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/andariego/andariego/internal/testutil"
	"github.com/andariego/andariego/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type AnchorServiceTestSuite struct {
	testutil.BaseServiceTestSuite
	service AnchorService
	pricing *testutil.FakePricingBuilder
	loc     *time.Location
}

func TestAnchorServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AnchorServiceTestSuite))
}

func (s *AnchorServiceTestSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.pricing = testutil.NewFakePricingBuilder(decimal.NewFromInt(100))
	s.loc = s.GetConfig().Billing.DefaultLocation()
	s.buildService(nil)
}

// buildService wires the anchor service over the suite's stores; mutate swaps
// individual repositories before construction
func (s *AnchorServiceTestSuite) buildService(mutate func(p *ServiceParams)) {
	calendar, err := bizcal.NewWeekendCalendar(s.GetConfig().Billing.DefaultTimezone)
	s.Require().NoError(err)

	stores := s.GetStores()
	params := ServiceParams{
		Logger:            s.GetLogger(),
		Config:            s.GetConfig(),
		DB:                s.GetDB(),
		SubscriptionRepo:  stores.SubscriptionRepo,
		PaymentMethodRepo: stores.PaymentMethodRepo,
		CycleRepo:         stores.CycleRepo,
		ChargeRepo:        stores.ChargeRepo,
		FxRateRepo:        stores.FxRateRepo,
		AuditRepo:         stores.AuditRepo,
		SequenceRepo:      stores.SequenceRepo,
		PricingBuilder:    s.pricing,
		BusinessCalendar:  calendar,
	}
	if mutate != nil {
		mutate(&params)
	}
	s.service = NewAnchorService(params)
}

func (s *AnchorServiceTestSuite) createSubscription(agencyID int64, anchorDay int) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		AgencyID:           agencyID,
		SubscriptionStatus: types.SubscriptionStatusActive,
		AnchorDay:          anchorDay,
		DiscountPct:        decimal.Zero,
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), sub))
	return sub
}

func (s *AnchorServiceTestSuite) createPaymentMethod(sub *subscription.Subscription, methodType types.PaymentMethodType, status types.PaymentMethodStatus, isDefault bool) *paymentmethod.PaymentMethod {
	pm := &paymentmethod.PaymentMethod{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_METHOD),
		SubscriptionID: sub.ID,
		AgencyID:       sub.AgencyID,
		MethodType:     methodType,
		MethodStatus:   status,
		IsDefault:      isDefault,
		Reference:      "****1234",
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().PaymentMethodRepo.Create(s.GetContext(), pm))
	return pm
}

func (s *AnchorServiceTestSuite) addRate(dateKey string, rate string) {
	date, err := types.ParseDateKey(dateKey, s.loc)
	s.Require().NoError(err)
	s.GetStores().FxRateRepo.(*testutil.InMemoryFxRateStore).Add(&fxrate.FxRate{
		FxType:    types.FxTypeReference,
		RateDate:  date,
		ArsPerUsd: decimal.RequireFromString(rate),
	})
}

func (s *AnchorServiceTestSuite) run(req *dto.RunAnchorRequest) *dto.RunAnchorSummary {
	summary, err := s.service.RunAnchor(s.GetContext(), req)
	s.Require().NoError(err)
	s.Require().NotNil(summary)
	return summary
}

func (s *AnchorServiceTestSuite) febRequest() *dto.RunAnchorRequest {
	return &dto.RunAnchorRequest{
		ReferenceDate: time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC),
	}
}

func (s *AnchorServiceTestSuite) TestFirstRunCreatesCycleChargeAndAttempts() {
	sub := s.createSubscription(1, 1)
	s.createPaymentMethod(sub, types.PaymentMethodTypeDirectDebit, types.PaymentMethodStatusActive, true)
	s.addRate("2024-02-01", "800")

	summary := s.run(s.febRequest())

	s.Equal(1, summary.SubscriptionsProcessed)
	s.Equal(1, summary.CyclesCreated)
	s.Equal(1, summary.ChargesCreated)
	s.Equal(3, summary.AttemptsCreated)
	s.Equal(0, summary.SkippedIdempotent)
	s.False(summary.HasErrors())

	chg, err := s.GetStores().ChargeRepo.GetByIdempotencyKey(s.GetContext(), 1, "1-2024-02-01")
	s.Require().NoError(err)
	s.Equal("AB-1-000001", chg.Number)
	s.Equal("Suscripción Febrero 2024", chg.Label)
	s.Equal(types.ChargeStatusReady, chg.ChargeStatus)
	s.Equal(types.ChargeKindRecurring, chg.Kind)
	s.Equal(types.ReconciliationStatusPending, chg.ReconciliationStatus)
	s.Equal(0, chg.DunningStage)
	s.Equal("2024-02-01", types.DateKey(chg.DueDate, s.loc))

	// base 100, vat 21, no discount, rate 800
	s.True(chg.TotalUSD.Equal(decimal.NewFromInt(121)))
	s.True(chg.AmountDueARS.Equal(decimal.NewFromInt(96800)))
	s.True(chg.FxRate.Equal(decimal.NewFromInt(800)))

	cycle, err := s.GetStores().CycleRepo.Get(s.GetContext(), chg.CycleID)
	s.Require().NoError(err)
	s.Equal("2024-02-01", cycle.AnchorDateKey)
	s.Equal("2024-02-01", types.DateKey(cycle.PeriodStart, s.loc))
	s.Equal("2024-02-29", types.DateKey(cycle.PeriodEnd, s.loc))
	s.Require().NotNil(cycle.PlanSnapshot)
	s.NoError(cycle.PlanSnapshot.Validate())

	rate, ok := summary.FxRatesUsed["2024-02-01"]
	s.True(ok)
	s.True(rate.Equal(decimal.NewFromInt(800)))
}

func (s *AnchorServiceTestSuite) TestRerunIsFullyIdempotent() {
	sub := s.createSubscription(1, 1)
	s.createPaymentMethod(sub, types.PaymentMethodTypeDirectDebit, types.PaymentMethodStatusActive, true)
	s.addRate("2024-02-01", "800")

	first := s.run(s.febRequest())
	s.Equal(1, first.CyclesCreated)

	second := s.run(s.febRequest())
	s.Equal(1, second.SubscriptionsProcessed)
	s.Equal(0, second.CyclesCreated)
	s.Equal(0, second.ChargesCreated)
	s.Equal(0, second.AttemptsCreated)
	s.Equal(1, second.SkippedIdempotent)
	s.False(second.HasErrors())

	// the fx rate used is still reported on the no-op run
	rate, ok := second.FxRatesUsed["2024-02-01"]
	s.True(ok)
	s.True(rate.Equal(decimal.NewFromInt(800)))
}

func (s *AnchorServiceTestSuite) TestAttemptScheduleFollowsRetryOffsets() {
	sub := s.createSubscription(1, 1)
	s.createPaymentMethod(sub, types.PaymentMethodTypeDirectDebit, types.PaymentMethodStatusActive, true)
	s.addRate("2024-02-01", "800")

	s.run(s.febRequest())

	chg, err := s.GetStores().ChargeRepo.GetByIdempotencyKey(s.GetContext(), 1, "1-2024-02-01")
	s.Require().NoError(err)

	attempts, err := s.GetStores().ChargeRepo.ListAttempts(s.GetContext(), chg.ID)
	s.Require().NoError(err)
	s.Require().Len(attempts, 3)

	// offsets [0,3,7] from the due date, attempt numbers by position
	wantDates := []string{"2024-02-01", "2024-02-04", "2024-02-08"}
	for i, a := range attempts {
		s.Equal(i+1, a.AttemptNumber)
		s.Equal(types.AttemptStatusPending, a.AttemptStatus)
		s.Equal(chg.Channel, a.Channel)
		s.Equal(wantDates[i], types.DateKey(a.ScheduledFor, s.loc))
	}
}

func (s *AnchorServiceTestSuite) TestBusinessDayScheduling() {
	s.GetConfig().Billing.DunningBusinessDays = true
	defer func() { s.GetConfig().Billing.DunningBusinessDays = false }()

	sub := s.createSubscription(1, 1)
	s.createPaymentMethod(sub, types.PaymentMethodTypeDirectDebit, types.PaymentMethodStatusActive, true)
	s.addRate("2024-03-01", "850")

	s.run(&dto.RunAnchorRequest{
		ReferenceDate: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
	})

	chg, err := s.GetStores().ChargeRepo.GetByIdempotencyKey(s.GetContext(), 1, "1-2024-03-01")
	s.Require().NoError(err)

	attempts, err := s.GetStores().ChargeRepo.ListAttempts(s.GetContext(), chg.ID)
	s.Require().NoError(err)
	s.Require().Len(attempts, 3)

	// 2024-03-01 is a Friday: offset 0 stays on the due date, +3 business
	// days lands Wednesday, +7 the Tuesday after
	s.Equal("2024-03-01", types.DateKey(attempts[0].ScheduledFor, s.loc))
	s.Equal("2024-03-06", types.DateKey(attempts[1].ScheduledFor, s.loc))
	s.Equal("2024-03-12", types.DateKey(attempts[2].ScheduledFor, s.loc))
}

func (s *AnchorServiceTestSuite) TestSubscriptionFailureDoesNotAbortSiblings() {
	s.createSubscription(1, 1)
	s.createSubscription(2, 5)
	// only the day-1 anchor has a quote; agency 2 needs 2024-02-05
	s.addRate("2024-02-01", "800")

	summary := s.run(s.febRequest())

	s.Equal(2, summary.SubscriptionsProcessed)
	s.Equal(1, summary.CyclesCreated)
	s.Equal(1, summary.ChargesCreated)
	s.Require().Len(summary.Errors, 1)
	s.Equal(int64(2), summary.Errors[0].AgencyID)

	// agency 1 landed its charge, agency 2 created nothing
	_, err := s.GetStores().ChargeRepo.GetByIdempotencyKey(s.GetContext(), 1, "1-2024-02-01")
	s.NoError(err)
	_, err = s.GetStores().ChargeRepo.GetByIdempotencyKey(s.GetContext(), 2, "2-2024-02-05")
	s.True(ierr.IsNotFound(err))
}

func (s *AnchorServiceTestSuite) TestFxFallbackUsesLatestPriorQuote() {
	s.createSubscription(1, 5)
	s.addRate("2024-02-01", "800")

	// without fallback the run records a rate-missing failure
	summary := s.run(s.febRequest())
	s.Require().Len(summary.Errors, 1)

	// with fallback the 02-01 quote is used and reported under its own date
	req := s.febRequest()
	req.OverrideFx = true
	summary = s.run(req)

	s.False(summary.HasErrors())
	s.True(summary.FxFallbackAllowed)
	rate, ok := summary.FxRatesUsed["2024-02-01"]
	s.True(ok)
	s.True(rate.Equal(decimal.NewFromInt(800)))
	_, ok = summary.FxRatesUsed["2024-02-05"]
	s.False(ok)

	cycle, err := s.GetStores().CycleRepo.GetBySubscriptionAnchor(
		s.GetContext(),
		s.mustOnlySubscriptionID(),
		time.Date(2024, 2, 5, 0, 0, 0, 0, s.loc),
	)
	s.Require().NoError(err)
	s.Equal("2024-02-05", cycle.AnchorDateKey)
	s.Equal("2024-02-01", types.DateKey(cycle.FxRateDate, s.loc))
}

func (s *AnchorServiceTestSuite) mustOnlySubscriptionID() string {
	subs, err := s.GetStores().SubscriptionRepo.ListActive(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Require().Len(subs, 1)
	return subs[0].ID
}

func (s *AnchorServiceTestSuite) TestFrozenCycleIsNeverRepriced() {
	sub := s.createSubscription(1, 1)
	s.createPaymentMethod(sub, types.PaymentMethodTypeDirectDebit, types.PaymentMethodStatusActive, true)
	s.addRate("2024-02-01", "800")

	s.run(s.febRequest())

	original, err := s.GetStores().CycleRepo.GetBySubscriptionAnchor(
		s.GetContext(), sub.ID, time.Date(2024, 2, 1, 0, 0, 0, 0, s.loc))
	s.Require().NoError(err)
	s.True(original.TotalUSD.Equal(decimal.NewFromInt(121)))

	// the catalog price changes between runs
	s.pricing.SetBaseUSD(decimal.NewFromInt(200))

	summary := s.run(s.febRequest())
	s.Equal(0, summary.CyclesCreated)

	after, err := s.GetStores().CycleRepo.Get(s.GetContext(), original.ID)
	s.Require().NoError(err)
	s.True(after.TotalUSD.Equal(decimal.NewFromInt(121)), "frozen cycle must keep its amounts")
}

func (s *AnchorServiceTestSuite) TestChargeRecreationUsesFrozenCycleAmounts() {
	sub := s.createSubscription(1, 1)
	s.createPaymentMethod(sub, types.PaymentMethodTypeDirectDebit, types.PaymentMethodStatusActive, true)
	s.addRate("2024-02-01", "800")

	s.run(s.febRequest())

	// simulate a crash after the cycle was frozen but before the charge
	// landed, with the catalog price changing in between
	s.GetStores().ChargeRepo.(*testutil.InMemoryChargeStore).Clear()
	s.pricing.SetBaseUSD(decimal.NewFromInt(200))

	summary := s.run(s.febRequest())
	s.Equal(0, summary.CyclesCreated)
	s.Equal(1, summary.ChargesCreated)
	s.Equal(3, summary.AttemptsCreated)

	chg, err := s.GetStores().ChargeRepo.GetByIdempotencyKey(s.GetContext(), 1, "1-2024-02-01")
	s.Require().NoError(err)
	s.True(chg.TotalUSD.Equal(decimal.NewFromInt(121)), "charge amounts come from the frozen cycle, not a fresh pricing pass")
	s.True(chg.AmountDueARS.Equal(decimal.NewFromInt(96800)))
	s.Equal(sub.ID, chg.SubscriptionID)
}

func (s *AnchorServiceTestSuite) TestPaymentMethodSelection() {
	sub := s.createSubscription(1, 1)
	s.createPaymentMethod(sub, types.PaymentMethodTypeDirectDebit, types.PaymentMethodStatusActive, false)
	preferred := s.createPaymentMethod(sub, types.PaymentMethodTypeCard, types.PaymentMethodStatusActive, true)
	s.addRate("2024-02-01", "800")

	s.run(s.febRequest())

	chg, err := s.GetStores().ChargeRepo.GetByIdempotencyKey(s.GetContext(), 1, "1-2024-02-01")
	s.Require().NoError(err)
	s.Require().NotNil(chg.PaymentMethodID)
	s.Equal(preferred.ID, *chg.PaymentMethodID)
	s.Require().NotNil(chg.PaymentMethodType)
	s.Equal(types.PaymentMethodTypeCard, *chg.PaymentMethodType)
	s.Equal(types.CollectionChannelCard, chg.Channel)
}

func (s *AnchorServiceTestSuite) TestInactiveMethodStillRecordedWhenNothingUsable() {
	sub := s.createSubscription(1, 1)
	inactive := s.createPaymentMethod(sub, types.PaymentMethodTypeBankTransfer, types.PaymentMethodStatusInactive, true)
	s.addRate("2024-02-01", "800")

	s.run(s.febRequest())

	chg, err := s.GetStores().ChargeRepo.GetByIdempotencyKey(s.GetContext(), 1, "1-2024-02-01")
	s.Require().NoError(err)
	s.Require().NotNil(chg.PaymentMethodID)
	s.Equal(inactive.ID, *chg.PaymentMethodID)
	s.Equal(types.CollectionChannelTransfer, chg.Channel)
}

func (s *AnchorServiceTestSuite) TestNoMethodOnFileDefaultsToDirectDebit() {
	s.createSubscription(1, 1)
	s.addRate("2024-02-01", "800")

	summary := s.run(s.febRequest())
	s.False(summary.HasErrors())

	chg, err := s.GetStores().ChargeRepo.GetByIdempotencyKey(s.GetContext(), 1, "1-2024-02-01")
	s.Require().NoError(err)
	s.Nil(chg.PaymentMethodID)
	s.Nil(chg.PaymentMethodType)
	s.Equal(types.CollectionChannelDirectDebit, chg.Channel)
}

func (s *AnchorServiceTestSuite) TestNextAnchorDateAdvances() {
	sub := s.createSubscription(1, 31)
	s.addRate("2024-01-31", "790")

	s.run(&dto.RunAnchorRequest{
		ReferenceDate: time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC),
	})

	updated, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.Require().NotNil(updated.NextAnchorDate)
	// day 31 clips to leap-year February 29
	s.Equal("2024-02-29", types.DateKey(*updated.NextAnchorDate, s.loc))
}

func (s *AnchorServiceTestSuite) TestAgencyFilterRestrictsTheRun() {
	s.createSubscription(1, 1)
	s.createSubscription(2, 1)
	s.addRate("2024-02-01", "800")

	req := s.febRequest()
	req.AgencyIDs = []int64{2}
	summary := s.run(req)

	s.Equal(1, summary.SubscriptionsProcessed)
	_, err := s.GetStores().ChargeRepo.GetByIdempotencyKey(s.GetContext(), 2, "2-2024-02-01")
	s.NoError(err)
	_, err = s.GetStores().ChargeRepo.GetByIdempotencyKey(s.GetContext(), 1, "1-2024-02-01")
	s.True(ierr.IsNotFound(err))
}

func (s *AnchorServiceTestSuite) TestScopedActorCannotRunOutsideItsAgency() {
	req := s.febRequest()
	req.ActorAgencyID = 1
	req.AgencyIDs = []int64{2}

	_, err := s.service.RunAnchor(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrPermissionDenied))

	// a scoped actor must name an agency filter
	req = s.febRequest()
	req.ActorAgencyID = 1
	_, err = s.service.RunAnchor(s.GetContext(), req)
	s.True(ierr.IsValidation(err))
}

func (s *AnchorServiceTestSuite) TestAuditTrail() {
	sub := s.createSubscription(1, 1)
	s.addRate("2024-02-01", "800")

	req := s.febRequest()
	req.ActorUserID = "usr_admin"
	s.run(req)

	events, err := s.GetStores().AuditRepo.ListBySubscription(s.GetContext(), sub.ID, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)

	evt := events[0]
	s.Equal(auditlog.EventTypeAnchorRun, evt.EventType)
	s.Equal(int64(1), evt.AgencyID)
	s.Equal("usr_admin", evt.CreatedBy)
	s.Equal("2024-02-01", evt.Payload["anchor_date_key"])
	s.Equal(true, evt.Payload["cycle_created"])
	s.Equal(true, evt.Payload["charge_created"])
	s.Equal(3, evt.Payload["attempts_created"])
	s.Equal("2024-02-01", evt.Payload["fx_rate_date"])

	// the idempotent re-run appends its own event with nothing created
	s.run(req)
	events, err = s.GetStores().AuditRepo.ListBySubscription(s.GetContext(), sub.ID, 10)
	s.Require().NoError(err)
	s.Len(events, 2)
}

func (s *AnchorServiceTestSuite) TestChargeNumbersAreSequentialPerAgency() {
	s.createSubscription(1, 1)
	s.createSubscription(2, 1)
	s.addRate("2024-02-01", "800")
	s.addRate("2024-03-01", "850")

	s.run(s.febRequest())
	s.run(&dto.RunAnchorRequest{
		ReferenceDate: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
	})

	feb1, err := s.GetStores().ChargeRepo.GetByIdempotencyKey(s.GetContext(), 1, "1-2024-02-01")
	s.Require().NoError(err)
	mar1, err := s.GetStores().ChargeRepo.GetByIdempotencyKey(s.GetContext(), 1, "1-2024-03-01")
	s.Require().NoError(err)
	feb2, err := s.GetStores().ChargeRepo.GetByIdempotencyKey(s.GetContext(), 2, "2-2024-02-01")
	s.Require().NoError(err)

	s.Equal("AB-1-000001", feb1.Number)
	s.Equal("AB-1-000002", mar1.Number)
	// each agency counts from 1 independently
	s.Equal("AB-2-000001", feb2.Number)
}

func (s *AnchorServiceTestSuite) TestPausedSubscriptionsAreNotBilled() {
	paused := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		AgencyID:           1,
		SubscriptionStatus: types.SubscriptionStatusPaused,
		AnchorDay:          1,
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), paused))
	s.addRate("2024-02-01", "800")

	summary := s.run(s.febRequest())
	s.Equal(0, summary.SubscriptionsProcessed)
	s.Equal(0, summary.CyclesCreated)
}

func (s *AnchorServiceTestSuite) TestSubscriptionDiscountFlowsThroughPricing() {
	sub := s.createSubscription(1, 1)
	sub.DiscountPct = decimal.NewFromInt(10)
	s.Require().NoError(s.GetStores().SubscriptionRepo.(*testutil.InMemorySubscriptionStore).Update(s.GetContext(), sub.ID, sub))
	s.addRate("2024-02-01", "800")

	s.run(s.febRequest())

	chg, err := s.GetStores().ChargeRepo.GetByIdempotencyKey(s.GetContext(), 1, "1-2024-02-01")
	s.Require().NoError(err)
	// base 100 - 10% = 90 net, + 21% vat = 108.9
	s.True(chg.DiscountUSD.Equal(decimal.NewFromInt(10)))
	s.True(chg.TotalUSD.Equal(decimal.RequireFromString("108.9")))
}

// txAbortedError mimics what lib/pq returns for every statement after an
// unhandled error inside a transaction
func txAbortedError() error {
	return ierr.NewError("pq: current transaction is aborted, commands ignored until end of transaction block").
		WithHint("Transaction aborted").
		Mark(ierr.ErrDatabase)
}

// racingChargeStore commits a competitor's rows between the service's lookup
// and its insert, so the service always loses the create race. Any raw
// database error poisons the rest of the transaction, matching postgres abort
// semantics; a clean already-exists from a conflict-safe insert does not.
type racingChargeStore struct {
	*testutil.InMemoryChargeStore
	winner        *charge.Charge
	winnerAttempt *charge.ChargeAttempt
	raced         bool
	attemptRaced  bool
	abortedTx     bool
}

func (r *racingChargeStore) observe(err error) error {
	if err != nil && !ierr.IsAlreadyExists(err) {
		r.abortedTx = true
	}
	return err
}

func (r *racingChargeStore) Create(ctx context.Context, c *charge.Charge) error {
	if r.abortedTx {
		return txAbortedError()
	}
	if !r.raced {
		r.raced = true
		if err := r.InMemoryChargeStore.Create(ctx, r.winner); err != nil {
			return err
		}
	}
	return r.observe(r.InMemoryChargeStore.Create(ctx, c))
}

func (r *racingChargeStore) GetByIdempotencyKey(ctx context.Context, agencyID int64, key string) (*charge.Charge, error) {
	if r.abortedTx {
		return nil, txAbortedError()
	}
	return r.InMemoryChargeStore.GetByIdempotencyKey(ctx, agencyID, key)
}

func (r *racingChargeStore) CreateAttempt(ctx context.Context, attempt *charge.ChargeAttempt) error {
	if r.abortedTx {
		return txAbortedError()
	}
	if !r.attemptRaced && attempt.AttemptNumber == r.winnerAttempt.AttemptNumber {
		r.attemptRaced = true
		if err := r.InMemoryChargeStore.CreateAttempt(ctx, r.winnerAttempt); err != nil {
			return err
		}
	}
	return r.observe(r.InMemoryChargeStore.CreateAttempt(ctx, attempt))
}

func (r *racingChargeStore) GetAttemptByNumber(ctx context.Context, chargeID string, attemptNumber int) (*charge.ChargeAttempt, error) {
	if r.abortedTx {
		return nil, txAbortedError()
	}
	return r.InMemoryChargeStore.GetAttemptByNumber(ctx, chargeID, attemptNumber)
}

func (s *AnchorServiceTestSuite) TestLostChargeRaceIsAdoptedMidTransaction() {
	sub := s.createSubscription(1, 1)
	s.addRate("2024-02-01", "800")

	dueDate := time.Date(2024, 2, 1, 0, 0, 0, 0, s.loc)
	winner := &charge.Charge{
		ID:                   types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CHARGE),
		Number:               "AB-1-000001",
		AgencyID:             1,
		SubscriptionID:       sub.ID,
		IdempotencyKey:       "1-2024-02-01",
		Label:                "Suscripción Febrero 2024",
		DueDate:              dueDate,
		ChargeStatus:         types.ChargeStatusReady,
		Kind:                 types.ChargeKindRecurring,
		Channel:              types.CollectionChannelDirectDebit,
		ReconciliationStatus: types.ReconciliationStatusPending,
		BaseModel:            types.GetDefaultBaseModel(s.GetContext()),
	}
	store := &racingChargeStore{
		InMemoryChargeStore: s.GetStores().ChargeRepo.(*testutil.InMemoryChargeStore),
		winner:              winner,
		winnerAttempt: &charge.ChargeAttempt{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CHARGE_ATTEMPT),
			ChargeID:      winner.ID,
			AttemptNumber: 1,
			AttemptStatus: types.AttemptStatusPending,
			Channel:       types.CollectionChannelDirectDebit,
			ScheduledFor:  dueDate,
			BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
		},
	}
	s.buildService(func(p *ServiceParams) { p.ChargeRepo = store })

	summary := s.run(s.febRequest())

	// the losing side adopts the committed rows instead of failing
	s.True(store.raced)
	s.True(store.attemptRaced)
	s.False(store.abortedTx, "a lost race must not abort the transaction")
	s.False(summary.HasErrors())
	s.Equal(1, summary.CyclesCreated)
	s.Equal(0, summary.ChargesCreated)
	s.Equal(2, summary.AttemptsCreated)

	chg, err := store.GetByIdempotencyKey(s.GetContext(), 1, "1-2024-02-01")
	s.Require().NoError(err)
	s.Equal(winner.ID, chg.ID)

	attempts, err := store.ListAttempts(s.GetContext(), winner.ID)
	s.Require().NoError(err)
	s.Require().Len(attempts, 3)
	s.Equal(store.winnerAttempt.ID, attempts[0].ID)
}

// racingCycleStore is the billing cycle counterpart of racingChargeStore
type racingCycleStore struct {
	*testutil.InMemoryBillingCycleStore
	winner    *billingcycle.BillingCycle
	raced     bool
	abortedTx bool
}

func (r *racingCycleStore) Create(ctx context.Context, cycle *billingcycle.BillingCycle) error {
	if r.abortedTx {
		return txAbortedError()
	}
	if !r.raced {
		r.raced = true
		if err := r.InMemoryBillingCycleStore.Create(ctx, r.winner); err != nil {
			return err
		}
	}
	err := r.InMemoryBillingCycleStore.Create(ctx, cycle)
	if err != nil && !ierr.IsAlreadyExists(err) {
		r.abortedTx = true
	}
	return err
}

func (r *racingCycleStore) GetBySubscriptionAnchor(ctx context.Context, subscriptionID string, anchorDate time.Time) (*billingcycle.BillingCycle, error) {
	if r.abortedTx {
		return nil, txAbortedError()
	}
	return r.InMemoryBillingCycleStore.GetBySubscriptionAnchor(ctx, subscriptionID, anchorDate)
}

func (s *AnchorServiceTestSuite) TestLostCycleRaceIsAdoptedMidTransaction() {
	sub := s.createSubscription(1, 1)
	s.addRate("2024-02-01", "800")

	anchorDate := time.Date(2024, 2, 1, 0, 0, 0, 0, s.loc)
	// the competitor froze different amounts, proving the loser adopts rather
	// than re-creates
	winner := &billingcycle.BillingCycle{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_CYCLE),
		SubscriptionID: sub.ID,
		AgencyID:       1,
		AnchorDate:     anchorDate,
		AnchorDateKey:  "2024-02-01",
		PeriodStart:    anchorDate,
		PeriodEnd:      time.Date(2024, 2, 29, 0, 0, 0, 0, s.loc),
		FxType:         types.FxTypeReference,
		FxRate:         decimal.NewFromInt(800),
		FxRateDate:     anchorDate,
		BaseUSD:        decimal.NewFromInt(100),
		VatUSD:         decimal.NewFromInt(11),
		NetUSD:         decimal.NewFromInt(100),
		TotalUSD:       decimal.NewFromInt(111),
		TotalARS:       decimal.NewFromInt(88800),
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	}
	store := &racingCycleStore{
		InMemoryBillingCycleStore: s.GetStores().CycleRepo.(*testutil.InMemoryBillingCycleStore),
		winner:                    winner,
	}
	s.buildService(func(p *ServiceParams) { p.CycleRepo = store })

	summary := s.run(s.febRequest())

	s.True(store.raced)
	s.False(store.abortedTx, "a lost race must not abort the transaction")
	s.False(summary.HasErrors())
	s.Equal(0, summary.CyclesCreated)
	s.Equal(1, summary.ChargesCreated)

	chg, err := s.GetStores().ChargeRepo.GetByIdempotencyKey(s.GetContext(), 1, "1-2024-02-01")
	s.Require().NoError(err)
	s.Equal(winner.ID, chg.CycleID)
	s.True(chg.TotalUSD.Equal(decimal.NewFromInt(111)), "charge amounts come from the adopted cycle")
	s.True(chg.AmountDueARS.Equal(decimal.NewFromInt(88800)))
}

// failingAuditStore rejects every append with a database error
type failingAuditStore struct {
	auditlog.Repository
}

func (f *failingAuditStore) Append(ctx context.Context, event *auditlog.Event) error {
	return ierr.NewError("writing audit event: connection reset by peer").
		WithHint("Audit write failed").
		Mark(ierr.ErrDatabase)
}

func (s *AnchorServiceTestSuite) TestFxRateReportedWhenTransactionFails() {
	s.createSubscription(1, 1)
	s.addRate("2024-02-01", "800")

	s.buildService(func(p *ServiceParams) {
		p.AuditRepo = &failingAuditStore{Repository: s.GetStores().AuditRepo}
	})

	summary := s.run(s.febRequest())

	// the subscription failed after fx resolution, the summary still names
	// the rate the run resolved
	s.Require().Len(summary.Errors, 1)
	s.Equal(0, summary.ChargesCreated)
	rate, ok := summary.FxRatesUsed["2024-02-01"]
	s.True(ok)
	s.True(rate.Equal(decimal.NewFromInt(800)))
}
