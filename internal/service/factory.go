package service

import (
	"github.com/andariego/andariego/internal/config"
	"github.com/andariego/andariego/internal/domain/auditlog"
	"github.com/andariego/andariego/internal/domain/billingcycle"
	"github.com/andariego/andariego/internal/domain/bizcal"
	"github.com/andariego/andariego/internal/domain/charge"
	"github.com/andariego/andariego/internal/domain/fxrate"
	"github.com/andariego/andariego/internal/domain/paymentmethod"
	"github.com/andariego/andariego/internal/domain/pricing"
	"github.com/andariego/andariego/internal/domain/sequence"
	"github.com/andariego/andariego/internal/domain/subscription"
	"github.com/andariego/andariego/internal/logger"
	"github.com/andariego/andariego/internal/postgres"
)

// NewServiceParams assembles the common service dependencies
func NewServiceParams(
	logger *logger.Logger,
	cfg *config.Configuration,
	db postgres.IClient,
	subscriptionRepo subscription.Repository,
	paymentMethodRepo paymentmethod.Repository,
	cycleRepo billingcycle.Repository,
	chargeRepo charge.Repository,
	fxRateRepo fxrate.Repository,
	auditRepo auditlog.Repository,
	sequenceRepo sequence.Repository,
	pricingBuilder pricing.SnapshotBuilder,
	businessCalendar bizcal.BusinessCalendar,
) ServiceParams {
	return ServiceParams{
		Logger:            logger,
		Config:            cfg,
		DB:                db,
		SubscriptionRepo:  subscriptionRepo,
		PaymentMethodRepo: paymentMethodRepo,
		CycleRepo:         cycleRepo,
		ChargeRepo:        chargeRepo,
		FxRateRepo:        fxRateRepo,
		AuditRepo:         auditRepo,
		SequenceRepo:      sequenceRepo,
		PricingBuilder:    pricingBuilder,
		BusinessCalendar:  businessCalendar,
	}
}

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	SubscriptionRepo  subscription.Repository
	PaymentMethodRepo paymentmethod.Repository
	CycleRepo         billingcycle.Repository
	ChargeRepo        charge.Repository
	FxRateRepo        fxrate.Repository
	AuditRepo         auditlog.Repository
	SequenceRepo      sequence.Repository

	// External collaborators
	PricingBuilder   pricing.SnapshotBuilder
	BusinessCalendar bizcal.BusinessCalendar
}
