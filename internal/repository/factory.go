package repository

import (
	"github.com/andariego/andariego/internal/domain/auditlog"
	"github.com/andariego/andariego/internal/domain/billingcycle"
	"github.com/andariego/andariego/internal/domain/charge"
	"github.com/andariego/andariego/internal/domain/fxrate"
	"github.com/andariego/andariego/internal/domain/paymentmethod"
	"github.com/andariego/andariego/internal/domain/sequence"
	"github.com/andariego/andariego/internal/domain/subscription"
	"github.com/andariego/andariego/internal/logger"
	"github.com/andariego/andariego/internal/postgres"
	pgrepo "github.com/andariego/andariego/internal/repository/postgres"
)

func NewSubscriptionRepository(client postgres.IClient, log *logger.Logger) subscription.Repository {
	return pgrepo.NewSubscriptionRepository(client, log)
}

func NewPaymentMethodRepository(client postgres.IClient, log *logger.Logger) paymentmethod.Repository {
	return pgrepo.NewPaymentMethodRepository(client, log)
}

func NewBillingCycleRepository(client postgres.IClient, log *logger.Logger) billingcycle.Repository {
	return pgrepo.NewBillingCycleRepository(client, log)
}

func NewChargeRepository(client postgres.IClient, log *logger.Logger) charge.Repository {
	return pgrepo.NewChargeRepository(client, log)
}

func NewFxRateRepository(client postgres.IClient, log *logger.Logger) fxrate.Repository {
	return pgrepo.NewFxRateRepository(client, log)
}

func NewAuditLogRepository(client postgres.IClient, log *logger.Logger) auditlog.Repository {
	return pgrepo.NewAuditLogRepository(client, log)
}

func NewSequenceRepository(client postgres.IClient, log *logger.Logger) sequence.Repository {
	return pgrepo.NewSequenceRepository(client, log)
}
