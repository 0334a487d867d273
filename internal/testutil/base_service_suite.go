package testutil

import (
	"context"
	"time"

	"github.com/andariego/andariego/internal/config"
	"github.com/andariego/andariego/internal/domain/auditlog"
	"github.com/andariego/andariego/internal/domain/billingcycle"
	"github.com/andariego/andariego/internal/domain/charge"
	"github.com/andariego/andariego/internal/domain/fxrate"
	"github.com/andariego/andariego/internal/domain/paymentmethod"
	"github.com/andariego/andariego/internal/domain/sequence"
	"github.com/andariego/andariego/internal/domain/subscription"
	"github.com/andariego/andariego/internal/logger"
	"github.com/andariego/andariego/internal/postgres"
	"github.com/andariego/andariego/internal/types"
	"github.com/andariego/andariego/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	SubscriptionRepo  subscription.Repository
	PaymentMethodRepo paymentmethod.Repository
	CycleRepo         billingcycle.Repository
	ChargeRepo        charge.Repository
	FxRateRepo        fxrate.Repository
	AuditRepo         auditlog.Repository
	SequenceRepo      sequence.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	db     postgres.IClient
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = context.Background()
	s.ctx = context.WithValue(s.ctx, types.CtxUserID, types.DefaultUserID)
	s.ctx = context.WithValue(s.ctx, types.CtxRequestID, types.GenerateUUID())
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		SubscriptionRepo:  NewInMemorySubscriptionStore(),
		PaymentMethodRepo: NewInMemoryPaymentMethodStore(),
		CycleRepo:         NewInMemoryBillingCycleStore(),
		ChargeRepo:        NewInMemoryChargeStore(),
		FxRateRepo:        NewInMemoryFxRateStore(),
		AuditRepo:         NewInMemoryAuditLogStore(),
		SequenceRepo:      NewInMemorySequenceStore(),
	}
	s.db = NewMockPostgresClient(s.logger)
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.SubscriptionRepo.(*InMemorySubscriptionStore).Clear()
	s.stores.PaymentMethodRepo.(*InMemoryPaymentMethodStore).Clear()
	s.stores.CycleRepo.(*InMemoryBillingCycleStore).Clear()
	s.stores.ChargeRepo.(*InMemoryChargeStore).Clear()
	s.stores.FxRateRepo.(*InMemoryFxRateStore).Clear()
	s.stores.AuditRepo.(*InMemoryAuditLogStore).Clear()
	s.stores.SequenceRepo.(*InMemorySequenceStore).Clear()
}

// ClearStores resets every in-memory store
func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
