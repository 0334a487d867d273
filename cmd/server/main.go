package main

import (
	"context"
	"time"

	"github.com/andariego/andariego/internal/api"
	v1 "github.com/andariego/andariego/internal/api/v1"
	"github.com/andariego/andariego/internal/config"
	"github.com/andariego/andariego/internal/domain/bizcal"
	"github.com/andariego/andariego/internal/logger"
	"github.com/andariego/andariego/internal/postgres"
	"github.com/andariego/andariego/internal/repository"
	"github.com/andariego/andariego/internal/service"
	"github.com/andariego/andariego/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			logger.NewLogger,

			// Postgres
			postgres.NewDB,
			provideDBClient,

			// Repositories
			repository.NewSubscriptionRepository,
			repository.NewPaymentMethodRepository,
			repository.NewBillingCycleRepository,
			repository.NewChargeRepository,
			repository.NewFxRateRepository,
			repository.NewAuditLogRepository,
			repository.NewSequenceRepository,

			// Collaborators
			service.NewCatalogSnapshotBuilder,
			provideBusinessCalendar,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewAnchorService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startServer),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideDBClient(db *sqlx.DB, cfg *config.Configuration, log *logger.Logger) postgres.IClient {
	return postgres.NewClient(db, cfg, log)
}

func provideBusinessCalendar(cfg *config.Configuration) (bizcal.BusinessCalendar, error) {
	return bizcal.NewWeekendCalendar(cfg.Billing.DefaultTimezone)
}

func provideHandlers(
	anchorService service.AnchorService,
	log *logger.Logger,
) api.Handlers {
	return api.Handlers{
		Billing: v1.NewBillingHandler(anchorService, log),
	}
}

func provideRouter(handlers api.Handlers) *gin.Engine {
	return api.NewRouter(handlers)
}

func startServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}
