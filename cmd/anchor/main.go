package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andariego/andariego/internal/api/dto"
	"github.com/andariego/andariego/internal/config"
	"github.com/andariego/andariego/internal/domain/bizcal"
	"github.com/andariego/andariego/internal/logger"
	"github.com/andariego/andariego/internal/postgres"
	"github.com/andariego/andariego/internal/repository"
	"github.com/andariego/andariego/internal/service"
	"github.com/andariego/andariego/internal/types"
	"github.com/andariego/andariego/internal/validator"
	_ "github.com/lib/pq"
)

// One-shot anchor run, intended for the monthly cron. Exits non-zero when the
// run is rejected outright or had per-subscription failures, so the scheduler
// surfaces partial failure.
func main() {
	date := flag.String("date", "", "Reference date (YYYY-MM-DD in the engine's default timezone, empty means now)")
	overrideFx := flag.Bool("override-fx", false, "Fall back to the most recent prior fx quote when the anchor date has none")
	agencies := flag.String("agencies", "", "Comma-separated agency ids to restrict the run to")
	actor := flag.String("actor", "", "User id recorded on everything the run creates")
	flag.Parse()

	validator.NewValidator()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	db, err := postgres.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()
	client := postgres.NewClient(db, cfg, logger)

	calendar, err := bizcal.NewWeekendCalendar(cfg.Billing.DefaultTimezone)
	if err != nil {
		logger.Fatalw("Failed to build business calendar", "error", err)
	}

	params := service.NewServiceParams(
		logger,
		cfg,
		client,
		repository.NewSubscriptionRepository(client, logger),
		repository.NewPaymentMethodRepository(client, logger),
		repository.NewBillingCycleRepository(client, logger),
		repository.NewChargeRepository(client, logger),
		repository.NewFxRateRepository(client, logger),
		repository.NewAuditLogRepository(client, logger),
		repository.NewSequenceRepository(client, logger),
		service.NewCatalogSnapshotBuilder(cfg),
		calendar,
	)
	anchor := service.NewAnchorService(params)

	req := &dto.RunAnchorRequest{
		OverrideFx:  *overrideFx,
		ActorUserID: *actor,
	}

	if *date != "" {
		ref, err := types.ParseDateKey(*date, cfg.Billing.DefaultLocation())
		if err != nil {
			logger.Fatalw("Invalid -date", "error", err)
		}
		req.ReferenceDate = ref
	}

	if *agencies != "" {
		for _, raw := range strings.Split(*agencies, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				logger.Fatalw("Invalid -agencies", "value", raw, "error", err)
			}
			req.AgencyIDs = append(req.AgencyIDs, id)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	summary, err := anchor.RunAnchor(ctx, req)
	if err != nil {
		logger.Fatalw("Anchor run rejected", "error", err)
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		logger.Fatalw("Failed to render summary", "error", err)
	}
	fmt.Println(string(out))

	if summary.HasErrors() {
		logger.Errorw("Anchor run completed with partial failures", "errors", len(summary.Errors))
		os.Exit(1)
	}
}
