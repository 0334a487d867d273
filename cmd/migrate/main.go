package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/andariego/andariego/internal/config"
	"github.com/andariego/andariego/internal/logger"
	"github.com/andariego/andariego/migrations"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Print the schema SQL without executing it")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if *dryRun {
		fmt.Println(migrations.Schema)
		return
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host)
	db, err := sqlx.Open("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Applying schema...")
	if _, err := db.ExecContext(ctx, migrations.Schema); err != nil {
		logger.Fatalw("Failed to apply schema", "error", err)
	}
	logger.Info("Migration completed successfully")
}
