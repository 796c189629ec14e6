package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joseph-ayodele/lab-interpreter/internal/common"
	repo "github.com/joseph-ayodele/lab-interpreter/internal/repository"
)

func main() {
	cfg, err := common.LoadConfig(os.Getenv(common.EnvPrefix + "_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Store.Driver == "none" {
		log.Println("ERROR: store.driver is none")
		log.Println("  set LABINTERP_STORE_DRIVER=sqlite|postgres and LABINTERP_STORE_DSN")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := repo.Open(ctx, repo.Config{
		Driver:           cfg.Store.Driver,
		DSN:              cfg.Store.DSN,
		MaxConns:         2,
		DialTimeout:      cfg.Store.DialTimeout,
		StatementTimeout: cfg.Store.StatementTimeout,
	}, nil)
	if err != nil {
		log.Fatalf("opening DB: %v", err)
	}
	defer db.Close(nil)

	if err := repo.HealthCheck(ctx, db, 1*time.Second, nil); err != nil {
		log.Fatalf("DB health: FAIL (%v)", err)
	}
	log.Println("DB health: OK")

	if err := repo.Migrate(ctx, db, nil); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	runs, err := repo.NewRunRepository(db, nil).ListRecent(ctx, 5)
	if err != nil {
		log.Fatalf("listing runs: %v", err)
	}
	log.Printf("recent runs: %d", len(runs))
	for _, r := range runs {
		log.Printf("- %s %s %s", r.CreatedAt.Format(time.RFC3339), r.RiskLevel, r.DocumentName)
	}
}
