package main

import (
	"context"
	"os"

	"github.com/oggyb/recipebox/internal/config"
	"github.com/oggyb/recipebox/internal/db"
	"github.com/oggyb/recipebox/internal/logger"
	"github.com/oggyb/recipebox/internal/repository"
)

func main() {
	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.With("cmd", "seed")

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	if err := db.SeedDemoData(database); err != nil {
		log.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	// demo facts were written without counters
	stats, err := repository.NewAggregateRepository(database).ReconcileAll(context.Background())
	if err != nil {
		log.Error("failed to reconcile", "err", err)
		os.Exit(1)
	}
	log.Info("seeding completed", "recipes", stats.Recipes, "accounts", stats.Accounts)
}
