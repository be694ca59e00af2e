package main

import (
	"log"

	"go.uber.org/zap"

	"github.com/sxxm/medcheck/backend/config"
	"github.com/sxxm/medcheck/backend/internal/database"
	"github.com/sxxm/medcheck/backend/internal/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.New(cfg.LogLevel, cfg.LogFormat, "medcheck-migrate")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	db, err := database.New(cfg, logg)
	if err != nil {
		logg.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := database.RunMigrations(db, logg); err != nil {
		logg.Fatal("Failed to apply migrations", zap.Error(err))
	}
	logg.Info("All migrations applied successfully")
}
