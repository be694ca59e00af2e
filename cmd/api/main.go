package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sxxm/medcheck/backend/config"
	"github.com/sxxm/medcheck/backend/internal/api"
	"github.com/sxxm/medcheck/backend/internal/database"
	"github.com/sxxm/medcheck/backend/internal/logger"
	"github.com/sxxm/medcheck/backend/internal/middleware"
	"github.com/sxxm/medcheck/backend/internal/router"
	"github.com/sxxm/medcheck/backend/internal/server"
	"github.com/sxxm/medcheck/backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.New(cfg.LogLevel, cfg.LogFormat, "medcheck-api")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Fatal("Server error", zap.Error(err))
	}
	logg.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logg *zap.Logger) error {
	// Initialize database
	db, err := database.New(cfg, logg)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(db, logg); err != nil {
		return err
	}

	redisClient, err := database.NewRedisClient(cfg, logg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Medication registry, cached in Redis when available
	var cache service.MedicationCache
	if redisClient != nil {
		cache = service.NewRedisMedicationCache(redisClient, logg)
	}
	medications := service.NewMedicationService(service.RegistryConfig{
		BaseURL:       cfg.RegistryURL,
		APIKey:        cfg.RegistryKey,
		RatePerSecond: cfg.RegistryRatePerSec,
		Concurrency:   cfg.RegistryConcurrency,
	}, cache, logg)

	foods, err := newFoodInferrer(cfg, logg)
	if err != nil {
		return err
	}

	var archiver service.ReportArchiver
	if cfg.ReportBucket != "" {
		s3Config, err := config.NewS3Config(ctx, cfg.ReportBucket, cfg.AWSRegion)
		if err != nil {
			return err
		}
		archiver = service.NewS3ReportArchiver(s3Config)
	}

	// Initialize services
	directory := service.NewDirectoryService(db)
	reports := service.NewReportService(db, archiver, logg)
	groups := service.NewGroupResolver(medications, foods, cfg.RegistryConcurrency, logg)
	engine := service.NewAnalysisEngineClient(cfg.AnalysisURL, 0, logg)
	analysis := service.NewAnalysisService(directory, groups, engine, reports, logg)

	var limiter *middleware.RateLimiter
	if redisClient != nil {
		limiter = middleware.NewAnalysisRateLimiter(redisClient, logg)
	}

	handlers := router.Handlers{
		Analysis:   api.NewAnalysisHandler(analysis, reports, middleware.NewJWTValidator(cfg.JWTSecret), limiter, logg),
		Medication: api.NewMedicationHandler(medications),
		Health:     api.NewHealthHandler(healthChecks(db, redisClient)),
	}

	if cfg.LLMAPIKey != "" {
		symptoms, err := service.NewSymptomService(service.LLMConfig{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
		}, directory, logg)
		if err != nil {
			return err
		}
		handlers.Symptom = api.NewSymptomHandler(symptoms, middleware.NewJWTValidator(cfg.JWTSecret), limiter)
	} else {
		logg.Info("LLM API key not set, symptom analysis disabled")
	}

	srv := server.New(cfg, router.SetupRouter(handlers, cfg.CORSOrigins, logg), logg)
	return srv.Run(ctx)
}

func newFoodInferrer(cfg *config.Config, logg *zap.Logger) (service.FoodIngredientInferrer, error) {
	if cfg.InferenceProvider == config.InferenceProviderLLM {
		return service.NewLLMFoodInferrer(service.LLMConfig{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
		}, logg)
	}
	return service.NewFoodInferenceService(cfg.InferenceURL, 0, logg), nil
}

func healthChecks(db *gorm.DB, redisClient *redis.Client) map[string]api.Pinger {
	checks := map[string]api.Pinger{
		"database": func(ctx context.Context) error { return database.HealthCheck(ctx, db) },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	return checks
}
