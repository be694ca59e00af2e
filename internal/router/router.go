package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sxxm/medcheck/backend/internal/api"
	"github.com/sxxm/medcheck/backend/internal/metrics"
	"github.com/sxxm/medcheck/backend/internal/middleware"
)

// Handlers groups the API handlers mounted under /api/v1
type Handlers struct {
	Analysis   *api.AnalysisHandler
	Medication *api.MedicationHandler
	Health     *api.HealthHandler
	// Symptom is nil when no LLM is configured
	Symptom *api.SymptomHandler
}

// SetupRouter configures the application routes
func SetupRouter(handlers Handlers, corsOrigins []string, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(corsOrigins...))

	router.GET("/health", handlers.Health.HealthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	handlers.Analysis.RegisterRoutes(v1)
	handlers.Medication.RegisterRoutes(v1)
	if handlers.Symptom != nil {
		handlers.Symptom.RegisterRoutes(v1)
	}

	return router
}
