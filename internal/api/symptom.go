package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sxxm/medcheck/backend/internal/middleware"
	"github.com/sxxm/medcheck/backend/internal/service"
	"github.com/sxxm/medcheck/backend/internal/types"
)

// SymptomAnalyzer answers a symptom description for a known user
type SymptomAnalyzer interface {
	Analyze(ctx context.Context, userID uuid.UUID, symptomText string) (*service.SymptomAnalysisResult, error)
}

type SymptomHandler struct {
	symptoms  SymptomAnalyzer
	validator middleware.TokenValidator
	limiter   *middleware.RateLimiter
}

// NewSymptomHandler creates the symptom handler. limiter may be nil to disable rate limiting.
func NewSymptomHandler(symptoms SymptomAnalyzer, validator middleware.TokenValidator, limiter *middleware.RateLimiter) *SymptomHandler {
	return &SymptomHandler{
		symptoms:  symptoms,
		validator: validator,
		limiter:   limiter,
	}
}

func (h *SymptomHandler) RegisterRoutes(router *gin.RouterGroup) {
	handlers := []gin.HandlerFunc{middleware.AuthMiddleware(h.validator)}
	if h.limiter != nil {
		handlers = append(handlers, h.limiter.RateLimitMiddleware())
	}
	handlers = append(handlers, h.AnalyzeSymptoms)
	router.POST("/analysis/symptoms", handlers...)
}

// AnalyzeSymptoms handles POST /analysis/symptoms
func (h *SymptomHandler) AnalyzeSymptoms(c *gin.Context) {
	userID := middleware.CallerID(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req types.SymptomAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.symptoms.Analyze(c.Request.Context(), *userID, req.SymptomText)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptySymptom):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to analyze symptoms"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
