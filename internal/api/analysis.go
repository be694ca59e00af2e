package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sxxm/medcheck/backend/internal/middleware"
	"github.com/sxxm/medcheck/backend/internal/models"
	"github.com/sxxm/medcheck/backend/internal/service"
	"github.com/sxxm/medcheck/backend/internal/types"
)

// Analyzer runs a side-effect analysis
type Analyzer interface {
	Analyze(ctx context.Context, req service.AnalysisRequest) (*service.AnalysisResult, error)
}

// ReportLister lists a user's persisted analyses
type ReportLister interface {
	ListReports(ctx context.Context, userID uuid.UUID) ([]models.SideEffectReport, error)
}

type AnalysisHandler struct {
	analyzer  Analyzer
	reports   ReportLister
	validator middleware.TokenValidator
	limiter   *middleware.RateLimiter
	logger    *zap.Logger
}

// NewAnalysisHandler creates the analysis handler. limiter may be nil to disable rate limiting.
func NewAnalysisHandler(analyzer Analyzer, reports ReportLister, validator middleware.TokenValidator, limiter *middleware.RateLimiter, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer:  analyzer,
		reports:   reports,
		validator: validator,
		limiter:   limiter,
		logger:    logger,
	}
}

func (h *AnalysisHandler) RegisterRoutes(router *gin.RouterGroup) {
	analysis := router.Group("/analysis")

	sideEffects := []gin.HandlerFunc{middleware.OptionalAuth(h.validator)}
	if h.limiter != nil {
		sideEffects = append(sideEffects, h.limiter.RateLimitMiddleware())
	}
	sideEffects = append(sideEffects, h.AnalyzeSideEffects)
	analysis.POST("/side-effects", sideEffects...)

	analysis.GET("/reports", middleware.AuthMiddleware(h.validator), h.ListReports)
}

// AnalyzeSideEffects handles POST /analysis/side-effects
func (h *AnalysisHandler) AnalyzeSideEffects(c *gin.Context) {
	var req types.SideEffectAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), service.AnalysisRequest{
		UserID:      middleware.CallerID(c),
		Groups:      req.Groups,
		Description: req.Description,
		OCRText:     req.OCRText,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoGroups), errors.Is(err, service.ErrNoUsableGroups):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to analyze side effects"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListReports handles GET /analysis/reports
func (h *AnalysisHandler) ListReports(c *gin.Context) {
	userID := middleware.CallerID(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	reports, err := h.reports.ListReports(c.Request.Context(), *userID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reports"})
		return
	}

	response := make([]types.ReportResponse, 0, len(reports))
	for _, report := range reports {
		var result interface{}
		if err := json.Unmarshal([]byte(report.AnalysisResult), &result); err != nil {
			h.logger.Warn("stored analysis result is not JSON", zap.String("report_id", report.ID.String()), zap.Error(err))
			result = report.AnalysisResult
		}
		groupNames := []string(report.GroupNames)
		if groupNames == nil {
			groupNames = []string{}
		}
		response = append(response, types.ReportResponse{
			ID:          report.ID,
			GroupNames:  groupNames,
			Description: report.Description,
			Result:      result,
			CreatedAt:   report.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"reports": response})
}
