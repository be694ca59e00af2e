package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sxxm/medcheck/backend/internal/metrics"
	"github.com/sxxm/medcheck/backend/internal/models"
	"github.com/sxxm/medcheck/backend/internal/types"
)

// AnalysisRequest is one side-effect analysis. A nil UserID means an anonymous caller.
type AnalysisRequest struct {
	UserID      *uuid.UUID
	Groups      []types.AnalysisGroup
	Description string
	OCRText     string
}

// AnalysisService runs the group-based side-effect analysis pipeline
type AnalysisService struct {
	directory UserDirectory
	allergies *AllergyService
	groups    *GroupResolver
	engine    AnalysisEngine
	reports   ReportStore
	logger    *zap.Logger
}

// NewAnalysisService creates a new AnalysisService instance. reports may be nil, in which case
// nothing is persisted.
func NewAnalysisService(directory UserDirectory, groups *GroupResolver, engine AnalysisEngine, reports ReportStore, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		directory: directory,
		allergies: NewAllergyService(directory, logger),
		groups:    groups,
		engine:    engine,
		reports:   reports,
		logger:    logger,
	}
}

// Analyze resolves every group to its ingredients, asks the analysis engine about them
// against the caller's allergies and stores a report for identified callers.
//
// ErrNoGroups and ErrNoUsableGroups signal invalid input; ErrAnalysisEngine signals that the
// engine call failed.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	user := s.identifyCaller(ctx, req.UserID)

	profile := EmptyAllergyProfile()
	if user != nil {
		var err error
		profile, err = s.allergies.Split(ctx, user.ID)
		if err != nil {
			metrics.RecordAnalysisRequest("error")
			return nil, err
		}
	}

	if len(req.Groups) == 0 {
		metrics.RecordAnalysisRequest("validation_error")
		return nil, ErrNoGroups
	}

	resolved := s.groups.ResolveGroups(ctx, req.Groups)
	if len(resolved) == 0 {
		metrics.RecordAnalysisRequest("validation_error")
		return nil, ErrNoUsableGroups
	}

	engineReq := buildEngineRequest(resolved, profile, req.Description)

	raw, err := s.engine.Analyze(ctx, engineReq)
	if err != nil {
		s.logger.Error("analysis engine call failed", zap.Int("groups", len(resolved)), zap.Error(err))
		metrics.RecordAnalysisRequest("error")
		return nil, err
	}

	result := ParseAnalysisResponse(raw)
	if len(profile.FoodCategories) > 0 {
		result.MergeMatchedAllergens(DetectAllergenTriggers(triggerText(req, resolved), profile.FoodCategories))
	}

	if user != nil && s.reports != nil {
		s.persist(ctx, user.ID, engineReq.GroupNames, req.Description, result)
	}

	metrics.RecordAnalysisRequest("success")
	return result, nil
}

// identifyCaller returns nil for anonymous callers, including unknown or unreadable users
func (s *AnalysisService) identifyCaller(ctx context.Context, userID *uuid.UUID) *models.User {
	if userID == nil {
		return nil
	}
	user, err := s.directory.FindUserByID(ctx, *userID)
	if err != nil {
		s.logger.Warn("caller lookup failed, continuing anonymously", zap.String("user_id", userID.String()), zap.Error(err))
		return nil
	}
	if user == nil {
		s.logger.Info("caller not found, continuing anonymously", zap.String("user_id", userID.String()))
	}
	return user
}

func buildEngineRequest(resolved []GroupResolution, profile AllergyProfile, description string) *AnalysisEngineRequest {
	req := &AnalysisEngineRequest{
		GroupNames:               make([]string, 0, len(resolved)),
		GroupIngredients:         make([][]string, 0, len(resolved)),
		LegacyAllergyIngredients: profile.All(),
		Description:              description,
		MedicationAllergies:      nonNil(profile.Medication),
		FoodAllergies:            nonNil(profile.Food),
	}
	for _, group := range resolved {
		req.GroupNames = append(req.GroupNames, group.DisplayName)
		req.GroupIngredients = append(req.GroupIngredients, nonNil(group.MergedIngredients))
	}
	return req
}

// triggerText is everything a food allergen keyword could appear in
func triggerText(req AnalysisRequest, resolved []GroupResolution) string {
	parts := []string{req.Description, req.OCRText}
	for _, group := range resolved {
		parts = append(parts, group.MergedIngredients...)
	}
	return strings.Join(parts, "\n")
}

func (s *AnalysisService) persist(ctx context.Context, userID uuid.UUID, groupNames []string, description string, result *AnalysisResult) {
	serialized, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("failed to serialize analysis result", zap.Error(err))
		return
	}

	report := &models.SideEffectReport{
		UserID:         userID,
		GroupNames:     models.JSONBStringArray(groupNames),
		Description:    description,
		AnalysisResult: string(serialized),
	}
	if err := s.reports.SaveReport(ctx, report); err != nil {
		s.logger.Error("failed to save analysis report",
			zap.String("user_id", userID.String()),
			zap.Error(fmt.Errorf("save report: %w", err)),
		)
	}
}
