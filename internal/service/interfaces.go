package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sxxm/medcheck/backend/internal/models"
)

// UserDirectory is the identity/allergy collaborator the analysis reads from
type UserDirectory interface {
	FindUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	FindAllergiesByUserID(ctx context.Context, userID uuid.UUID) ([]models.UserAllergy, error)
}

// ReportStore is the persistence sink for completed analyses
type ReportStore interface {
	SaveReport(ctx context.Context, report *models.SideEffectReport) error
	ListReports(ctx context.Context, userID uuid.UUID) ([]models.SideEffectReport, error)
}

// MedicationResolver resolves medication names to ingredient records. It never fails:
// every error path degrades to a fallback record.
type MedicationResolver interface {
	Resolve(ctx context.Context, name string) MedicationRecord
	ResolveAll(ctx context.Context, names []string) []MedicationRecord
}

// FoodIngredientInferrer resolves food names to inferred ingredient lists in one call.
// Unlike MedicationResolver it reports failures to the caller.
type FoodIngredientInferrer interface {
	Infer(ctx context.Context, foodNames []string) (map[string][]string, error)
}

// AnalysisEngine calls the downstream analysis service and returns its raw payload
type AnalysisEngine interface {
	Analyze(ctx context.Context, req *AnalysisEngineRequest) (map[string]interface{}, error)
}

// MedicationCache stores successful registry lookups
type MedicationCache interface {
	Get(ctx context.Context, name string) (*MedicationRecord, bool)
	Set(ctx context.Context, name string, record MedicationRecord) error
}

// ReportArchiver keeps an external copy of a persisted report
type ReportArchiver interface {
	Archive(ctx context.Context, report *models.SideEffectReport) error
}
