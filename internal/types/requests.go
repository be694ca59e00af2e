package types

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisGroup is one user-defined bundle of foods or medications analyzed together
type AnalysisGroup struct {
	Type  string   `json:"type"`
	Items []string `json:"items"`
}

// SideEffectAnalysisRequest represents the request body for a group-based side-effect analysis.
// Groups are validated by the analysis pipeline, not by binding tags, so that one malformed
// group does not reject the whole request.
type SideEffectAnalysisRequest struct {
	Groups      []AnalysisGroup `json:"groups"`
	Description string          `json:"description"`
	OCRText     string          `json:"ocr_text"`
}

// MedicationLookupRequest represents the query of a single registry lookup
type MedicationLookupRequest struct {
	Name string `form:"name" binding:"required"`
}

// ReportResponse is a persisted analysis report as returned to its owner
type ReportResponse struct {
	ID          uuid.UUID   `json:"id"`
	GroupNames  []string    `json:"group_names"`
	Description string      `json:"description"`
	Result      interface{} `json:"result"`
	CreatedAt   time.Time   `json:"created_at"`
}

// SymptomAnalysisRequest represents the request body for a symptom analysis of the caller
type SymptomAnalysisRequest struct {
	SymptomText string `json:"symptom_text" binding:"required"`
}
