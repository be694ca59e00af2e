package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sxxm/medcheck/backend/internal/service"
	"github.com/sxxm/medcheck/backend/internal/types"
)

// MedicationLookup resolves a single medication name
type MedicationLookup interface {
	Resolve(ctx context.Context, name string) service.MedicationRecord
}

// MedicationResponse is a registry record plus whether the registry actually knew it
type MedicationResponse struct {
	service.MedicationRecord
	Found bool `json:"found"`
}

type MedicationHandler struct {
	medications MedicationLookup
}

func NewMedicationHandler(medications MedicationLookup) *MedicationHandler {
	return &MedicationHandler{medications: medications}
}

func (h *MedicationHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/medications", h.Lookup)
}

// Lookup handles GET /medications?name=. Registry failures still answer 200 with a fallback record.
func (h *MedicationHandler) Lookup(c *gin.Context) {
	var req types.MedicationLookupRequest
	if err := c.ShouldBindQuery(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	record := h.medications.Resolve(c.Request.Context(), req.Name)
	c.JSON(http.StatusOK, MedicationResponse{MedicationRecord: record, Found: record.Found()})
}
