package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sxxm/medcheck/backend/internal/middleware"
	"github.com/sxxm/medcheck/backend/internal/models"
	"github.com/sxxm/medcheck/backend/internal/service"
	"github.com/sxxm/medcheck/backend/internal/types"
)

const testSecret = "api-test-secret"

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, req service.AnalysisRequest) (*service.AnalysisResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AnalysisResult), args.Error(1)
}

type MockReportLister struct {
	mock.Mock
}

func (m *MockReportLister) ListReports(ctx context.Context, userID uuid.UUID) ([]models.SideEffectReport, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SideEffectReport), args.Error(1)
}

func bearer(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	claims := types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: userID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func setupAnalysisRouter(analyzer Analyzer, reports ReportLister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewAnalysisHandler(analyzer, reports, middleware.NewJWTValidator(testSecret), nil, zap.NewNop())
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func postAnalysis(router *gin.Engine, body interface{}, authHeader string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/side-effects", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAnalysisHandler_AnalyzeSideEffects(t *testing.T) {
	groups := []types.AnalysisGroup{
		{Type: "FOOD", Items: []string{"soy milk"}},
		{Type: "DRUG", Items: []string{"DrugA", "DrugB"}},
	}
	request := types.SideEffectAnalysisRequest{Groups: groups, Description: "rash after breakfast", OCRText: "lecithin"}

	t.Run("should analyze anonymously without a token", func(t *testing.T) {
		analyzer := new(MockAnalyzer)
		analyzer.On("Analyze", mock.Anything, mock.MatchedBy(func(req service.AnalysisRequest) bool {
			return req.UserID == nil && len(req.Groups) == 2 && req.Description == "rash after breakfast" && req.OCRText == "lecithin"
		})).Return(&service.AnalysisResult{
			CommonIngredients:    []string{"lecithin"},
			Summary:              "ok",
			FoodAllergyRisk:      service.RiskLow,
			MatchedFoodAllergens: []string{},
		}, nil)

		w := postAnalysis(setupAnalysisRouter(analyzer, new(MockReportLister)), request, "")

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, []interface{}{"lecithin"}, body["common_ingredients"])
		assert.Equal(t, "LOW", body["food_allergy_risk"])
		analyzer.AssertExpectations(t)
	})

	t.Run("should pass the authenticated caller", func(t *testing.T) {
		userID := uuid.New()
		analyzer := new(MockAnalyzer)
		analyzer.On("Analyze", mock.Anything, mock.MatchedBy(func(req service.AnalysisRequest) bool {
			return req.UserID != nil && *req.UserID == userID
		})).Return(&service.AnalysisResult{}, nil)

		w := postAnalysis(setupAnalysisRouter(analyzer, new(MockReportLister)), request, bearer(t, userID))

		assert.Equal(t, http.StatusOK, w.Code)
		analyzer.AssertExpectations(t)
	})

	t.Run("should reject an invalid token", func(t *testing.T) {
		analyzer := new(MockAnalyzer)

		w := postAnalysis(setupAnalysisRouter(analyzer, new(MockReportLister)), request, "Bearer garbage")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything)
	})

	t.Run("should map validation errors to 400", func(t *testing.T) {
		for _, sentinel := range []error{service.ErrNoGroups, service.ErrNoUsableGroups} {
			analyzer := new(MockAnalyzer)
			analyzer.On("Analyze", mock.Anything, mock.Anything).Return(nil, sentinel)

			w := postAnalysis(setupAnalysisRouter(analyzer, new(MockReportLister)), request, "")

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), sentinel.Error())
		}
	})

	t.Run("should hide internal errors behind a generic 500", func(t *testing.T) {
		analyzer := new(MockAnalyzer)
		analyzer.On("Analyze", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: dial tcp 10.0.0.5:8000: connection refused", service.ErrAnalysisEngine))

		w := postAnalysis(setupAnalysisRouter(analyzer, new(MockReportLister)), request, "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "10.0.0.5")
	})

	t.Run("should reject a malformed body", func(t *testing.T) {
		router := setupAnalysisRouter(new(MockAnalyzer), new(MockReportLister))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/side-effects", bytes.NewBufferString("{not json"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAnalysisHandler_ListReports(t *testing.T) {
	getReports := func(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/analysis/reports", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("should require authentication", func(t *testing.T) {
		w := getReports(setupAnalysisRouter(new(MockAnalyzer), new(MockReportLister)), "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("should return the caller's reports with decoded results", func(t *testing.T) {
		userID := uuid.New()
		reports := new(MockReportLister)
		reports.On("ListReports", mock.Anything, userID).Return([]models.SideEffectReport{
			{
				ID:             uuid.New(),
				UserID:         userID,
				GroupNames:     models.JSONBStringArray{"soy milk", "DrugA, DrugB"},
				Description:    "rash",
				AnalysisResult: `{"summary":"ok","food_allergy_risk":"HIGH"}`,
				CreatedAt:      time.Now(),
			},
		}, nil)

		w := getReports(setupAnalysisRouter(new(MockAnalyzer), reports), bearer(t, userID))

		assert.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Reports []struct {
				GroupNames []string               `json:"group_names"`
				Result     map[string]interface{} `json:"result"`
			} `json:"reports"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Reports, 1)
		assert.Equal(t, []string{"soy milk", "DrugA, DrugB"}, body.Reports[0].GroupNames)
		assert.Equal(t, "HIGH", body.Reports[0].Result["food_allergy_risk"])
		reports.AssertExpectations(t)
	})

	t.Run("should return 500 when the store fails", func(t *testing.T) {
		userID := uuid.New()
		reports := new(MockReportLister)
		reports.On("ListReports", mock.Anything, userID).Return(nil, errors.New("db down"))

		w := getReports(setupAnalysisRouter(new(MockAnalyzer), reports), bearer(t, userID))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestMedicationHandler_Lookup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lookup := func(medications MedicationLookup, query string) *httptest.ResponseRecorder {
		router := gin.New()
		NewMedicationHandler(medications).RegisterRoutes(router.Group("/api/v1"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/medications"+query, nil))
		return w
	}

	t.Run("should return a found registry record", func(t *testing.T) {
		registry := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "DrugA", r.URL.Query().Get("itemName"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"body":{"items":[{"itemName":"DrugA","mainItemIngr":"X","ingrName":"Z"}]}}`))
		}))
		defer registry.Close()
		medications := service.NewMedicationService(service.RegistryConfig{BaseURL: registry.URL, APIKey: "k"}, nil, zap.NewNop())

		w := lookup(medications, "?name=DrugA")

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, true, body["found"])
		assert.Equal(t, []interface{}{"X"}, body["active_ingredients"])
		assert.Equal(t, []interface{}{"Z"}, body["excipients"])
	})

	t.Run("should answer 200 with a fallback when the registry is not configured", func(t *testing.T) {
		medications := service.NewMedicationService(service.RegistryConfig{}, nil, zap.NewNop())

		w := lookup(medications, "?name=DrugA")

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, false, body["found"])
		assert.Equal(t, "DrugA", body["name"])
		assert.Equal(t, []interface{}{}, body["active_ingredients"])
		assert.Contains(t, body["description"], "not configured")
	})

	t.Run("should require a name", func(t *testing.T) {
		medications := service.NewMedicationService(service.RegistryConfig{}, nil, zap.NewNop())
		assert.Equal(t, http.StatusBadRequest, lookup(medications, "").Code)
		assert.Equal(t, http.StatusBadRequest, lookup(medications, "?name=%20%20").Code)
	})
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	check := func(checks map[string]Pinger) *httptest.ResponseRecorder {
		router := gin.New()
		router.GET("/health", NewHealthHandler(checks).HealthCheck)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		return w
	}

	t.Run("should report healthy stores", func(t *testing.T) {
		w := check(map[string]Pinger{"database": func(ctx context.Context) error { return nil }})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"database":"healthy"`)
	})

	t.Run("should report a degraded store", func(t *testing.T) {
		w := check(map[string]Pinger{
			"database": func(ctx context.Context) error { return nil },
			"redis":    func(ctx context.Context) error { return errors.New("down") },
		})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"redis":"unhealthy"`)
		assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	})
}
