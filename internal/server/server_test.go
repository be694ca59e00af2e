package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sxxm/medcheck/backend/config"
	"github.com/sxxm/medcheck/backend/internal/api"
	"github.com/sxxm/medcheck/backend/internal/database"
	"github.com/sxxm/medcheck/backend/internal/middleware"
	"github.com/sxxm/medcheck/backend/internal/router"
	"github.com/sxxm/medcheck/backend/internal/service"
	"github.com/sxxm/medcheck/backend/internal/testhelpers"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	logger := zap.NewNop()

	medications := service.NewMedicationService(service.RegistryConfig{}, nil, logger)
	reports := service.NewReportService(db, nil, logger)
	handlers := router.Handlers{
		Analysis:   api.NewAnalysisHandler(nil, reports, middleware.NewJWTValidator("test-secret"), nil, logger),
		Medication: api.NewMedicationHandler(medications),
		Health: api.NewHealthHandler(map[string]api.Pinger{
			"database": func(ctx context.Context) error { return database.HealthCheck(ctx, db) },
		}),
	}

	cfg := &config.Config{
		ServerHost:  "127.0.0.1",
		ServerPort:  "0",
		CORSOrigins: []string{"https://medcheck.app"},
	}
	return New(cfg, router.SetupRouter(handlers, cfg.CORSOrigins, logger), logger)
}

func TestNew(t *testing.T) {
	server := newTestServer(t)
	require.NotNil(t, server)

	t.Run("should serve health", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"database":"healthy"`)
	})

	t.Run("should expose prometheus metrics", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "go_goroutines")
	})

	t.Run("should mount medication lookup under api v1", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/medications?name=DrugA", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"found":false`)
	})

	t.Run("should answer CORS preflight for configured origins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/analysis/side-effects", nil)
		req.Header.Set("Origin", "https://medcheck.app")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, req)
		assert.Equal(t, "https://medcheck.app", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("should require auth for reports", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/analysis/reports", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestServerRun(t *testing.T) {
	server := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestNew_SymptomRoute(t *testing.T) {
	t.Run("should not mount symptom analysis without a symptom handler", func(t *testing.T) {
		server := newTestServer(t)
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/analysis/symptoms", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
