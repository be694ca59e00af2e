package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/sxxm/medcheck/backend/internal/metrics"
)

const defaultAnalysisTimeout = 60 * time.Second

// AnalysisEngineRequest is the cross-group payload sent to the analysis engine.
// GroupNames and GroupIngredients are parallel.
type AnalysisEngineRequest struct {
	GroupNames               []string   `json:"group_names"`
	GroupIngredients         [][]string `json:"group_ingredients"`
	LegacyAllergyIngredients []string   `json:"legacy_allergy_ingredients"`
	Description              string     `json:"description"`
	MedicationAllergies      []string   `json:"medication_allergies"`
	FoodAllergies            []string   `json:"food_allergies"`
}

// AnalysisEngineClient posts analysis requests to the downstream engine
type AnalysisEngineClient struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

// NewAnalysisEngineClient creates a new AnalysisEngineClient instance
func NewAnalysisEngineClient(url string, timeout time.Duration, logger *zap.Logger) *AnalysisEngineClient {
	if timeout <= 0 {
		timeout = defaultAnalysisTimeout
	}
	return &AnalysisEngineClient{
		client: resty.New().SetTimeout(timeout),
		url:    url,
		logger: logger,
	}
}

// Analyze makes exactly one call. Transport failures, non-2xx replies and bodies that are
// not a JSON object all wrap ErrAnalysisEngine.
func (c *AnalysisEngineClient) Analyze(ctx context.Context, req *AnalysisEngineRequest) (map[string]interface{}, error) {
	if c.url == "" {
		return nil, fmt.Errorf("%w: analysis url is not configured", ErrAnalysisEngine)
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(req).
		Post(c.url)
	if err != nil {
		metrics.RecordExternalCall(metrics.DependencyAnalysis, "transport_error", time.Since(start))
		return nil, fmt.Errorf("%w: %v", ErrAnalysisEngine, err)
	}
	if resp.IsError() {
		metrics.RecordExternalCall(metrics.DependencyAnalysis, "http_error", time.Since(start))
		c.logger.Error("analysis engine returned error status",
			zap.Int("status", resp.StatusCode()),
			zap.String("body", truncate(resp.String(), 512)),
		)
		return nil, fmt.Errorf("%w: unexpected status %d", ErrAnalysisEngine, resp.StatusCode())
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil || payload == nil {
		metrics.RecordExternalCall(metrics.DependencyAnalysis, "unparseable", time.Since(start))
		return nil, fmt.Errorf("%w: response is not a JSON object", ErrAnalysisEngine)
	}
	metrics.RecordExternalCall(metrics.DependencyAnalysis, "success", time.Since(start))

	return payload, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
