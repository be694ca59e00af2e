package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/sxxm/medcheck/backend/internal/metrics"
)

const defaultInferenceTimeout = 60 * time.Second

type foodInferenceRequest struct {
	FoodNames []string `json:"food_names"`
}

type foodInferenceResponse struct {
	FoodIngredients map[string][]string `json:"food_ingredients"`
}

// FoodInferenceService asks the inference service which ingredients a list of foods contains
type FoodInferenceService struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

// NewFoodInferenceService creates a client for the inference endpoint at url
func NewFoodInferenceService(url string, timeout time.Duration, logger *zap.Logger) *FoodInferenceService {
	if timeout <= 0 {
		timeout = defaultInferenceTimeout
	}
	return &FoodInferenceService{
		client: resty.New().SetTimeout(timeout),
		url:    url,
		logger: logger,
	}
}

// Infer sends all names in one request. Unreachable services, non-2xx replies and replies
// without a food_ingredients object are errors wrapping ErrFoodInference.
func (s *FoodInferenceService) Infer(ctx context.Context, foodNames []string) (map[string][]string, error) {
	if s.url == "" {
		return nil, fmt.Errorf("%w: inference url is not configured", ErrFoodInference)
	}

	start := time.Now()
	var result foodInferenceResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(foodInferenceRequest{FoodNames: foodNames}).
		SetResult(&result).
		Post(s.url)
	if err != nil {
		metrics.RecordExternalCall(metrics.DependencyInference, "transport_error", time.Since(start))
		return nil, fmt.Errorf("%w: %v", ErrFoodInference, err)
	}
	if resp.IsError() {
		metrics.RecordExternalCall(metrics.DependencyInference, "http_error", time.Since(start))
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFoodInference, resp.StatusCode())
	}
	if result.FoodIngredients == nil {
		metrics.RecordExternalCall(metrics.DependencyInference, "empty_payload", time.Since(start))
		return nil, fmt.Errorf("%w: response has no food_ingredients", ErrFoodInference)
	}
	metrics.RecordExternalCall(metrics.DependencyInference, "success", time.Since(start))

	s.logger.Debug("inferred food ingredients",
		zap.Strings("foods", foodNames),
		zap.Int("resolved", len(result.FoodIngredients)),
	)
	return result.FoodIngredients, nil
}
