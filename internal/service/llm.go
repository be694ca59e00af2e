package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sxxm/medcheck/backend/internal/metrics"
)

const foodInferenceSystemPrompt = `You are a food science assistant. For every food name you receive, list the ingredients it usually contains, including common allergens and additives.
Respond only with JSON in this structure:
{
  "food_ingredients": {
    "<food name exactly as given>": ["ingredient1", "ingredient2"]
  }
}`

// LLMConfig selects the OpenAI-compatible endpoint used for food inference and symptom analysis
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMFoodInferrer infers food ingredients by asking a chat completion model directly
type LLMFoodInferrer struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewLLMFoodInferrer creates a new LLMFoodInferrer instance
func NewLLMFoodInferrer(cfg LLMConfig, logger *zap.Logger) (*LLMFoodInferrer, error) {
	client, err := newChatClient(cfg)
	if err != nil {
		return nil, err
	}

	return &LLMFoodInferrer{
		client:  client,
		model:   cfg.Model,
		timeout: timeoutOrDefault(cfg.Timeout, defaultInferenceTimeout),
		logger:  logger,
	}, nil
}

func newChatClient(cfg LLMConfig) (*openai.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM API key must be set")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig), nil
}

func timeoutOrDefault(timeout, fallback time.Duration) time.Duration {
	if timeout <= 0 {
		return fallback
	}
	return timeout
}

// Infer asks the model for the ingredients of all foods in a single completion
func (s *LLMFoodInferrer) Infer(ctx context.Context, foodNames []string) (map[string][]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	names, err := json.Marshal(foodNames)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode food names: %v", ErrFoodInference, err)
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: foodInferenceSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Foods: %s", names),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		metrics.RecordExternalCall(metrics.DependencyInference, "transport_error", time.Since(start))
		return nil, fmt.Errorf("%w: %v", ErrFoodInference, err)
	}
	if len(resp.Choices) == 0 {
		metrics.RecordExternalCall(metrics.DependencyInference, "empty_payload", time.Since(start))
		return nil, fmt.Errorf("%w: no response choices", ErrFoodInference)
	}

	ingredients, err := parseFoodIngredientsContent(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.RecordExternalCall(metrics.DependencyInference, "unparseable", time.Since(start))
		s.logger.Warn("unusable food inference completion", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFoodInference, err)
	}
	metrics.RecordExternalCall(metrics.DependencyInference, "success", time.Since(start))

	return ingredients, nil
}

// parseFoodIngredientsContent accepts either {"food_ingredients": {...}} or a bare name->list
// object, optionally wrapped in a markdown code fence.
func parseFoodIngredientsContent(content string) (map[string][]string, error) {
	content = stripCodeFence(content)
	if content == "" {
		return nil, fmt.Errorf("empty completion")
	}

	var wrapped foodInferenceResponse
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil && wrapped.FoodIngredients != nil {
		return wrapped.FoodIngredients, nil
	}

	var bare map[string][]string
	if err := json.Unmarshal([]byte(content), &bare); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	if len(bare) == 0 {
		return nil, fmt.Errorf("completion contains no foods")
	}
	return bare, nil
}

func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
