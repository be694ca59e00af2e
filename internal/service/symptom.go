package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sxxm/medcheck/backend/internal/metrics"
)

const defaultSymptomTimeout = 60 * time.Second

const symptomSystemPrompt = `You are a medical assistant. Always respond in valid JSON format only.`

const symptomRules = `Follow these rules:
1. When recommending medications, consider both the medication and the food allergy lists. Check active ingredients, excipients, additives and food-derived ingredients.
   Apply food allergy to excipient links, for example: peanut allergy means avoiding peanut oil; lactose intolerance means avoiding lactose; egg allergy means avoiding egg white or albumin; gluten allergy means avoiding wheat starch or gluten.
2. A medication must be avoided when its active ingredients, excipients or additives contain an allergen of the user, or a food-derived excipient related to a food allergy.
3. Respond with JSON in this structure:
{
  "recommended_medications": [{"name": "", "reason": "", "dosage": ""}],
  "not_recommended_medications": [{"name": "", "reason": "", "allergic_ingredients": [""]}],
  "precautions": [""],
  "food_allergy_risk": "LOW|MEDIUM|HIGH",
  "matched_food_allergens": [""],
  "food_origin_excipients_detected": [""]
}`

// RecommendedMedication is a medication suggested for the described symptoms
type RecommendedMedication struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Dosage string `json:"dosage"`
}

// NotRecommendedMedication is a medication the user should avoid and the allergens behind it
type NotRecommendedMedication struct {
	Name                string   `json:"name"`
	Reason              string   `json:"reason"`
	AllergicIngredients []string `json:"allergic_ingredients"`
}

// SymptomAnalysisResult is the normalized answer to a symptom analysis
type SymptomAnalysisResult struct {
	RecommendedMedications       []RecommendedMedication    `json:"recommended_medications"`
	NotRecommendedMedications    []NotRecommendedMedication `json:"not_recommended_medications"`
	Precautions                  []string                   `json:"precautions"`
	FoodAllergyRisk              string                     `json:"food_allergy_risk"`
	MatchedFoodAllergens         []string                   `json:"matched_food_allergens"`
	FoodOriginExcipientsDetected []string                   `json:"food_origin_excipients_detected"`
}

// SymptomService asks a chat completion model which medications suit a user's symptoms
// given their registered allergies
type SymptomService struct {
	directory UserDirectory
	allergies *AllergyService
	client    *openai.Client
	model     string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewSymptomService creates a new SymptomService instance
func NewSymptomService(cfg LLMConfig, directory UserDirectory, logger *zap.Logger) (*SymptomService, error) {
	client, err := newChatClient(cfg)
	if err != nil {
		return nil, err
	}

	return &SymptomService{
		directory: directory,
		allergies: NewAllergyService(directory, logger),
		client:    client,
		model:     cfg.Model,
		timeout:   timeoutOrDefault(cfg.Timeout, defaultSymptomTimeout),
		logger:    logger,
	}, nil
}

// Analyze answers a symptom description for a known user. Unknown users yield ErrUserNotFound;
// model failures wrap ErrSymptomAnalysis.
func (s *SymptomService) Analyze(ctx context.Context, userID uuid.UUID, symptomText string) (*SymptomAnalysisResult, error) {
	symptomText = strings.TrimSpace(symptomText)
	if symptomText == "" {
		return nil, ErrEmptySymptom
	}

	user, err := s.directory.FindUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	profile, err := s.allergies.Split(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, buildSymptomPrompt(symptomText, profile))
	if err != nil {
		return nil, err
	}

	result := ParseSymptomResponse(raw)
	if len(profile.FoodCategories) > 0 {
		result.MatchedFoodAllergens = uniqueStrings(result.MatchedFoodAllergens,
			DetectAllergenTriggers(symptomTriggerText(symptomText, result), profile.FoodCategories))
	}
	return result, nil
}

func (s *SymptomService) complete(ctx context.Context, prompt string) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: symptomSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		metrics.RecordExternalCall(metrics.DependencySymptoms, "transport_error", time.Since(start))
		return nil, fmt.Errorf("%w: %v", ErrSymptomAnalysis, err)
	}
	if len(resp.Choices) == 0 {
		metrics.RecordExternalCall(metrics.DependencySymptoms, "empty_payload", time.Since(start))
		return nil, fmt.Errorf("%w: no response choices", ErrSymptomAnalysis)
	}

	var raw map[string]interface{}
	content := stripCodeFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &raw); err != nil || raw == nil {
		metrics.RecordExternalCall(metrics.DependencySymptoms, "unparseable", time.Since(start))
		s.logger.Warn("unusable symptom analysis completion", zap.String("content", truncate(content, 512)))
		return nil, fmt.Errorf("%w: completion is not a JSON object", ErrSymptomAnalysis)
	}
	metrics.RecordExternalCall(metrics.DependencySymptoms, "success", time.Since(start))

	return raw, nil
}

func buildSymptomPrompt(symptomText string, profile AllergyProfile) string {
	var b strings.Builder
	b.WriteString("The user reports the following symptoms:\n\n")
	b.WriteString("Symptoms: ")
	b.WriteString(symptomText)
	b.WriteString("\n\n")

	writeList := func(title string, values []string) {
		if len(values) == 0 {
			return
		}
		b.WriteString(title)
		b.WriteString(":\n")
		for _, v := range values {
			b.WriteString("- ")
			b.WriteString(v)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	writeList("Medication allergy ingredients of the user", profile.Medication)
	writeList("Food allergy ingredients of the user", profile.Food)

	b.WriteString(symptomRules)
	return b.String()
}

// ParseSymptomResponse normalizes a model answer. Keys are accepted in snake_case or camelCase;
// collections are never nil.
func ParseSymptomResponse(raw map[string]interface{}) *SymptomAnalysisResult {
	result := &SymptomAnalysisResult{
		RecommendedMedications:       []RecommendedMedication{},
		NotRecommendedMedications:    []NotRecommendedMedication{},
		Precautions:                  stringList(firstField(raw, "precautions")),
		FoodAllergyRisk:              riskLevel(firstField(raw, "food_allergy_risk", "foodAllergyRisk")),
		MatchedFoodAllergens:         allergenList(firstField(raw, "matched_food_allergens", "matchedFoodAllergens")),
		FoodOriginExcipientsDetected: stringList(firstField(raw, "food_origin_excipients_detected", "foodOriginExcipientsDetected")),
	}

	for _, entry := range objectList(firstField(raw, "recommended_medications", "recommendedMedications")) {
		result.RecommendedMedications = append(result.RecommendedMedications, RecommendedMedication{
			Name:   stringValue(entry["name"]),
			Reason: stringValue(entry["reason"]),
			Dosage: stringValue(entry["dosage"]),
		})
	}
	for _, entry := range objectList(firstField(raw, "not_recommended_medications", "notRecommendedMedications")) {
		result.NotRecommendedMedications = append(result.NotRecommendedMedications, NotRecommendedMedication{
			Name:                stringValue(entry["name"]),
			Reason:              stringValue(entry["reason"]),
			AllergicIngredients: stringList(firstField(entry, "allergic_ingredients", "allergicIngredients")),
		})
	}
	return result
}

// firstField returns the value of the first key present in raw
func firstField(raw map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func symptomTriggerText(symptomText string, result *SymptomAnalysisResult) string {
	parts := append([]string{symptomText}, result.FoodOriginExcipientsDetected...)
	for _, med := range result.NotRecommendedMedications {
		parts = append(parts, med.AllergicIngredients...)
	}
	return strings.Join(parts, "\n")
}
