package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Food allergy risk levels reported by the analysis engine
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// SensitiveIngredient is an ingredient the user is likely sensitive to
type SensitiveIngredient struct {
	IngredientName   string `json:"ingredient_name"`
	Reason           string `json:"reason"`
	Severity         string `json:"severity"`
	IsFoodOrigin     bool   `json:"is_food_origin"`
	FoodAllergyMatch string `json:"food_allergy_match"`
}

// SideEffectIngredient describes a known side effect of an ingredient
type SideEffectIngredient struct {
	IngredientName        string `json:"ingredient_name"`
	SideEffectDescription string `json:"side_effect_description"`
	Frequency             string `json:"frequency"`
}

// FoodAllergyAnalysis is the engine's optional food-origin breakdown
type FoodAllergyAnalysis struct {
	DetectedFoodOriginIngredients []string `json:"detected_food_origin_ingredients"`
	MatchedAllergens              []string `json:"matched_allergens"`
	RiskAssessment                string   `json:"risk_assessment"`
}

// AnalysisResult is the normalized analysis returned to callers and persisted in reports
type AnalysisResult struct {
	CommonIngredients            []string               `json:"common_ingredients"`
	UserSensitiveIngredients     []SensitiveIngredient  `json:"user_sensitive_ingredients"`
	CommonSideEffectIngredients  []SideEffectIngredient `json:"common_side_effect_ingredients"`
	Summary                      string                 `json:"summary"`
	FoodAllergyRisk              string                 `json:"food_allergy_risk"`
	MatchedFoodAllergens         []string               `json:"matched_food_allergens"`
	FoodOriginExcipientsDetected []string               `json:"food_origin_excipients_detected"`
	FoodAllergyAnalysis          *FoodAllergyAnalysis   `json:"food_allergy_analysis,omitempty"`
}

// ParseAnalysisResponse converts a raw engine payload into an AnalysisResult. Missing or
// mistyped fields take their empty value; collections are never nil.
func ParseAnalysisResponse(raw map[string]interface{}) *AnalysisResult {
	result := &AnalysisResult{
		CommonIngredients:            stringList(raw["common_ingredients"]),
		UserSensitiveIngredients:     []SensitiveIngredient{},
		CommonSideEffectIngredients:  []SideEffectIngredient{},
		Summary:                      stringValue(raw["summary"]),
		FoodAllergyRisk:              riskLevel(raw["food_allergy_risk"]),
		MatchedFoodAllergens:         allergenList(raw["matched_food_allergens"]),
		FoodOriginExcipientsDetected: stringList(raw["food_origin_excipients_detected"]),
	}

	for _, entry := range objectList(raw["user_sensitive_ingredients"]) {
		result.UserSensitiveIngredients = append(result.UserSensitiveIngredients, SensitiveIngredient{
			IngredientName:   stringValue(entry["ingredient_name"]),
			Reason:           stringValue(entry["reason"]),
			Severity:         stringValue(entry["severity"]),
			IsFoodOrigin:     boolValue(entry["is_food_origin"]),
			FoodAllergyMatch: stringValue(entry["food_allergy_match"]),
		})
	}

	for _, entry := range objectList(raw["common_side_effect_ingredients"]) {
		result.CommonSideEffectIngredients = append(result.CommonSideEffectIngredients, SideEffectIngredient{
			IngredientName:        stringValue(entry["ingredient_name"]),
			SideEffectDescription: stringValue(entry["side_effect_description"]),
			Frequency:             stringValue(entry["frequency"]),
		})
	}

	if nested, ok := raw["food_allergy_analysis"].(map[string]interface{}); ok {
		result.FoodAllergyAnalysis = &FoodAllergyAnalysis{
			DetectedFoodOriginIngredients: stringList(nested["detected_food_origin_ingredients"]),
			MatchedAllergens:              allergenList(nested["matched_allergens"]),
			RiskAssessment:                stringValue(nested["risk_assessment"]),
		}
	}

	return result
}

// MergeMatchedAllergens appends locally detected trigger keywords to the engine's matches
func (r *AnalysisResult) MergeMatchedAllergens(keywords []string) {
	r.MatchedFoodAllergens = uniqueStrings(r.MatchedFoodAllergens, keywords)
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func boolValue(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	default:
		return false
	}
}

func stringList(v interface{}) []string {
	out := []string{}
	items, ok := v.([]interface{})
	if !ok {
		return out
	}
	for _, item := range items {
		if s := stringValue(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// allergenList accepts a plain list or an {allergy: [ingredients]} map, whose keys are
// returned sorted
func allergenList(v interface{}) []string {
	m, ok := v.(map[string]interface{})
	if !ok {
		return stringList(v)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return uniqueStrings(keys)
}

func objectList(v interface{}) []map[string]interface{} {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

// riskLevel returns "" when the engine gave no assessment and LOW for values it does not know
func riskLevel(v interface{}) string {
	switch level := strings.ToUpper(strings.TrimSpace(stringValue(v))); level {
	case "":
		return ""
	case RiskLow, RiskMedium, RiskHigh:
		return level
	default:
		return RiskLow
	}
}
