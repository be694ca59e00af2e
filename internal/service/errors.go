package service

import "errors"

var (
	// ErrNoGroups is returned when a request carries no groups at all
	ErrNoGroups = errors.New("no groups provided")
	// ErrNoUsableGroups is returned when every group in a request was skipped as invalid
	ErrNoUsableGroups = errors.New("no usable groups: every group was missing a valid type or items")
	ErrAnalysisEngine = errors.New("analysis engine call failed")
	ErrFoodInference  = errors.New("food ingredient inference failed")

	// ErrEmptySymptom is returned when a symptom analysis has no symptom text
	ErrEmptySymptom    = errors.New("symptom text is required")
	ErrUserNotFound    = errors.New("user not found")
	ErrSymptomAnalysis = errors.New("symptom analysis failed")
)
