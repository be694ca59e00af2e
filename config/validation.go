package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigRequirements defines required configuration for each environment
type ConfigRequirements struct {
	RequiredFields []string
}

var (
	// Environment-specific requirements. The drug registry is deliberately absent:
	// an unconfigured registry degrades lookups instead of blocking startup.
	requirements = map[Environment]ConfigRequirements{
		Development: {
			RequiredFields: []string{"SERVER_PORT", "ANALYSIS_URL"},
		},
		Test: {
			RequiredFields: []string{"SERVER_PORT", "ANALYSIS_URL"},
		},
		CI: {
			RequiredFields: []string{"SERVER_PORT", "DB_HOST", "DB_PORT", "DB_USER", "DB_NAME", "ANALYSIS_URL", "JWT_SECRET"},
		},
		Production: {
			RequiredFields: []string{"SERVER_PORT", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "ANALYSIS_URL", "JWT_SECRET"},
		},
	}
)

// fieldValues maps requirement names onto the loaded configuration
func fieldValues(cfg *Config) map[string]string {
	return map[string]string{
		"SERVER_PORT":  cfg.ServerPort,
		"DB_HOST":      cfg.DBHost,
		"DB_PORT":      cfg.DBPort,
		"DB_USER":      cfg.DBUser,
		"DB_PASSWORD":  cfg.DBPassword,
		"DB_NAME":      cfg.DBName,
		"ANALYSIS_URL": cfg.AnalysisURL,
		"JWT_SECRET":   cfg.JWTSecret,
	}
}

// ValidateConfig checks if the configuration meets the requirements for the current environment
func ValidateConfig(cfg *Config) error {
	env := GetEnvironment()
	reqs := requirements[env]
	values := fieldValues(cfg)

	var errors []string

	for _, field := range reqs.RequiredFields {
		if strings.TrimSpace(values[field]) == "" {
			errors = append(errors, ValidationError{Field: field, Message: "is required"}.Error())
		}
	}

	switch cfg.InferenceProvider {
	case InferenceProviderService:
		if cfg.InferenceURL == "" {
			errors = append(errors, ValidationError{Field: "INFERENCE_URL", Message: "is required when INFERENCE_PROVIDER=service"}.Error())
		}
	case InferenceProviderLLM:
		if cfg.LLMAPIKey == "" {
			errors = append(errors, ValidationError{Field: "LLM_API_KEY", Message: "is required when INFERENCE_PROVIDER=llm"}.Error())
		}
	default:
		errors = append(errors, ValidationError{Field: "INFERENCE_PROVIDER", Message: fmt.Sprintf("unknown provider %q", cfg.InferenceProvider)}.Error())
	}

	if cfg.RegistryRatePerSec < 0 {
		errors = append(errors, ValidationError{Field: "REGISTRY_RATE_PER_SEC", Message: "must not be negative"}.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}
