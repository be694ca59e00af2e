package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// CORSOrigins lists the browser origins allowed to call the API
	CORSOrigins []string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// SQLitePath is used instead of Postgres when DB_HOST is empty (local development)
	SQLitePath string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// JWT configuration
	JWTSecret string

	// Drug registry (government API)
	RegistryURL         string
	RegistryKey         string
	RegistryRatePerSec  float64
	RegistryConcurrency int

	// Food ingredient inference: "service" posts to InferenceURL, "llm" calls the chat API directly
	InferenceProvider string
	InferenceURL      string
	LLMAPIKey         string
	LLMBaseURL        string
	LLMModel          string

	// Downstream analysis engine
	AnalysisURL string

	// Logging
	LogLevel  string
	LogFormat string

	// Optional S3 archive of analysis reports
	ReportBucket string
	AWSRegion    string
}

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()
	cfg := &Config{}

	// Load configuration based on environment
	switch env {
	case CI:
		if err := loadCIConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to load CI configuration: %w", err)
		}
	case Development, Test:
		if err := loadDevConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to load development configuration: %w", err)
		}
	case Production:
		if err := loadProdConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to load production configuration: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown environment: %s", env)
	}

	applyDefaults(cfg)

	// Validate the configuration
	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadCIConfig loads configuration for CI environment using ONLY environment variables
func loadCIConfig(cfg *Config) error {
	loadFromEnv(cfg)

	cfg.DBPassword = os.Getenv("TEST_DB_PASSWORD")
	if cfg.DBPassword == "" {
		return fmt.Errorf("TEST_DB_PASSWORD environment variable is required in CI environment")
	}
	cfg.JWTSecret = os.Getenv("TEST_JWT_SECRET")
	cfg.RedisPassword = os.Getenv("TEST_REDIS_PASSWORD")
	cfg.RegistryKey = os.Getenv("TEST_REGISTRY_API_KEY")
	cfg.LLMAPIKey = os.Getenv("TEST_LLM_API_KEY")

	return nil
}

// loadDevConfig loads configuration for development environment.
// A .env file in the working directory is optional; secrets fall back to Docker secret files.
func loadDevConfig(cfg *Config) error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	loadFromEnv(cfg)

	cfg.DBPassword = envOrSecret("DB_PASSWORD", "db_password")
	cfg.JWTSecret = envOrSecret("JWT_SECRET", "jwt_secret")
	cfg.RedisPassword = envOrSecret("REDIS_PASSWORD", "redis_password")
	cfg.RegistryKey = envOrSecret("REGISTRY_API_KEY", "registry_api_key")
	cfg.LLMAPIKey = envOrSecret("LLM_API_KEY", "llm_api_key")

	return nil
}

// loadProdConfig loads configuration for production environment using ONLY Docker secrets
func loadProdConfig(cfg *Config) error {
	cfg.ServerPort = readSecret("server_port")
	cfg.ServerHost = readSecret("server_host")
	cfg.DBHost = readSecret("db_host")
	cfg.DBPort = readSecret("db_port")
	cfg.DBUser = readSecret("db_user")
	cfg.DBPassword = readSecret("db_password")
	cfg.DBName = readSecret("db_name")
	cfg.DBSSLMode = readSecret("db_ssl_mode")
	cfg.RedisHost = readSecret("redis_host")
	cfg.RedisPort = readSecret("redis_port")
	cfg.RedisPassword = readSecret("redis_password")
	cfg.RedisDB = 0 // This is a constant, not a secret
	cfg.RedisURL = readSecret("redis_url")
	cfg.JWTSecret = readSecret("jwt_secret")
	cfg.RegistryURL = readSecret("registry_url")
	cfg.RegistryKey = readSecret("registry_api_key")
	cfg.InferenceProvider = readSecret("inference_provider")
	cfg.InferenceURL = readSecret("inference_url")
	cfg.LLMAPIKey = readSecret("llm_api_key")
	cfg.LLMBaseURL = readSecret("llm_base_url")
	cfg.LLMModel = readSecret("llm_model")
	cfg.AnalysisURL = readSecret("analysis_url")
	cfg.ReportBucket = readSecret("report_bucket")

	// Non-sensitive tuning still comes from the environment
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	cfg.LogFormat = os.Getenv("LOG_FORMAT")
	cfg.AWSRegion = os.Getenv("AWS_REGION")
	cfg.CORSOrigins = parseList(os.Getenv("CORS_ORIGINS"))
	cfg.RegistryRatePerSec = parseFloat(os.Getenv("REGISTRY_RATE_PER_SEC"))
	cfg.RegistryConcurrency = parseInt(os.Getenv("REGISTRY_CONCURRENCY"))

	return nil
}

// loadFromEnv copies the non-secret settings shared by CI and development
func loadFromEnv(cfg *Config) {
	cfg.ServerPort = os.Getenv("SERVER_PORT")
	cfg.ServerHost = os.Getenv("SERVER_HOST")
	cfg.CORSOrigins = parseList(os.Getenv("CORS_ORIGINS"))
	cfg.DBHost = os.Getenv("DB_HOST")
	cfg.DBPort = os.Getenv("DB_PORT")
	cfg.DBUser = os.Getenv("DB_USER")
	cfg.DBName = os.Getenv("DB_NAME")
	cfg.DBSSLMode = os.Getenv("DB_SSL_MODE")
	cfg.SQLitePath = os.Getenv("SQLITE_PATH")
	cfg.RedisHost = os.Getenv("REDIS_HOST")
	cfg.RedisPort = os.Getenv("REDIS_PORT")
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.RedisDB = parseInt(os.Getenv("REDIS_DB"))
	cfg.RegistryURL = os.Getenv("REGISTRY_URL")
	cfg.RegistryRatePerSec = parseFloat(os.Getenv("REGISTRY_RATE_PER_SEC"))
	cfg.RegistryConcurrency = parseInt(os.Getenv("REGISTRY_CONCURRENCY"))
	cfg.InferenceProvider = os.Getenv("INFERENCE_PROVIDER")
	cfg.InferenceURL = os.Getenv("INFERENCE_URL")
	cfg.LLMBaseURL = os.Getenv("LLM_BASE_URL")
	cfg.LLMModel = os.Getenv("LLM_MODEL")
	cfg.AnalysisURL = os.Getenv("ANALYSIS_URL")
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	cfg.LogFormat = os.Getenv("LOG_FORMAT")
	cfg.ReportBucket = os.Getenv("REPORT_BUCKET")
	cfg.AWSRegion = os.Getenv("AWS_REGION")
}

func applyDefaults(cfg *Config) {
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.DBSSLMode == "" {
		cfg.DBSSLMode = "disable"
	}
	if cfg.DBHost == "" && cfg.SQLitePath == "" {
		cfg.SQLitePath = "medcheck.db"
	}
	if cfg.InferenceProvider == "" {
		cfg.InferenceProvider = InferenceProviderService
	}
	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = "https://api.deepseek.com/v1"
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = "deepseek-chat"
	}
	if cfg.RegistryConcurrency <= 0 {
		cfg.RegistryConcurrency = 4
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
}

// Inference providers
const (
	InferenceProviderService = "service"
	InferenceProviderLLM     = "llm"
)

// envOrSecret prefers the environment variable and falls back to the Docker secret file
func envOrSecret(envName, secretName string) string {
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return readSecret(secretName)
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func parseInt(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// parseList splits a comma-separated value, dropping blanks
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
