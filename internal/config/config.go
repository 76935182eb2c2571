package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	DatabaseURL string
	ServerPort  string
	BaseURL     string
	FrontendURL string

	// Upstream generation API (OpenAI-compatible, e.g. OpenRouter)
	UpstreamAPIKey  string
	UpstreamBaseURL string
	DefaultModel    string
	ImageModel      string
	FallbackModel   string

	StripeSecretKey string
	ResendAPIKey    string
	EmailSender     string

	OIDCIssuer  string
	OIDCJWKSURL string

	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int

	RateLimit       string
	ServerDebugMode bool
	WorkerDebugMode bool

	OTELEnabled  bool
	OTELEndpoint string
}

// DefaultUpstreamBaseURL is the default OpenAI-compatible endpoint for generation.
const DefaultUpstreamBaseURL = "https://openrouter.ai/api/v1"

// DefaultModel is used when neither the request nor the environment names a model.
const DefaultModel = "google/gemini-2.0-flash-exp:free"

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		BaseURL:     getEnv("BASE_URL", ""),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		UpstreamAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		UpstreamBaseURL: getEnv("OPENROUTER_BASE_URL", DefaultUpstreamBaseURL),
		DefaultModel:    getEnv("OPENROUTER_MODEL", DefaultModel),
		ImageModel:      getEnv("OPENROUTER_IMAGE_MODEL", ""),
		FallbackModel:   getEnv("OPENROUTER_FALLBACK_MODEL", ""),

		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		ResendAPIKey:    getEnv("RESEND_API_KEY", ""),
		EmailSender:     getEnv("EMAIL_SENDER", "hello@sankpost.me"),

		OIDCIssuer:  getEnv("OIDC_ISSUER", ""),
		OIDCJWKSURL: getEnv("OIDC_JWKS_URL", ""),

		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),

		RateLimit:       getEnv("RATE_LIMIT", "5-S"),
		ServerDebugMode: getEnvBool("SERVER_DEBUG_MODE", false),
		WorkerDebugMode: getEnvBool("WORKER_DEBUG_MODE", false),

		OTELEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
