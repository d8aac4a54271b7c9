package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DatabaseURL   string
	WebhookSecret string

	SNSCertDomain string
	AWSRegion     string

	AgentBaseURL string
	AgentAPIKey  string

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	retryAttempts := 3
	if raw := os.Getenv("RETRY_MAX_ATTEMPTS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			retryAttempts = parsed
		}
	}

	retryDelay := time.Second
	if raw := os.Getenv("RETRY_BASE_DELAY"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			retryDelay = parsed
		}
	}

	return &Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      getEnv("DATABASE_URL", "host=localhost user=mailroom dbname=mailroom port=5432 sslmode=disable"),
		WebhookSecret:    getEnv("WEBHOOK_SECRET", ""),
		SNSCertDomain:    getEnv("SNS_CERT_DOMAIN", "amazonaws.com"),
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		AgentBaseURL:     getEnv("AGENT_BASE_URL", ""),
		AgentAPIKey:      getEnv("AGENT_API_KEY", ""),
		RetryMaxAttempts: retryAttempts,
		RetryBaseDelay:   retryDelay,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
