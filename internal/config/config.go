package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Environment string

	// PersistenceAPIURL is the base URL of the external cart/wishlist
	// persistence API.
	PersistenceAPIURL string

	// NATSURL enables the identity event listener when set.
	NATSURL string

	// RedisURL enables guest snapshot persistence when set.
	RedisURL string

	SessionTTL   time.Duration
	ReapInterval time.Duration

	RetryDelay             time.Duration
	CredentialPollAttempts int
	CredentialPollInterval time.Duration
}

// New creates a new configuration from environment variables
func New() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		PersistenceAPIURL: getEnv("PERSISTENCE_API_URL", "http://commerce-api.global.svc.cluster.local:8091/api/v1"),
		NATSURL:           getEnv("NATS_URL", ""),
		RedisURL:          getEnv("REDIS_URL", ""),

		SessionTTL:   getEnvDuration("SESSION_TTL", 30*time.Minute),
		ReapInterval: getEnvDuration("SESSION_REAP_INTERVAL", 5*time.Minute),

		RetryDelay:             getEnvDuration("RETRY_DELAY", 750*time.Millisecond),
		CredentialPollAttempts: getEnvInt("CREDENTIAL_POLL_ATTEMPTS", 5),
		CredentialPollInterval: getEnvDuration("CREDENTIAL_POLL_INTERVAL", 400*time.Millisecond),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
