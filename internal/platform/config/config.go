package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything main needs to wire the service.
type Config struct {
	Addr string

	// DatabaseURL selects the PostgreSQL registrant store when set;
	// the in-memory store is used otherwise.
	DatabaseURL string

	// RedisURL selects the Redis-backed rate limiter when set.
	RedisURL string

	// KafkaBrokers enables the Kafka audit sink when non-empty
	// (comma-separated broker list).
	KafkaBrokers string
	AuditTopic   string

	Provider ProviderConfig

	// DevMode turns off rate limiting for local development and demos.
	// Never enable in production.
	DevMode bool
}

// ProviderConfig holds credentials and limits for the external KYC provider.
type ProviderConfig struct {
	BaseURL       string
	AppToken      string
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
	TokenTTL      time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	addr := os.Getenv("VOUCH_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	providerTimeout := durationEnv("PROVIDER_TIMEOUT", 10*time.Second)
	tokenTTL := durationEnv("PROVIDER_TOKEN_TTL", time.Hour)

	baseURL := os.Getenv("PROVIDER_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.sumsub.com"
	}

	webhookSecret := os.Getenv("PROVIDER_WEBHOOK_SECRET")
	if webhookSecret == "" {
		// The provider signs webhooks with the API secret unless a dedicated
		// webhook secret is configured.
		webhookSecret = os.Getenv("PROVIDER_SECRET_KEY")
	}

	auditTopic := os.Getenv("AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "vouch.audit"
	}

	return Config{
		Addr:         addr,
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		AuditTopic:   auditTopic,
		Provider: ProviderConfig{
			BaseURL:       baseURL,
			AppToken:      os.Getenv("PROVIDER_APP_TOKEN"),
			SecretKey:     os.Getenv("PROVIDER_SECRET_KEY"),
			WebhookSecret: webhookSecret,
			Timeout:       providerTimeout,
			TokenTTL:      tokenTTL,
		},
		DevMode: os.Getenv("DEV_MODE") == "true",
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	// Tolerate plain seconds for operators used to the old deployment.
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
