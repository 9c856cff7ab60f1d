package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration. FromEnv builds it from
// environment variables so main stays lean.
type Config struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	JWTSigningKey string

	GitHub  GitHub
	Webhook Webhook
	Kafka   Kafka
}

// GitHub configures the review gateway boundary. Credentials are supplied by
// the surrounding process; the core never reads them from anywhere else.
type GitHub struct {
	APIBase    string
	Repo       string // owner/name
	BaseBranch string
	Token      string
	Timeout    time.Duration
}

// Webhook configures the inbound reconciliation webhook.
type Webhook struct {
	Secret string
}

// Kafka configures the audit outbox publisher. Empty brokers disable it.
type Kafka struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:          getenv("ROSTER_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("ROSTER_DATABASE_URL"),
		RedisURL:      os.Getenv("ROSTER_REDIS_URL"),
		JWTSigningKey: getenv("ROSTER_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		GitHub: GitHub{
			APIBase:    getenv("ROSTER_GITHUB_API", "https://api.github.com"),
			Repo:       getenv("ROSTER_GITHUB_REPO", "organization/content"),
			BaseBranch: getenv("ROSTER_GITHUB_BASE_BRANCH", "master"),
			Token:      os.Getenv("ROSTER_GITHUB_TOKEN"),
			Timeout:    getenvDuration("ROSTER_GITHUB_TIMEOUT", 15*time.Second),
		},
		Webhook: Webhook{
			Secret: os.Getenv("ROSTER_WEBHOOK_SECRET"),
		},
		Kafka: Kafka{
			Topic: getenv("ROSTER_KAFKA_AUDIT_TOPIC", "roster.audit-events"),
		},
	}
	if brokers := os.Getenv("ROSTER_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
