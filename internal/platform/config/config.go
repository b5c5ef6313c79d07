// Package config builds runtime configuration from environment variables so
// main stays lean. No configuration framework: the service has a small, flat
// settings surface.
package config

import (
	"os"
	"strings"
	"time"

	"coref/internal/domain"
)

// Config captures everything the server needs at startup.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// Mode is the registry operating mode (OPEN or CLOSED). It is resolved
	// once here and passed explicitly into every reconciliation call.
	Mode domain.Mode
	// DatabaseURL enables the PostgreSQL backends when set; empty falls back
	// to in-memory stores (single node, non-durable).
	DatabaseURL string
	// RedisURL enables the query cache when set.
	RedisURL string
	// KafkaBrokers enables topology change events when non-empty.
	KafkaBrokers []string
	// KafkaTopic overrides the default topology event topic.
	KafkaTopic string
	// JWTSigningKey verifies party tokens.
	JWTSigningKey string
	// AdminToken gates the participant admin endpoints.
	AdminToken string
	// QueryCacheTTL bounds how long cached topology answers may live.
	QueryCacheTTL time.Duration
}

// FromEnv reads COREF_* environment variables, applying development defaults
// that must be overridden in production.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:          envOr("COREF_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("COREF_DATABASE_URL"),
		RedisURL:      os.Getenv("COREF_REDIS_URL"),
		KafkaTopic:    os.Getenv("COREF_KAFKA_TOPIC"),
		JWTSigningKey: envOr("COREF_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminToken:    envOr("COREF_ADMIN_TOKEN", "dev-admin-token"),
		QueryCacheTTL: 5 * time.Minute,
	}

	mode, err := domain.ParseMode(envOr("COREF_MODE", "CLOSED"))
	if err != nil {
		return Config{}, err
	}
	cfg.Mode = mode

	if brokers := os.Getenv("COREF_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if ttl := os.Getenv("COREF_QUERY_CACHE_TTL"); ttl != "" {
		parsed, err := time.ParseDuration(ttl)
		if err != nil {
			return Config{}, err
		}
		cfg.QueryCacheTTL = parsed
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
