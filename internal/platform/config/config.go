// Package config builds runtime configuration from environment variables so
// main stays lean. Every knob has a development default; production overrides
// via env.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	PostgresURL string

	Redis RedisConfig

	Kafka KafkaConfig

	Shift ShiftConfig

	// DirectoryCacheTTL bounds staleness of cached directory profiles.
	DirectoryCacheTTL time.Duration

	// DirectorySeedFile points at a JSON file of user profiles; empty means
	// an empty directory.
	DirectorySeedFile string

	// AuditBuffer is the audit publisher's inbox capacity.
	AuditBuffer int

	// AdminKeyHash is the bcrypt hash of the bootstrap admin key; empty
	// disables the token issuance endpoint.
	AdminKeyHash string

	// TokenTTL is the lifetime of issued access tokens.
	TokenTTL time.Duration
}

// RedisConfig holds connection settings for the directory cache. An empty URL
// disables caching entirely.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the audit sink's broker settings. Empty brokers disable
// the Kafka sink; events still land in the local audit store.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ShiftConfig is the org-wide working hours policy.
type ShiftConfig struct {
	ExpectedStart        string
	ExpectedEnd          string
	GraceMinutes         int
	StandardShiftMinutes int
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:          envOr("STAFFOPS_ADDR", ":8080"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     envOr("JWT_ISSUER", "staffops"),
		JWTAudience:   envOr("JWT_AUDIENCE", "staffops-api"),
		PostgresURL:   os.Getenv("POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_AUDIT_TOPIC", "staffops.audit"),
		},
		Shift: ShiftConfig{
			ExpectedStart:        envOr("SHIFT_EXPECTED_START", "09:00"),
			ExpectedEnd:          envOr("SHIFT_EXPECTED_END", "18:00"),
			GraceMinutes:         envInt("SHIFT_GRACE_MINUTES", 15),
			StandardShiftMinutes: envInt("SHIFT_STANDARD_MINUTES", 480),
		},
		DirectoryCacheTTL: envDuration("DIRECTORY_CACHE_TTL", 5*time.Minute),
		DirectorySeedFile: os.Getenv("DIRECTORY_SEED_FILE"),
		AuditBuffer:       envInt("AUDIT_BUFFER", 1024),
		AdminKeyHash:      os.Getenv("ADMIN_KEY_HASH"),
		TokenTTL:          envDuration("TOKEN_TTL", time.Hour),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
