package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "badgemint/pkg/platform/strings"
)

// Server captures process-level configuration. Registry configuration
// (admin, fee, treasury) is runtime state handled by the initialize
// operation, not environment config.
type Server struct {
	Addr          string
	LogLevel      string
	JWTSigningKey string

	// Storage backends. Empty values select the in-memory implementations.
	PostgresDSN string
	Redis       RedisConfig

	// KafkaBrokers enables the Kafka event publisher when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// NonceTTL bounds the lifetime of per-holder replay counters.
	NonceTTL time.Duration
}

// RedisConfig holds the connection settings for the nonce backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays
// lean.
func FromEnv() Server {
	cfg := Server{
		Addr:          envOr("BADGEMINT_ADDR", ":8080"),
		LogLevel:      envOr("BADGEMINT_LOG_LEVEL", "info"),
		JWTSigningKey: envOr("BADGEMINT_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresDSN:   os.Getenv("BADGEMINT_POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("BADGEMINT_REDIS_URL"),
			PoolSize:     envInt("BADGEMINT_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("BADGEMINT_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("BADGEMINT_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("BADGEMINT_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("BADGEMINT_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		KafkaTopic: os.Getenv("BADGEMINT_KAFKA_TOPIC"),
		NonceTTL:   envDuration("BADGEMINT_NONCE_TTL", 30*24*time.Hour),
	}
	if brokers := os.Getenv("BADGEMINT_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = platformstrings.DedupeAndTrim(strings.Split(brokers, ","))
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
