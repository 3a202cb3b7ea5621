// Package config loads process configuration from the environment. Simple
// scalars follow the teacher's getEnv convention; the larger grouped settings
// this system needs are struct-tag driven via envconfig.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type RedisConfig struct {
	Addr     string
	Password string
}

// Tunables groups the settings envconfig loads from FLASHSALE_*.
type Tunables struct {
	QueueBackend       string        `envconfig:"QUEUE_BACKEND" default:"redis"`
	WorkerConcurrency  int           `envconfig:"WORKER_CONCURRENCY" default:"8"`
	JobTimeout         time.Duration `envconfig:"JOB_TIMEOUT" default:"10s"`
	JobMaxRetries      int           `envconfig:"JOB_MAX_RETRIES" default:"5"`
	JobRetryBaseDelay  time.Duration `envconfig:"JOB_RETRY_BASE_DELAY" default:"200ms"`
	SaleCacheTTL       time.Duration `envconfig:"SALE_CACHE_TTL" default:"20s"`
	StatusCacheTTL     time.Duration `envconfig:"STATUS_CACHE_TTL" default:"1h"`
	PurchaseRateLimit  int           `envconfig:"PURCHASE_RATE_LIMIT" default:"5"`
	PurchaseRateWindow time.Duration `envconfig:"PURCHASE_RATE_WINDOW" default:"60s"`
	JWTTTL             time.Duration `envconfig:"JWT_TTL" default:"24h"`
	PgMaxConns         int32         `envconfig:"PG_MAX_CONNS" default:"100"`
	PgMinConns         int32         `envconfig:"PG_MIN_CONNS" default:"10"`
	PgConnMaxLifetime  time.Duration `envconfig:"PG_CONN_MAX_LIFETIME" default:"5m"`
	PgConnMaxIdleTime  time.Duration `envconfig:"PG_CONN_MAX_IDLE_TIME" default:"1m"`
	DBPingTimeout      time.Duration `envconfig:"DB_PING_TIMEOUT" default:"5s"`
}

type Config struct {
	Port        string
	DatabaseURL string
	Redis       RedisConfig
	JWTKey      string
	Tunables    Tunables
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var tun Tunables
	if err := envconfig.Process("FLASHSALE", &tun); err != nil {
		return nil, fmt.Errorf("invalid tunables: %w", err)
	}

	jwtKey := getEnv("JWT_SIGNING_KEY", "")
	if jwtKey == "" {
		jwtKey = "dev-signing-key-change-me"
	}

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			getEnv("PG_USER", "postgres"),
			getEnv("PG_PASSWORD", "postgres"),
			getEnv("PG_HOST", "postgres"),
			getEnv("PG_PORT", "5432"),
			getEnv("PG_DB", "flashsale"),
		)),
		Redis: RedisConfig{
			Addr:     fmt.Sprintf("%s:%s", getEnv("REDIS_HOST", "redis"), getEnv("REDIS_PORT", "6379")),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWTKey:   jwtKey,
		Tunables: tun,
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
