package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	RedisURL  string
	JWTSecret string

	// SummaryCacheTTL bounds staleness of the cached progression
	// summary; write paths additionally invalidate it.
	SummaryCacheTTL     time.Duration
	LeaderboardCacheTTL time.Duration

	// AuditInterval is how often the ledger/cache consistency sweep runs.
	AuditInterval time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		RedisURL:  os.Getenv("REDIS_URL"),
		JWTSecret: os.Getenv("JWT_SECRET"),
	}

	var err error
	cfg.SummaryCacheTTL, err = time.ParseDuration(getEnv("SUMMARY_CACHE_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SUMMARY_CACHE_TTL: %w", err)
	}
	cfg.LeaderboardCacheTTL, err = time.ParseDuration(getEnv("LEADERBOARD_CACHE_TTL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEADERBOARD_CACHE_TTL: %w", err)
	}
	cfg.AuditInterval, err = time.ParseDuration(getEnv("AUDIT_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUDIT_INTERVAL: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
