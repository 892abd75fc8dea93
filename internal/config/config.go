package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DatabaseURL string
	RedisURL    string
	JWTSecret   string

	// TimeZone is the calendar that bounds the daily XP cap window.
	TimeZone *time.Location

	XPRetryAttempts     uint
	ProfileLockTTL      time.Duration
	LeaderboardCacheTTL time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWTSecret:   getEnv("JWT_SECRET", "change-me"),
	}

	var err error
	cfg.TimeZone, err = time.LoadLocation(getEnv("TIME_ZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIME_ZONE: %w", err)
	}

	attempts, err := strconv.ParseUint(getEnv("XP_RETRY_ATTEMPTS", "5"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid XP_RETRY_ATTEMPTS: %w", err)
	}
	if attempts == 0 {
		return nil, fmt.Errorf("invalid XP_RETRY_ATTEMPTS: must be at least 1")
	}
	cfg.XPRetryAttempts = uint(attempts)

	cfg.ProfileLockTTL, err = parseDuration(getEnv("PROFILE_LOCK_TTL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROFILE_LOCK_TTL: %w", err)
	}
	cfg.LeaderboardCacheTTL, err = parseDuration(getEnv("LEADERBOARD_CACHE_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEADERBOARD_CACHE_TTL: %w", err)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
