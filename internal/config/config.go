// Package config reads service configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	// PublicOrigin is the scheme+host printed into certified documents for
	// the verification URL, e.g. https://firma.example.
	PublicOrigin string

	GCSBucket string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitMaxKeys       int

	VerifyCacheTTLSeconds int
	NotifyWebhookURL      string

	// SignatureWhiteThreshold tunes the background strip applied to
	// manuscript signature captures (0 disables the override).
	SignatureWhiteThreshold int
}

// Load reads .env when present, then the process environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		HTTPAddr:                envDefault("HTTP_ADDR", ":8080"),
		PostgresDSN:             os.Getenv("POSTGRES_DSN"),
		LogLevel:                envDefault("LOG_LEVEL", "info"),
		PublicOrigin:            envDefault("PUBLIC_ORIGIN", "http://localhost:8080"),
		GCSBucket:               os.Getenv("GCS_BUCKET"),
		RedisAddr:               os.Getenv("REDIS_ADDR"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 envIntDefault("REDIS_DB", 0),
		RateLimitRequests:       envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds:  envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitMaxKeys:        envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		VerifyCacheTTLSeconds:   envIntDefault("VERIFY_CACHE_TTL_SECONDS", 300),
		NotifyWebhookURL:        os.Getenv("NOTIFY_WEBHOOK_URL"),
		SignatureWhiteThreshold: envIntDefault("SIGNATURE_WHITE_THRESHOLD", 0),
	}
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
