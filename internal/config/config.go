// Package config
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Address        string
	AllowedOrigins []string
	DatabaseURL    string
	RedisURL       string
	LogLevel       string
	LogFormat      string

	AuthURL        string
	AuthAPIKey     string
	AuthTimeout    time.Duration
	AuthStorageKey string

	AppScheme          string
	InitialURL         string
	DedupTTL           time.Duration
	RefreshInterval    time.Duration
	RefreshMargin      time.Duration
	CacheSweepInterval time.Duration
}

func Load() *Config {
	_ = godotenv.Load()

	// Logs
	logLevel := getEnv("LOG_LEVEL", "info")
	logFormat := getEnv("LOG_FORMAT", "text")

	// Server HTTP Address
	addr := getEnv("HTTP_ADDR", ":3000")

	// Server Allowed Origins
	var origins []string
	rawOrigins := os.Getenv("ALLOWED_ORIGINS")
	if rawOrigins != "" {
		parts := strings.SplitSeq(rawOrigins, ",")
		for o := range parts {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}

	// Storage. Empty values select the in-memory adapters.
	databaseURL := os.Getenv("DATABASE_URL")
	redisURL := os.Getenv("REDIS_URL")

	// Hosted auth service
	authURL := strings.TrimRight(getEnv("AUTH_URL", "http://localhost:9999"), "/")
	authAPIKey := getEnv("AUTH_API_KEY", "")
	authTimeout := getDuration("AUTH_TIMEOUT", 15*time.Second)
	authStorageKey := getEnv("AUTH_STORAGE_KEY", "mates-auth-token")

	// Deep links
	appScheme := getEnv("APP_SCHEME", "mates")
	initialURL := os.Getenv("DEEPLINK_INITIAL_URL")
	dedupTTL := getDuration("DEEPLINK_DEDUP_TTL", 30*time.Second)

	// Background workers
	refreshInterval := getDuration("SESSION_REFRESH_INTERVAL", 30*time.Second)
	refreshMargin := getDuration("SESSION_REFRESH_MARGIN", 60*time.Second)
	sweepInterval := getDuration("CACHE_SWEEP_INTERVAL", time.Minute)

	return &Config{
		LogLevel:  logLevel,
		LogFormat: logFormat,

		Address:        addr,
		AllowedOrigins: origins,
		DatabaseURL:    databaseURL,
		RedisURL:       redisURL,

		AuthURL:        authURL,
		AuthAPIKey:     authAPIKey,
		AuthTimeout:    authTimeout,
		AuthStorageKey: authStorageKey,

		AppScheme:          appScheme,
		InitialURL:         initialURL,
		DedupTTL:           dedupTTL,
		RefreshInterval:    refreshInterval,
		RefreshMargin:      refreshMargin,
		CacheSweepInterval: sweepInterval,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDuration accepts "0" to explicitly disable a duration-driven feature.
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if raw == "0" {
		return 0
	}
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return d
	}
	return fallback
}
