package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/sproutsync/sproutsync/internal/procare"
)

type Config struct {
	ServerPort  string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	JWTExpiry   time.Duration

	ProcareAuthToken   string
	ProcareEmail       string
	ProcarePassword    string
	ProcareAPIBaseURL  string
	ProcareAuthBaseURL string
	ProcareAuthMode    procare.AuthMode

	SyncDaysBack       int
	MinRequestInterval time.Duration
}

func LoadConfig() (*Config, error) {
	expiryStr := getEnv("JWT_EXPIRY", "24h")
	expiry, err := time.ParseDuration(expiryStr)
	if err != nil {
		return nil, errors.New("invalid JWT_EXPIRY format")
	}

	authMode := procare.AuthModeBearer
	if getEnv("PROCARE_AUTH_MODE", "bearer") == "query" {
		authMode = procare.AuthModeQuery
	}

	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTExpiry:   expiry,

		ProcareAuthToken:   os.Getenv("PROCARE_AUTH_TOKEN"),
		ProcareEmail:       os.Getenv("PROCARE_EMAIL"),
		ProcarePassword:    os.Getenv("PROCARE_PASSWORD"),
		ProcareAPIBaseURL:  getEnv("PROCARE_API_BASE_URL", procare.DefaultBaseURL),
		ProcareAuthBaseURL: getEnv("PROCARE_AUTH_BASE_URL", procare.DefaultAuthBaseURL),
		ProcareAuthMode:    authMode,

		SyncDaysBack:       getEnvInt("SYNC_DAYS_BACK", 7),
		MinRequestInterval: time.Duration(getEnvInt("MIN_REQUEST_INTERVAL_MS", 1200)) * time.Millisecond,
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Helper: get integer env with default value; malformed values fall back
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
