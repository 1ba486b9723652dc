package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	ListenAddress  string
	DatabaseURL    string
	MediaRoot      string
	LogFile        string
	Debug          bool
	RequestTimeout time.Duration

	OtelEndpoint       string
	OtelServiceName    string
	OtelServiceVersion string
}

// Load reads configuration from the environment, after loading a .env
// file when one is present.
func Load() (*Config, error) {
	// Missing .env is the normal case in production.
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddress: GetEnv("LISTEN_ADDRESS", ":8080"),
		DatabaseURL:   GetEnv("DATABASE_URL", ""),
		MediaRoot:     GetEnv("MEDIA_ROOT", "./media"),
		LogFile:       GetEnv("LOG_FILE", ""),

		OtelEndpoint:       GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OtelServiceName:    GetEnv("OTEL_SERVICE_NAME", "teleradiology-backend"),
		OtelServiceVersion: GetEnv("OTEL_SERVICE_VERSION", "1.0.0"),
	}

	timeoutSec, err := strconv.Atoi(GetEnv("REQUEST_TIMEOUT_SECONDS", "60"))
	if err != nil {
		timeoutSec = 60
	}
	cfg.RequestTimeout = time.Duration(timeoutSec) * time.Second

	cfg.Debug, _ = strconv.ParseBool(GetEnv("DEBUG", "false"))

	return cfg, nil
}

// GetEnv retrieves an environment variable or returns a default value.
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
