package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/robfig/cron/v3"
)

// Config holds all application configuration, loaded from environment
// variables with sensible defaults.
//
// Environment Variables:
// Backend API:
// - BACKEND_API_URL: sentiment-analysis backend base URL (default: http://localhost:5000)
// - BACKEND_API_TIMEOUT: request timeout in seconds (default: 30)
//
// Storage:
// - DB_PATH: SQLite path for the local cache (default: data/dashboard.db; empty disables persistence)
//
// Job polling:
// - POLL_INTERVAL_SECONDS: status poll cadence while jobs are active (default: 3)
//
// Preload cache:
// - PRELOAD_TTL_HOURS: preload record validity window (default: 72)
// - SYNC_CRON_EXPR: server reconciliation schedule (default: @every 1m)
// - CLEAN_CRON_EXPR: expired-record sweep schedule (default: @every 1h)
//
// HTTP:
// - HTTP_ADDR: local dashboard API listen address (default: :8080)
//
// System:
// - LOG_LEVEL: debug|info|warn|error|fatal (default: info)
type Config struct {
	API     APIConfig     `json:"api"`
	Storage StorageConfig `json:"storage"`
	Poller  PollerConfig  `json:"poller"`
	Preload PreloadConfig `json:"preload"`
	HTTP    HTTPConfig    `json:"http"`
	System  SystemConfig  `json:"system"`
}

// APIConfig holds the backend connection settings.
type APIConfig struct {
	BaseURL string `json:"base_url"`
	Timeout int    `json:"timeout"`
}

// StorageConfig holds the local persistence settings.
type StorageConfig struct {
	DBPath string `json:"db_path"`
}

// PollerConfig holds the job-status polling settings.
type PollerConfig struct {
	IntervalSeconds int `json:"interval_seconds"`
}

// PreloadConfig holds the preload cache settings.
type PreloadConfig struct {
	TTLHours      int    `json:"ttl_hours"`
	SyncCronExpr  string `json:"sync_cron_expr"`
	CleanCronExpr string `json:"clean_cron_expr"`
}

// HTTPConfig holds the local API server settings.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

// SystemConfig holds process-level settings.
type SystemConfig struct {
	LogLevel string `json:"log_level"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment
// variables and options.
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		API: APIConfig{
			BaseURL: getEnvString("BACKEND_API_URL", "http://localhost:5000"),
			Timeout: getEnvInt("BACKEND_API_TIMEOUT", 30),
		},
		Storage: StorageConfig{
			DBPath: getEnvString("DB_PATH", "data/dashboard.db"),
		},
		Poller: PollerConfig{
			IntervalSeconds: getEnvInt("POLL_INTERVAL_SECONDS", 3),
		},
		Preload: PreloadConfig{
			TTLHours:      getEnvInt("PRELOAD_TTL_HOURS", 72),
			SyncCronExpr:  getEnvString("SYNC_CRON_EXPR", "@every 1m"),
			CleanCronExpr: getEnvString("CLEAN_CRON_EXPR", "@every 1h"),
		},
		HTTP: HTTPConfig{
			Addr: getEnvString("HTTP_ADDR", ":8080"),
		},
		System: SystemConfig{
			LogLevel: getEnvString("LOG_LEVEL", "info"),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("BACKEND_API_URL is required")
	}
	if c.Poller.IntervalSeconds <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}
	if c.Preload.TTLHours <= 0 {
		return fmt.Errorf("PRELOAD_TTL_HOURS must be positive")
	}
	if _, err := cron.ParseStandard(c.Preload.SyncCronExpr); err != nil {
		return fmt.Errorf("invalid SYNC_CRON_EXPR: %w", err)
	}
	if _, err := cron.ParseStandard(c.Preload.CleanCronExpr); err != nil {
		return fmt.Errorf("invalid CLEAN_CRON_EXPR: %w", err)
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
