// Package config loads runtime configuration for the offline core.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the store and sync engine need at startup.
type Config struct {
	// DataDir is where the sqlite database lives.
	DataDir string

	// APIBaseURL is the root of the remote REST collaborator,
	// e.g. "https://api.example.com/api".
	APIBaseURL string

	// RealtimeURL is the websocket endpoint used as a sync trigger.
	// Empty disables the realtime listener.
	RealtimeURL string

	// AuthToken is the bearer token presented on every remote call.
	AuthToken string

	// RequestTimeout bounds each individual remote call.
	RequestTimeout time.Duration

	// SyncInterval is the period between automatic sync cycles.
	SyncInterval time.Duration

	// BackoffMin and BackoffMax bound the exponential backoff applied
	// after failed cycles. Matches the reconnect policy of the
	// collaboration transport (1s doubling up to 30s).
	BackoffMin time.Duration
	BackoffMax time.Duration

	// MaxRetries caps replay attempts for a single queue item before it
	// is treated as terminal.
	MaxRetries int

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:        ".aicopilot",
		RequestTimeout: 15 * time.Second,
		SyncInterval:   1 * time.Minute,
		BackoffMin:     1 * time.Second,
		BackoffMax:     30 * time.Second,
		MaxRetries:     10,
		LogLevel:       "info",
	}
}

// Load reads a .env file if present, then the environment, on top of the
// defaults. A missing .env file is not an error.
func Load() Config {
	_ = godotenv.Load()

	cfg := Default()
	cfg.DataDir = envString("AICOPILOT_DATA_DIR", cfg.DataDir)
	cfg.APIBaseURL = envString("AICOPILOT_API_URL", cfg.APIBaseURL)
	cfg.RealtimeURL = envString("AICOPILOT_REALTIME_URL", cfg.RealtimeURL)
	cfg.AuthToken = envString("AICOPILOT_AUTH_TOKEN", cfg.AuthToken)
	cfg.RequestTimeout = envDuration("AICOPILOT_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.SyncInterval = envDuration("AICOPILOT_SYNC_INTERVAL", cfg.SyncInterval)
	cfg.BackoffMin = envDuration("AICOPILOT_BACKOFF_MIN", cfg.BackoffMin)
	cfg.BackoffMax = envDuration("AICOPILOT_BACKOFF_MAX", cfg.BackoffMax)
	cfg.MaxRetries = envInt("AICOPILOT_MAX_RETRIES", cfg.MaxRetries)
	cfg.LogLevel = envString("AICOPILOT_LOG_LEVEL", cfg.LogLevel)
	return cfg
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
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
