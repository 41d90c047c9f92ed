package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL       = "http://localhost:8080/enone"
	defaultLogLevel      = "info"
	defaultDebounce      = 500 * time.Millisecond
	defaultResendCool    = 60 * time.Second
	defaultStateFileName = "session.json"

	debounceMSEnvVar = "ENONE_DEBOUNCE_MS"
)

// Config captures client runtime configuration loaded from environment
// variables.
type Config struct {
	BaseURL        string
	LogLevel       string
	StateFile      string
	RedisURL       string
	Debounce       time.Duration
	ResendCooldown time.Duration
}

// Load reads client configuration from the environment and populates a
// Config instance. The Redis URL is optional; when absent the session store
// falls back to the state file.
func Load() (Config, error) {
	cfg := Config{
		BaseURL:        strings.TrimRight(getEnv("ENONE_BASE_URL", defaultBaseURL), "/"),
		LogLevel:       strings.ToLower(getEnv("ENONE_LOG_LEVEL", defaultLogLevel)),
		RedisURL:       os.Getenv("ENONE_REDIS_URL"),
		StateFile:      os.Getenv("ENONE_STATE_FILE"),
		Debounce:       defaultDebounce,
		ResendCooldown: defaultResendCool,
	}

	if v := os.Getenv(debounceMSEnvVar); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return Config{}, fmt.Errorf("invalid %s: %q", debounceMSEnvVar, v)
		}
		cfg.Debounce = time.Duration(ms) * time.Millisecond
	}

	if cfg.StateFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home dir: %w", err)
		}
		cfg.StateFile = filepath.Join(home, ".enone", defaultStateFileName)
	}

	if cfg.BaseURL == "" {
		return Config{}, fmt.Errorf("ENONE_BASE_URL must not be empty")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
