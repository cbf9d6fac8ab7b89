package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables read by FromEnv.
const (
	EnvOutputDir   = "RESUME_OUTPUT_DIR"
	EnvDebugDir    = "RESUME_DEBUG_DIR"
	EnvChromePath  = "CHROME_PATH"
	EnvDatabaseURL = "DATABASE_URL"
	EnvConcurrency = "RESUME_CONCURRENCY"
	EnvLogLevel    = "LOG_LEVEL"
)

// FromEnv builds a Config from environment variables. Unset variables leave fields empty
// so the result can be merged under a config file.
func FromEnv() (*Config, error) {
	cfg := &Config{
		OutputDir:   os.Getenv(EnvOutputDir),
		DebugDir:    os.Getenv(EnvDebugDir),
		ChromePath:  os.Getenv(EnvChromePath),
		DatabaseURL: os.Getenv(EnvDatabaseURL),
		LogLevel:    os.Getenv(EnvLogLevel),
	}

	if raw := os.Getenv(EnvConcurrency); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %v", EnvConcurrency, err)
		}
		if n < 1 {
			return nil, fmt.Errorf("%s must be at least 1, got: %d", EnvConcurrency, n)
		}
		cfg.Concurrency = n
	}

	return cfg, nil
}
