// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/resume-retriever/internal/schemas"
)

// Defaults applied when neither the config file nor flags set a value.
const (
	DefaultOutputDir         = "attachments"
	DefaultVendorHost        = "cts.indeed.com"
	DefaultNavigationTimeout = "30s"
	DefaultRetrievalTimeout  = "60s"
	DefaultConcurrency       = 2
	DefaultLaunchesPerMinute = 6
	DefaultLogLevel          = "info"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	OutputDir  string `json:"output_dir,omitempty"`  // Directory resumes are written to
	DebugDir   string `json:"debug_dir,omitempty"`   // Directory for rendered page snapshots
	ChromePath string `json:"chrome_path,omitempty"` // Chrome binary (falls back to CHROME_PATH)

	// Vendor
	VendorHost string `json:"vendor_host,omitempty" validate:"omitempty,hostname"` // Trusted redirect host

	// Browser behavior
	Headless          *bool  `json:"headless,omitempty"`           // Run Chrome headless (default true)
	NavigationTimeout string `json:"navigation_timeout,omitempty"` // Network-settle deadline, e.g. "30s"
	RetrievalTimeout  string `json:"retrieval_timeout,omitempty"`  // In-page download deadline

	// Batch behavior
	Concurrency       int     `json:"concurrency,omitempty" validate:"gte=0,lte=16"`   // Parallel browser sessions
	LaunchesPerMinute float64 `json:"launches_per_minute,omitempty" validate:"gte=0"` // Browser launch pacing

	// Ledger and logging
	DatabaseURL string `json:"database_url,omitempty" validate:"omitempty,url"`                               // PostgreSQL attempt ledger
	LogLevel    string `json:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn error"` // logrus level
	Verbose     bool   `json:"verbose,omitempty"`                                                            // Shorthand for debug logging
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read, does not match the config schema, or cannot be parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := schemas.ValidateConfig(data); err != nil {
		return nil, fmt.Errorf("config file %s does not match schema: %w", path, err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if _, err := parseDuration("navigation_timeout", c.NavigationTimeout); err != nil {
		return err
	}
	if _, err := parseDuration("retrieval_timeout", c.RetrievalTimeout); err != nil {
		return err
	}

	if c.DebugDir != "" {
		if info, err := os.Stat(c.DebugDir); err == nil && !info.IsDir() {
			return fmt.Errorf("config error: debug_dir is not a directory: %s", c.DebugDir)
		}
	}

	return nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	headless := true
	return Config{
		OutputDir:         DefaultOutputDir,
		VendorHost:        DefaultVendorHost,
		Headless:          &headless,
		NavigationTimeout: DefaultNavigationTimeout,
		RetrievalTimeout:  DefaultRetrievalTimeout,
		Concurrency:       DefaultConcurrency,
		LaunchesPerMinute: DefaultLaunchesPerMinute,
		LogLevel:          DefaultLogLevel,
	}
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}
	if result.DebugDir == "" {
		result.DebugDir = defaults.DebugDir
	}
	if result.ChromePath == "" {
		result.ChromePath = defaults.ChromePath
	}
	if result.VendorHost == "" {
		result.VendorHost = defaults.VendorHost
	}
	if result.NavigationTimeout == "" {
		result.NavigationTimeout = defaults.NavigationTimeout
	}
	if result.RetrievalTimeout == "" {
		result.RetrievalTimeout = defaults.RetrievalTimeout
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}

	// Numeric fields: use default if zero
	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}
	if result.LaunchesPerMinute == 0 {
		result.LaunchesPerMinute = defaults.LaunchesPerMinute
	}

	// Headless is a pointer so an explicit false in the file survives the merge
	if result.Headless == nil {
		result.Headless = defaults.Headless
	}

	// Verbose: cannot distinguish unset from false, so either side enables it
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// IsHeadless reports the headless setting, defaulting to true.
func (c *Config) IsHeadless() bool {
	return c.Headless == nil || *c.Headless
}

// NavigationTimeoutDuration parses NavigationTimeout. Empty means the default.
func (c *Config) NavigationTimeoutDuration() time.Duration {
	d, err := parseDuration("navigation_timeout", c.NavigationTimeout)
	if err != nil || d == 0 {
		d, _ = time.ParseDuration(DefaultNavigationTimeout)
	}
	return d
}

// RetrievalTimeoutDuration parses RetrievalTimeout. Empty means the default.
func (c *Config) RetrievalTimeoutDuration() time.Duration {
	d, err := parseDuration("retrieval_timeout", c.RetrievalTimeout)
	if err != nil || d == 0 {
		d, _ = time.ParseDuration(DefaultRetrievalTimeout)
	}
	return d
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config error: '%s' is not a duration: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config error: '%s' must be positive", field)
	}
	return d, nil
}
