package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))
	return tmpFile
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	tmpFile := writeConfig(t, `{
		"output_dir": "resumes",
		"vendor_host": "cts.indeed.com",
		"headless": false,
		"navigation_timeout": "45s",
		"concurrency": 4,
		"launches_per_minute": 3,
		"log_level": "debug",
		"verbose": true
	}`)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "resumes", cfg.OutputDir)
	assert.Equal(t, "cts.indeed.com", cfg.VendorHost)
	require.NotNil(t, cfg.Headless)
	assert.False(t, cfg.IsHeadless())
	assert.Equal(t, 45*time.Second, cfg.NavigationTimeoutDuration())
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 3.0, cfg.LaunchesPerMinute)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	tmpFile := writeConfig(t, `{ invalid json }`)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_SchemaViolation(t *testing.T) {
	tmpFile := writeConfig(t, `{"output_dir": "x", "max_bullets": 3}`)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "does not match schema")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate_NegativeValues(t *testing.T) {
	cfg := &Config{Concurrency: -1}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Concurrency")
}

func TestValidate_BadDuration(t *testing.T) {
	cfg := &Config{RetrievalTimeout: "soon"}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval_timeout")

	cfg = &Config{NavigationTimeout: "-5s"}
	err = cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
}

func TestValidate_UnknownLogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "loud"}
	assert.Error(t, cfg.Validate())
}

func TestValidate_DebugDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	cfg := &Config{DebugDir: file}
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "debug_dir")
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	cfg.DatabaseURL = "postgres://fetcher@localhost:5432/resumes"

	assert.NoError(t, cfg.Validate())
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Defaults()

	headless := false
	partial := Config{
		OutputDir: "custom",
		Headless:  &headless,
	}

	merged := partial.MergeWithDefaults(defaults)

	// Custom values should be preserved
	assert.Equal(t, "custom", merged.OutputDir)
	assert.False(t, merged.IsHeadless())

	// Default values should fill in empty fields
	assert.Equal(t, DefaultVendorHost, merged.VendorHost)
	assert.Equal(t, DefaultConcurrency, merged.Concurrency)
	assert.Equal(t, float64(DefaultLaunchesPerMinute), merged.LaunchesPerMinute)
	assert.Equal(t, 30*time.Second, merged.NavigationTimeoutDuration())
	assert.Equal(t, 60*time.Second, merged.RetrievalTimeoutDuration())
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{OutputDir: "out", Verbose: true}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, "out", merged.OutputDir)
	assert.True(t, merged.Verbose)
	assert.True(t, merged.IsHeadless(), "nil headless reads as true")
	assert.Equal(t, 30*time.Second, merged.NavigationTimeoutDuration())
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvOutputDir, "/tmp/resumes")
	t.Setenv(EnvChromePath, "/usr/bin/chromium")
	t.Setenv(EnvDatabaseURL, "postgres://localhost/resumes")
	t.Setenv(EnvConcurrency, "3")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/resumes", cfg.OutputDir)
	assert.Equal(t, "/usr/bin/chromium", cfg.ChromePath)
	assert.Equal(t, "postgres://localhost/resumes", cfg.DatabaseURL)
	assert.Equal(t, 3, cfg.Concurrency)
}

func TestFromEnv_InvalidConcurrency(t *testing.T) {
	t.Setenv(EnvConcurrency, "many")

	_, err := FromEnv()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), EnvConcurrency)

	t.Setenv(EnvConcurrency, "0")
	_, err = FromEnv()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "at least 1")
}

func TestFromEnv_Unset(t *testing.T) {
	for _, key := range []string{EnvOutputDir, EnvDebugDir, EnvChromePath, EnvDatabaseURL, EnvConcurrency, EnvLogLevel} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Config{}, *cfg)
}
