package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"pbidesc/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	LLM     LLMConfig
	Server  ServerConfig
	Process ProcessConfig
}

// LLMConfig holds settings for the local generation endpoint
type LLMConfig struct {
	BaseURL string
	Model   string
	// Zero means no client-side timeout.
	Timeout time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port        string
	GinMode     string
	MaxUploadMB int
}

// ProcessConfig holds batch processing settings
type ProcessConfig struct {
	RowDelay time.Duration
	// Finished and abandoned jobs older than this are dropped from memory.
	JobRetention time.Duration
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		LLM:     *loadLLMConfig(),
		Server:  *loadServerConfig(),
		Process: *loadProcessConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadLLMConfig() *LLMConfig {
	return &LLMConfig{
		BaseURL: getEnvOrDefault("LLM_BASE_URL", "http://localhost:11434"),
		Model:   getEnvOrDefault("LLM_MODEL", "llama2"),
		Timeout: getEnvDurationOrDefault("LLM_TIMEOUT", 0),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:        getEnvOrDefault("PORT", "8501"),
		GinMode:     getEnvOrDefault("GIN_MODE", "release"),
		MaxUploadMB: getEnvIntOrDefault("MAX_UPLOAD_MB", 50),
	}
}

func loadProcessConfig() *ProcessConfig {
	return &ProcessConfig{
		RowDelay:     getEnvDurationOrDefault("ROW_DELAY", 0),
		JobRetention: getEnvDurationOrDefault("JOB_RETENTION", time.Hour),
	}
}

func validateConfig(config *Config) error {
	if !strings.HasPrefix(config.LLM.BaseURL, "http://") && !strings.HasPrefix(config.LLM.BaseURL, "https://") {
		return errors.ConfigInvalid("LLM_BASE_URL must be an http(s) URL")
	}
	if strings.TrimSpace(config.LLM.Model) == "" {
		return errors.ConfigInvalid("LLM_MODEL is required")
	}
	if config.LLM.Timeout < 0 || config.Process.RowDelay < 0 {
		return errors.ConfigInvalid("durations must not be negative")
	}
	if config.Process.JobRetention <= 0 {
		return errors.ConfigInvalid("JOB_RETENTION must be positive")
	}
	if config.Server.MaxUploadMB <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
