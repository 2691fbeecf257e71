// Package config loads application configuration from the environment.
// Flags layered on top by the CLI override whatever is resolved here.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Log     LogConfig
	Convert ConvertConfig
	Batch   BatchConfig
	API     APIConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// ConvertConfig holds conversion configuration.
type ConvertConfig struct {
	IntegrationID   string
	MappingPath     string
	SARIFSchemaPath string
	WizSchemaPath   string
	RepositoryName  string
	RepositoryURL   string
	BranchName      string
	MinLevel        string
}

// BatchConfig holds directory-processing configuration.
type BatchConfig struct {
	Concurrency int
}

// APIConfig holds ingestion API client configuration.
type APIConfig struct {
	BaseURL      string
	Timeout      time.Duration
	RateLimit    float64 // requests per second
	RateBurst    int
	APIToken     string
	ClientID     string
	ClientSecret string
}

// Load reads configuration from environment variables with sensible
// defaults for local use.
func Load() (*Config, error) {
	cfg := &Config{
		Log: LogConfig{
			Level:  getEnv("SARIF2WIZ_LOG_LEVEL", "info"),
			Format: getEnv("SARIF2WIZ_LOG_FORMAT", "text"),
		},
		Convert: ConvertConfig{
			IntegrationID:   getEnv("SARIF2WIZ_INTEGRATION_ID", "sarif-integration"),
			MappingPath:     getEnv("SARIF2WIZ_MAPPING_PATH", "configs/field_mappings.json"),
			SARIFSchemaPath: getEnv("SARIF2WIZ_SARIF_SCHEMA", "configs/sarif-schema.json"),
			WizSchemaPath:   getEnv("SARIF2WIZ_WIZ_SCHEMA", "configs/wiz-vuln-schema.json"),
			RepositoryName:  getEnv("SARIF2WIZ_REPOSITORY_NAME", ""),
			RepositoryURL:   getEnv("SARIF2WIZ_REPOSITORY_URL", ""),
			BranchName:      getEnv("SARIF2WIZ_BRANCH_NAME", "main"),
			MinLevel:        getEnv("SARIF2WIZ_MIN_LEVEL", ""),
		},
		Batch: BatchConfig{
			Concurrency: getEnvInt("SARIF2WIZ_CONCURRENCY", 4),
		},
		API: APIConfig{
			BaseURL:      getEnv("WIZ_API_URL", "https://api.wiz.io"),
			Timeout:      getEnvDuration("WIZ_API_TIMEOUT", 30*time.Second),
			RateLimit:    getEnvFloat("WIZ_API_RATE_LIMIT", 2),
			RateBurst:    getEnvInt("WIZ_API_RATE_BURST", 1),
			APIToken:     getEnv("WIZ_API_TOKEN", ""),
			ClientID:     getEnv("WIZ_CLIENT_ID", ""),
			ClientSecret: getEnv("WIZ_CLIENT_SECRET", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	// Repository metadata selects the repositoryBranch asset variant and
	// only makes sense as a pair.
	if (c.Convert.RepositoryName == "") != (c.Convert.RepositoryURL == "") {
		return fmt.Errorf("repository name and URL must be provided together")
	}

	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch concurrency must be at least 1, got %d", c.Batch.Concurrency)
	}

	if c.API.RateLimit <= 0 {
		return fmt.Errorf("API rate limit must be positive, got %v", c.API.RateLimit)
	}

	switch c.Convert.MinLevel {
	case "", "none", "note", "warning", "error":
	default:
		return fmt.Errorf("invalid minimum level %q", c.Convert.MinLevel)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
