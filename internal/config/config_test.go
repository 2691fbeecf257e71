package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "sarif-integration", cfg.Convert.IntegrationID)
	assert.Equal(t, "configs/field_mappings.json", cfg.Convert.MappingPath)
	assert.Equal(t, "main", cfg.Convert.BranchName)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, "https://api.wiz.io", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2.0, cfg.API.RateLimit)
	assert.Equal(t, 1, cfg.API.RateBurst)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SARIF2WIZ_LOG_LEVEL", "debug")
	t.Setenv("SARIF2WIZ_INTEGRATION_ID", "my-integration")
	t.Setenv("SARIF2WIZ_CONCURRENCY", "8")
	t.Setenv("SARIF2WIZ_MIN_LEVEL", "warning")
	t.Setenv("WIZ_API_TIMEOUT", "90s")
	t.Setenv("WIZ_API_RATE_LIMIT", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "my-integration", cfg.Convert.IntegrationID)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
	assert.Equal(t, "warning", cfg.Convert.MinLevel)
	assert.Equal(t, 90*time.Second, cfg.API.Timeout)
	assert.Equal(t, 0.5, cfg.API.RateLimit)
}

func TestLoadIgnoresUnparsableEnv(t *testing.T) {
	t.Setenv("SARIF2WIZ_CONCURRENCY", "lots")
	t.Setenv("WIZ_API_TIMEOUT", "soon")
	t.Setenv("WIZ_API_RATE_LIMIT", "fast")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2.0, cfg.API.RateLimit)
}

func TestValidate(t *testing.T) {
	t.Run("repository name without URL", func(t *testing.T) {
		t.Setenv("SARIF2WIZ_REPOSITORY_NAME", "acme/webapp")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "repository")
	})

	t.Run("repository pair accepted", func(t *testing.T) {
		t.Setenv("SARIF2WIZ_REPOSITORY_NAME", "acme/webapp")
		t.Setenv("SARIF2WIZ_REPOSITORY_URL", "https://github.com/acme/webapp")
		_, err := Load()
		assert.NoError(t, err)
	})

	t.Run("bad concurrency", func(t *testing.T) {
		t.Setenv("SARIF2WIZ_CONCURRENCY", "0")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "concurrency")
	})

	t.Run("bad rate limit", func(t *testing.T) {
		t.Setenv("WIZ_API_RATE_LIMIT", "-1")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limit")
	})

	t.Run("bad min level", func(t *testing.T) {
		t.Setenv("SARIF2WIZ_MIN_LEVEL", "severe")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "minimum level")
	})
}
