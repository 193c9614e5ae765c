package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Cache.Driver)
	assert.Equal(t, "taxqa-cache.db", cfg.Cache.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://www.googleapis.com/customsearch/v1", cfg.Google.BaseURL)
	assert.InDelta(t, 5.0, cfg.Google.QPS, 0.001)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.HaikuModel)
	assert.Equal(t, 10, cfg.Extract.TimeoutSecs)
	assert.Equal(t, 5, cfg.Extract.MaxConcurrent)
	assert.Equal(t, 15, cfg.Search.TimeoutSecs)
	assert.False(t, cfg.Search.FastMode)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
cache:
  driver: redis
  redis_addr: redis:6380
log:
  level: debug
  format: console
server:
  port: 9090
search:
  fast_mode: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "redis:6380", cfg.Cache.RedisAddr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Search.FastMode)
	// Defaults still apply for unset values
	assert.Equal(t, 5, cfg.Extract.MaxConcurrent)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
cache:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("TAXQA_CACHE_DRIVER", "postgres")
	t.Setenv("TAXQA_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Cache.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("TAXQA_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

// validConfig returns a Config populated well enough to pass Validate.
func validConfig() *Config {
	cfg := &Config{}
	cfg.Google.Key = "google-key"
	cfg.Google.CX = "cx-id"
	cfg.OpenAI.Key = "sk-openai"
	cfg.Anthropic.Key = "sk-ant"
	cfg.Cache.Driver = "sqlite"
	cfg.Cache.Path = "cache.db"
	cfg.Extract.MaxConcurrent = 5
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateQuery_AllPresent(t *testing.T) {
	assert.NoError(t, validConfig().Validate("query"))
}

func TestValidateQuery_MissingKeys(t *testing.T) {
	cfg := validConfig()
	cfg.Google.Key = ""
	cfg.Anthropic.Key = ""

	err := cfg.Validate("query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "google.key is required")
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestValidateCacheDrivers(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Driver = "postgres"
	err := cfg.Validate("query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.database_url")

	cfg.Cache.DatabaseURL = "postgres://localhost/taxqa"
	assert.NoError(t, cfg.Validate("query"))

	cfg.Cache.Driver = "memcached"
	err = cfg.Validate("query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.driver")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validConfig()

	cfg.Extract.MaxConcurrent = 0
	err := cfg.Validate("query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract.max_concurrent")

	cfg.Extract.MaxConcurrent = 21
	err = cfg.Validate("query")
	require.Error(t, err)

	cfg.Extract.MaxConcurrent = 20
	assert.NoError(t, cfg.Validate("query"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validConfig().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
