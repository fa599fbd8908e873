package config

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testConfig = `
logger:
  log_level: DEBUG
  output_file: test.log
server:
  port: 8001
  jwt_secret: file-secret
db:
  driver: sqlite
  connection_string: file.db
scrape:
  sources: [indeed, linkedin]
  adapter_timeout: 30s
  run_timeout: 5m
  lease_ttl: 20m
ai:
  provider: gemini
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func Test_Config_WhenOnlyFile_ShouldApplyDefaults(t *testing.T) {

	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, LevelDebug, cfg.Logger.LogLevel)
	assert.Equal(t, "jobscout", cfg.Logger.AppName)
	assert.Equal(t, 8001, cfg.Server.Port)
	assert.Equal(t, []string{"indeed", "linkedin"}, cfg.Scrape.Sources)
	assert.Equal(t, 30*time.Second, cfg.Scrape.AdapterTimeout)
	assert.Equal(t, 20*time.Minute, cfg.Scrape.LeaseTTL)
	assert.Equal(t, 15, cfg.Scrape.MaxPostings)
	assert.Equal(t, 3, cfg.AI.MaxAttempts)
	assert.False(t, cfg.AI.Enabled())
}

func Test_Config_EnvironmentOverrideWorksCorrect(t *testing.T) {

	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("DB_CONNECTION_STRING", "env.db")
	t.Setenv("AI_KEY", "env-key")
	t.Setenv("AI_PROVIDER", ProviderClaude)
	t.Setenv("LOG_LEVEL", string(LevelWarning))
	t.Setenv("SCRAPE_MAX_POSTINGS", "40")

	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Server.JWTSecret)
	assert.Equal(t, "env.db", cfg.DB.ConnectionString)
	assert.Equal(t, "env-key", cfg.AI.Key)
	assert.Equal(t, ProviderClaude, cfg.AI.Provider)
	assert.Equal(t, LevelWarning, cfg.Logger.LogLevel)
	assert.Equal(t, 40, cfg.Scrape.MaxPostings)
	assert.True(t, cfg.AI.Enabled())
}

func Test_Config_WhenLeaseShorterThanRun_ShouldFail(t *testing.T) {

	t.Setenv("SCRAPE_LEASE_TTL", "1m")

	_, err := Load(writeConfig(t, testConfig))
	assert.ErrorContains(t, err, "lease_ttl")
}

func Test_Config_WhenSecretMissing_ShouldFail(t *testing.T) {

	content := `
server:
  port: 8001
db:
  connection_string: file.db
`
	_, err := Load(writeConfig(t, content))
	assert.ErrorContains(t, err, "jwt_secret")
}
