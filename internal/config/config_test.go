package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_FILE", filepath.Join(dir, "missing.toml"))
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.Model)
	assert.Equal(t, DriverMySQL, cfg.Database.Driver)
	assert.Equal(t, "document.description.generate", cfg.RabbitMQ.DescriptionQueue)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
[app]
port = 9090

[llm]
model = "gpt-4o-mini"
max_document_tokens = 2000

[database]
driver = "sqlite"
sqlite_path = "/tmp/docchat.db"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("S3_BUCKET_NAME=from-dotenv\n"), 0o644))

	t.Setenv("CONFIG_FILE", configPath)
	t.Setenv("ENV_FILE", envPath)
	t.Setenv("LLM_MODEL", "gpt-4o")
	t.Setenv("S3_USE_SSL", "true")

	cfg, err := Load()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Unsetenv("S3_BUCKET_NAME") })

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 2000, cfg.LLM.MaxDocumentTokens)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "from-dotenv", cfg.Storage.Bucket)
	assert.True(t, cfg.Storage.UseSSL)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Database.Driver = "postgres"
	cfg.Storage.MaxUploadMB = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
	assert.Contains(t, err.Error(), "max_upload_mb")
}

func TestGetEnvAsInt_InvalidFallsBack(t *testing.T) {
	t.Setenv("DOCCHAT_TEST_INT", "not-a-number")
	assert.Equal(t, 7, getEnvAsInt("DOCCHAT_TEST_INT", 7))
}
