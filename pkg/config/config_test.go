package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalTableYAML = `
logging:
  level: "INFO"

cache:
  root_dir: %q
  index_db_path: %q

tables:
  - db_id: 1
    table_id: 1
    name: "t"
    wrapper: "csv"
    source_path: %q
    columns:
      - column_id: 0
        name: "a"
`

func writeMinimalConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(minimalTableYAML,
		filepath.Join(dir, "cache"), filepath.Join(dir, "index"), filepath.Join(dir, "data.csv"))
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeMinimalConfig(t)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "6278", cfg.Server.Port)
	assert.Len(t, cfg.Tables, 1)
}

func TestLoad_NoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	_, err := Load(nonExistentPath)
	// A config naming zero tables fails validation; an explicitly named
	// missing file is itself a read error. Either way Load must not panic
	// and must return a non-nil error here.
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	csvPath := filepath.Join(dir, "data.csv")

	configContent := fmt.Sprintf(`
[logging]
level = "WARN"
format = "json"

[cache]
root_dir = %[1]q
index_db_path = %[2]q

[[tables]]
db_id = 1
table_id = 1
name = "t"
wrapper = "csv"
source_path = %[3]q

[[tables.columns]]
column_id = 0
name = "a"
`, filepath.Join(dir, "cache"), filepath.Join(dir, "index"), csvPath)
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, time.Second, cfg.Scheduler.WaitDuration)
	assert.True(t, cfg.Cache.Enabled)
	assert.Empty(t, cfg.Tables)
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "config.yaml", filepath.Base(path))
}

func TestGetConfigDir(t *testing.T) {
	dir := GetConfigDir()
	assert.Equal(t, "chunkmgr", filepath.Base(dir))
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	_ = os.Setenv("CHUNKMGR_LOGGING_LEVEL", "ERROR")
	defer func() { _ = os.Unsetenv("CHUNKMGR_LOGGING_LEVEL") }()

	configPath := writeMinimalConfig(t)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "ERROR", cfg.Logging.Level)
}
