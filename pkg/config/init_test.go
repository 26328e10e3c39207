package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func withIsolatedHome(t *testing.T) {
	t.Helper()
	tmpDir := t.TempDir()
	oldHome := os.Getenv("HOME")
	_ = os.Setenv("HOME", tmpDir)
	oldXDG := os.Getenv("XDG_CONFIG_HOME")
	_ = os.Unsetenv("XDG_CONFIG_HOME")
	t.Cleanup(func() {
		_ = os.Setenv("HOME", oldHome)
		if oldXDG != "" {
			_ = os.Setenv("XDG_CONFIG_HOME", oldXDG)
		}
	})
}

func TestInitConfig_Success(t *testing.T) {
	withIsolatedHome(t)

	configPath, err := InitConfig(false)
	require.NoError(t, err)

	content, err := os.ReadFile(configPath)
	require.NoError(t, err)

	for _, section := range []string{"logging:", "cache:", "scheduler:", "server:", "tables:"} {
		assert.Contains(t, string(content), section)
	}

	var cfg Config
	require.NoError(t, yaml.Unmarshal(content, &cfg))
}

func TestInitConfig_AlreadyExists(t *testing.T) {
	withIsolatedHome(t)

	_, err := InitConfig(false)
	require.NoError(t, err)

	_, err = InitConfig(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInitConfig_ForceOverwrite(t *testing.T) {
	withIsolatedHome(t)

	configPath, err := InitConfig(false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(configPath, []byte("logging:\n  level: WARN\n"), 0644))

	_, err = InitConfig(true)
	require.NoError(t, err)

	content, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "tables:")
}
