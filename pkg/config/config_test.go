package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  threads_num: 8
  max_clients: 128
  max_data_size: 131072
  timeout: 3s

transport:
  uri: "tcp://*:9100/"

logging:
  level: "DEBUG"
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Server.ThreadsNum)
	assert.Equal(t, 128, cfg.Server.MaxClients)
	assert.Equal(t, 131072, cfg.Server.MaxDataSize)
	assert.Equal(t, 3*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "tcp://*:9100/", cfg.Transport.URI)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	// Fields left unset in the file still get their defaults.
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	cfg, err := Load(filepath.Join(tmpDir, "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
}

func TestLoad_InvalidConfigFailsValidation(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	require.NoError(t, os.WriteFile(configPath, []byte(`
transport:
  uri: "bogus://nope/"
`), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "sub", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Server.ThreadsNum = 16

	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, loaded.Server.ThreadsNum)
}

func TestGetDefaultConfigPath_UsesXDG(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	assert.Equal(t, filepath.Join(tmpDir, "urpc", "config.yaml"), GetDefaultConfigPath())
	assert.Equal(t, filepath.Join(tmpDir, "urpc"), GetConfigDir())
}
