package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestInitConfig_Success(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	path, err := InitConfig(false)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(content, &cfg))
	assert.Equal(t, "tcp://*:9000/", cfg.Transport.URI)
	assert.Equal(t, 4, cfg.Server.ThreadsNum)
}

func TestInitConfig_RefusesToOverwriteWithoutForce(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	_, err := InitConfig(false)
	require.NoError(t, err)

	_, err = InitConfig(false)
	assert.Error(t, err)
}

func TestInitConfig_ForceOverwrites(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	path1, err := InitConfig(false)
	require.NoError(t, err)

	path2, err := InitConfig(true)
	require.NoError(t, err)
	assert.Equal(t, path1, path2)
}

func TestInitConfig_CreatesParentDir(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "nested", "deeper"))

	path, err := InitConfig(false)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)
}
