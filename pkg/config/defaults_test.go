package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, 4, cfg.Server.ThreadsNum)
	assert.Equal(t, 64, cfg.Server.MaxClients)
	assert.Equal(t, 64*1024, cfg.Server.MaxDataSize)
	assert.Equal(t, 2*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "tcp://*:9000/", cfg.Transport.URI)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 0, cfg.Metrics.Port)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Server:    ServerConfig{ThreadsNum: 1, MaxClients: 2, MaxDataSize: 3, Timeout: time.Second},
		Transport: TransportConfig{URI: "udp://127.0.0.1:1/"},
	}
	ApplyDefaults(cfg)

	assert.Equal(t, 1, cfg.Server.ThreadsNum)
	assert.Equal(t, 2, cfg.Server.MaxClients)
	assert.Equal(t, 3, cfg.Server.MaxDataSize)
	assert.Equal(t, time.Second, cfg.Server.Timeout)
	assert.Equal(t, "udp://127.0.0.1:1/", cfg.Transport.URI)
}

func TestApplyDefaults_MetricsPortOnlyWhenEnabled(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	assert.Equal(t, 0, cfg.Metrics.Port)

	cfg = &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	require.NoError(t, Validate(cfg))
}

func TestApplyDefaults_NormalizesLogLevelCase(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "info"}}
	ApplyDefaults(cfg)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}
