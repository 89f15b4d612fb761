package config

import (
	"strings"
	"time"
)

// ApplyDefaults fills in any zero-valued fields of cfg with documented
// defaults. Explicit values (including explicit zeros for bool fields)
// are preserved; only the "unset" zero value of each field is replaced.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyTransportDefaults(&cfg.Transport)
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
}

// applyServerDefaults sets worker pool defaults, matching
// server.DefaultConfig (spec.md §6).
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ThreadsNum == 0 {
		cfg.ThreadsNum = 4
	}
	if cfg.MaxClients == 0 {
		cfg.MaxClients = 64
	}
	if cfg.MaxDataSize == 0 {
		cfg.MaxDataSize = 64 * 1024
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout()
	}
}

// applyTransportDefaults sets the default bind endpoint: TCP on the
// documented default uRPC port, bound to all interfaces.
func applyTransportDefaults(cfg *TransportConfig) {
	if cfg.URI == "" {
		cfg.URI = "tcp://*:9000/"
	}
}

// applyLoggingDefaults sets logging defaults and normalizes the level
// to uppercase for consistent internal representation.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyMetricsDefaults sets the metrics port only when metrics are
// enabled; a disabled metrics server doesn't need a default port.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config populated entirely with defaults,
// as if loaded from an empty config file.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
