// Package config loads and validates the uRPC daemon's configuration:
// which transport to bind, how many worker threads to run, and the
// ambient logging/metrics settings, per spec.md §7.
//
// Grounded on the teacher's pkg/config/config.go: the same
// viper-plus-mapstructure loading pipeline (config file, then
// URPC_-prefixed environment variables, then defaults), the same YAML
// round-trip via SaveConfig, and the same XDG-based default config
// path — generalized from DittoFS's NFS/SMB/database surface to
// uRPC's much smaller transport/server surface.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/urpc/internal/wire"
)

// Config is the uRPC daemon's configuration.
//
// Configuration sources, in order of precedence:
//  1. CLI flags (applied by the caller after Load)
//  2. Environment variables (URPC_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Server bounds the worker pool and per-request limits.
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Transport names the endpoint the daemon binds, as a uRPC URI
	// (tcp://host:port/, udp://host:port/, or shm:///name).
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// ShutdownTimeout is loaded and validated but not read by urpcd
	// start; the server's Shutdown waits for every worker to return,
	// with no time bound.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// ServerConfig mirrors server.Config (spec.md §6), duplicated here
// rather than imported so the wire format of the config file doesn't
// change if the server package's internal Config shape does.
type ServerConfig struct {
	// ThreadsNum is the number of worker threads servicing requests.
	ThreadsNum int `mapstructure:"threads_num" validate:"required,gt=0,lte=32" yaml:"threads_num"`

	// MaxClients bounds the server's session table for every transport;
	// for TCP it also bounds concurrently connected sockets.
	MaxClients int `mapstructure:"max_clients" validate:"required,gt=0" yaml:"max_clients"`

	// MaxDataSize bounds a single request/response parameter payload,
	// header-exclusive, in bytes.
	MaxDataSize int `mapstructure:"max_data_size" validate:"required,gt=0" yaml:"max_data_size"`

	// Timeout bounds a single exchange: the per-chunk stall window for
	// TCP, the client reply-poll window for UDP, and the start/stop
	// semaphore wait for SHM.
	Timeout time.Duration `mapstructure:"timeout" validate:"required,gt=0" yaml:"timeout"`
}

// TransportConfig names the endpoint a uRPC daemon binds.
type TransportConfig struct {
	// URI is a uRPC endpoint URI, e.g. "tcp://*:9000/",
	// "udp://127.0.0.1:9001/", or "shm:///my-service".
	URI string `mapstructure:"uri" validate:"required" yaml:"uri"`
}

// LoggingConfig controls logging behavior. Field-for-field identical to
// logger.Config so Load's result can be passed straight to logger.Init.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a
	// file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures the Prometheus metrics HTTP endpoint. When
// Enabled is false, no metrics server is started (zero overhead).
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
//
// configPath empty uses the default XDG-based location.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !found {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, returning a user-friendly error with
// setup instructions if no config file exists at the resolved path.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  urpcd init\n\n"+
				"Or specify a custom config file:\n"+
				"  urpcd start --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML to path, creating parent directories as
// needed. The file is written with 0600 permissions.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures environment variable and config file lookup.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("URPC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if present. Returns
// (found, error); a missing file is not an error.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks composes the custom mapstructure decode hooks Load
// needs: only time.Duration parsing, since uRPC's config has no
// human-readable byte sizes to parse.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook converts strings like "30s" or raw numeric
// nanosecond counts into time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory, preferring
// XDG_CONFIG_HOME, falling back to ~/.config, and finally to the
// current directory if no home directory can be resolved.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "urpc")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "urpc")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path, exposed for
// the init command.
func GetConfigDir() string {
	return getConfigDir()
}

// defaultTimeout mirrors wire.DefaultServerTimeoutSeconds so GetDefaultConfig
// doesn't need to duplicate the constant's value.
func defaultTimeout() time.Duration {
	return time.Duration(wire.DefaultServerTimeoutSeconds * float64(time.Second))
}
