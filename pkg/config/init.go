package config

import (
	"fmt"
	"os"
)

// InitConfig writes a default configuration file to the default
// location, returning its path. If a config file already exists there,
// InitConfig fails unless force is true.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()

	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	cfg := GetDefaultConfig()
	if err := SaveConfig(cfg, path); err != nil {
		return "", err
	}
	return path, nil
}
