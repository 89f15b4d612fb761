package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/urpc/internal/urpcuri"
)

var validate = validator.New()

// Validate checks cfg against its struct tags (required/gt/lte/oneof,
// see the Config field definitions) plus the one cross-field rule a
// struct tag can't express: that Transport.URI parses as a real uRPC
// endpoint.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	if _, err := urpcuri.Parse(cfg.Transport.URI); err != nil {
		return fmt.Errorf("transport.uri: %w", err)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		return fmt.Errorf("metrics.port: required when metrics.enabled is true")
	}

	return nil
}
