package config

import (
	"fmt"
	"strings"
)

// Validator validates configuration values.
type Validator interface {
	Validate(cfg *Config) error
}

// validatorImpl implements Validator with explicit field checks.
type validatorImpl struct{}

// NewValidator creates a new Validator instance.
func NewValidator() Validator {
	return &validatorImpl{}
}

// Validate validates the configuration and returns detailed error messages.
func (v *validatorImpl) Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be between 1 and 65535 (got: %d)", cfg.Server.Port))
	}

	if cfg.Speaker.Provider == "" {
		errs = append(errs, "speaker.provider must be set")
	}
	if cfg.Speaker.Model == "" {
		errs = append(errs, "speaker.model must be set")
	}
	if cfg.Executive.Provider == "" {
		errs = append(errs, "executive.provider must be set")
	}
	if cfg.Executive.Model == "" {
		errs = append(errs, "executive.model must be set")
	}

	switch cfg.Embedding.Provider {
	case "native", "mock":
	default:
		errs = append(errs, fmt.Sprintf("embedding.provider must be 'native' or 'mock' (got: %q)", cfg.Embedding.Provider))
	}
	if cfg.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Sprintf("embedding.dimension must be positive (got: %d)", cfg.Embedding.Dimension))
	}

	if cfg.Graph.URI == "" {
		errs = append(errs, "graph.uri must be set")
	}

	if cfg.Orchestrator.ReevalStride <= 0 {
		errs = append(errs, fmt.Sprintf("orchestrator.reeval_stride must be positive (got: %d)", cfg.Orchestrator.ReevalStride))
	}
	if cfg.Orchestrator.RequestTimeout <= 0 {
		errs = append(errs, "orchestrator.request_timeout must be positive")
	}
	if cfg.Orchestrator.CancelGrace <= 0 {
		errs = append(errs, "orchestrator.cancel_grace must be positive")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging.level must be one of debug, info, warn, error (got: %q)", cfg.Logging.Level))
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("logging.format must be 'json' or 'text' (got: %q)", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
