package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ermiller24/executive-layer/internal/types"
)

// Loader handles loading configuration from files and the environment.
type Loader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

// viperLoader implements Loader using Viper.
type viperLoader struct {
	validator Validator
}

// NewLoader creates a new Loader instance.
func NewLoader(validator Validator) Loader {
	return &viperLoader{
		validator: validator,
	}
}

// Load loads configuration from the specified YAML file, interpolates
// ${ENV_VAR} references, applies environment overrides and validates.
func (l *viperLoader) Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to read config file", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_PARSE_FAILED, "failed to unmarshal config", err)
	}

	interpolateConfig(cfg)
	ApplyEnvOverrides(cfg)

	if err := l.validator.Validate(cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_VALIDATION_FAILED, "configuration validation failed", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration from the specified file path. If the
// file does not exist, the defaults plus environment overrides are used.
func (l *viperLoader) LoadWithDefaults(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("EIR_CONFIG")
	}
	if path == "" {
		path = "eir.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		ApplyEnvOverrides(cfg)
		if err := l.validator.Validate(cfg); err != nil {
			return nil, types.WrapError(types.CONFIG_VALIDATION_FAILED, "default configuration validation failed", err)
		}
		return cfg, nil
	}

	return l.Load(path)
}

// envPattern matches ${VAR_NAME} references inside string config values.
var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateString replaces ${VAR_NAME} with environment variable values.
// Unknown variables are left as-is.
func interpolateString(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if envValue := os.Getenv(varName); envValue != "" {
			return envValue
		}
		return match
	})
}

// interpolateConfig applies ${ENV_VAR} interpolation to every string field
// that may reasonably carry a secret or host reference.
func interpolateConfig(cfg *Config) {
	cfg.Server.DefaultAPIKey = interpolateString(cfg.Server.DefaultAPIKey)
	cfg.Speaker.APIKey = interpolateString(cfg.Speaker.APIKey)
	cfg.Speaker.BaseURL = interpolateString(cfg.Speaker.BaseURL)
	cfg.Executive.APIKey = interpolateString(cfg.Executive.APIKey)
	cfg.Executive.BaseURL = interpolateString(cfg.Executive.BaseURL)
	cfg.Graph.URI = interpolateString(cfg.Graph.URI)
	cfg.Graph.Username = interpolateString(cfg.Graph.Username)
	cfg.Graph.Password = interpolateString(cfg.Graph.Password)
}

// ApplyEnvOverrides overlays the recognized environment variables on cfg.
// Environment values win over file values.
func ApplyEnvOverrides(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString(&cfg.Speaker.Model, "SPEAKER_MODEL")
	setString(&cfg.Speaker.Provider, "SPEAKER_MODEL_PROVIDER")
	setString(&cfg.Speaker.APIKey, "SPEAKER_API_KEY")
	setString(&cfg.Speaker.BaseURL, "SPEAKER_API_BASE")

	setString(&cfg.Executive.Model, "EXECUTIVE_MODEL")
	setString(&cfg.Executive.Provider, "EXECUTIVE_MODEL_PROVIDER")
	setString(&cfg.Executive.APIKey, "EXECUTIVE_API_KEY")
	setString(&cfg.Executive.BaseURL, "EXECUTIVE_API_BASE")

	setString(&cfg.Embedding.Model, "EMBEDDING_MODEL")
	setInt(&cfg.Embedding.Dimension, "EMBEDDING_DIMENSION")

	setString(&cfg.Graph.URI, "NEO4J_URL")
	setString(&cfg.Graph.Username, "NEO4J_USER")
	setString(&cfg.Graph.Password, "NEO4J_PASSWORD")

	setString(&cfg.Server.DefaultAPIKey, "DEFAULT_API_KEY")
	setInt(&cfg.Server.Port, "EIR_PORT")

	if v := os.Getenv("DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Server.Debug = b
		}
	}

	setInt(&cfg.Orchestrator.ReevalStride, "REEVAL_STRIDE")
	if v := os.Getenv("REQUEST_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Orchestrator.RequestTimeout = time.Duration(n) * time.Second
		}
	}
}
