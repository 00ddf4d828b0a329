package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound   = goerr.New("configuration file not found")
	ErrInvalidConfig    = goerr.New("invalid configuration")
	ErrInvalidBackend   = goerr.New("invalid repository backend")
	ErrInvalidProvider  = goerr.New("invalid LLM provider")
	ErrMissingParameter = goerr.New("required parameter is missing")
	ErrInvalidLogLevel  = goerr.New("invalid log level")
	ErrInvalidLogFormat = goerr.New("invalid log format")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	BackendKey    = "backend"
	ProviderKey   = "provider"
	ParameterKey  = "parameter"
	FieldKey      = "field"
)
