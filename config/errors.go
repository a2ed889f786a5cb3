package config

import "errors"

var (
	// ErrInvalidConfig is returned when a configuration fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedFormat is returned for configuration files that are
	// neither TOML nor YAML.
	ErrUnsupportedFormat = errors.New("unsupported configuration format")

	// ErrInvalidLogLevel is returned for an unknown log level name.
	ErrInvalidLogLevel = errors.New("invalid log level")
)
