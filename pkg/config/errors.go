package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrNoHost is returned when a pod command runs without a configured host.
	ErrNoHost = errors.New("no pod host configured (set pod.host or PODPOST_HOST)")

	// ErrInvalidHost is returned when the host carries a scheme or a path.
	ErrInvalidHost = errors.New("invalid pod host: must be a bare domain such as pod.example")

	// ErrInvalidScheme is returned when the scheme is not https or http.
	ErrInvalidScheme = errors.New("invalid pod scheme: must be https or http")

	// ErrInvalidTimeout is returned when the request timeout is <= 0.
	ErrInvalidTimeout = errors.New("invalid pod timeout: must be > 0")

	// ErrInvalidDebounce is returned when the outbox debounce is <= 0.
	ErrInvalidDebounce = errors.New("invalid outbox debounce: must be > 0")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
