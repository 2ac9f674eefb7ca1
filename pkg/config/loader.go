package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader provides methods for loading configuration from various sources.
type Loader interface {
	// Load loads configuration with the following precedence:
	// 1. Environment variables
	// 2. Configuration file
	// 3. Default values
	//
	// Returns the merged configuration or an error if validation fails.
	Load() (*Config, error)

	// LoadFromFile loads configuration from a specific file.
	LoadFromFile(path string) (*Config, error)
}

// loader implements the Loader interface.
type loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
//
// If configPath is empty, the first existing file of SearchPaths is used.
func NewLoader(configPath string) Loader {
	return &loader{
		configPath: configPath,
	}
}

// Load implements Loader.Load.
func (l *loader) Load() (*Config, error) {
	cfg := Default()

	configPath := l.configPath
	if configPath == "" {
		configPath = FindConfigFile()
	}

	if configPath != "" {
		fileCfg, err := l.LoadFromFile(configPath)
		if err != nil {
			// An explicitly requested file must load; a discovered one may be skipped.
			if l.configPath != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		} else {
			cfg = mergeConfigs(cfg, fileCfg)
		}
	}

	cfg = applyEnvVars(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile implements Loader.LoadFromFile.
func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return &cfg, nil
}

// FindConfigFile returns the first existing file of SearchPaths, or an
// empty string.
func FindConfigFile() string {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// mergeConfigs merges file configuration into default configuration.
//
// File values override defaults, but only if they are non-zero.
func mergeConfigs(base, override *Config) *Config {
	result := *base

	// Pod
	if override.Pod.Host != "" {
		result.Pod.Host = override.Pod.Host
	}
	if override.Pod.Scheme != "" {
		result.Pod.Scheme = strings.ToLower(override.Pod.Scheme)
	}
	if override.Pod.Timeout > 0 {
		result.Pod.Timeout = override.Pod.Timeout
	}
	if override.Pod.Provider != "" {
		result.Pod.Provider = override.Pod.Provider
	}
	if override.Pod.UserAgent != "" {
		result.Pod.UserAgent = override.Pod.UserAgent
	}

	// Account
	if override.Account.Username != "" {
		result.Account.Username = override.Account.Username
	}
	if override.Account.Password != "" {
		result.Account.Password = override.Account.Password
	}

	// Storage
	if override.Storage.DBPath != "" {
		result.Storage.DBPath = override.Storage.DBPath
	}

	// Outbox
	if override.Outbox.Dir != "" {
		result.Outbox.Dir = override.Outbox.Dir
	}
	if override.Outbox.Debounce > 0 {
		result.Outbox.Debounce = override.Outbox.Debounce
	}
	if len(override.Outbox.DefaultAspects) > 0 {
		result.Outbox.DefaultAspects = override.Outbox.DefaultAspects
	}

	// Logging
	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Output != "" {
		result.Logging.Output = override.Logging.Output
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}

	return &result
}

// applyEnvVars applies environment variable overrides to the configuration.
//
// Supported environment variables:
//   - PODPOST_HOST: Pod domain
//   - PODPOST_SCHEME: https or http
//   - PODPOST_USERNAME: Account username
//   - PODPOST_PASSWORD: Account password
//   - PODPOST_DB: Path to database file
//   - PODPOST_OUTBOX: Outbox directory
//   - PODPOST_LOG_LEVEL: Log level
func applyEnvVars(cfg *Config) *Config {
	result := *cfg

	if host := os.Getenv("PODPOST_HOST"); host != "" {
		result.Pod.Host = strings.TrimSpace(host)
	}
	if scheme := os.Getenv("PODPOST_SCHEME"); scheme != "" {
		result.Pod.Scheme = strings.ToLower(strings.TrimSpace(scheme))
	}
	if username := os.Getenv("PODPOST_USERNAME"); username != "" {
		result.Account.Username = username
	}
	if password := os.Getenv("PODPOST_PASSWORD"); password != "" {
		result.Account.Password = password
	}
	if dbPath := os.Getenv("PODPOST_DB"); dbPath != "" {
		result.Storage.DBPath = dbPath
	}
	if dir := os.Getenv("PODPOST_OUTBOX"); dir != "" {
		result.Outbox.Dir = dir
	}
	if logLevel := os.Getenv("PODPOST_LOG_LEVEL"); logLevel != "" {
		result.Logging.Level = strings.ToLower(logLevel)
	}

	return &result
}

// Load is a convenience function that creates a loader and loads configuration.
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// LoadFromFile is a convenience function that loads configuration from a file.
//
// Equivalent to:
//
//	loader := NewLoader(path)
//	return loader.Load()
func LoadFromFile(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Save writes the configuration to a YAML file.
//
// Creates parent directories if they don't exist.
// File is created with 0600 permissions since it may hold a password.
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
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
