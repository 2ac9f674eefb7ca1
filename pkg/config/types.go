// Package config provides configuration management for podpost.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("pod: %s\n", cfg.Pod.URL())
package config

import (
	"strings"
	"time"
)

// Supported pod URL schemes.
const (
	SchemeHTTPS = "https"
	SchemeHTTP  = "http"
)

// Config represents the complete application configuration.
//
// Invariants:
// - Pod.Scheme is https or http
// - Pod.Host, when set, is a bare domain (optionally with port)
// - Pod.Timeout must be > 0
// - Outbox.Debounce must be > 0.
type Config struct {
	// Pod connection settings
	Pod PodConfig `yaml:"pod" json:"pod"`

	// Account credentials
	Account AccountConfig `yaml:"account" json:"account"`

	// Storage settings
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Outbox settings
	Outbox OutboxConfig `yaml:"outbox" json:"outbox"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PodConfig describes the pod to talk to.
type PodConfig struct {
	// Bare domain of the pod, e.g. pod.example
	Host string `yaml:"host" json:"host"`

	// https or http
	Scheme string `yaml:"scheme" json:"scheme"`

	// HTTP request timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Sent as provider_display_name with every post
	Provider string `yaml:"provider" json:"provider"`

	// User-Agent header, empty for the Go default
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// UseHTTPS reports whether the pod is reached over https.
func (p PodConfig) UseHTTPS() bool {
	return p.Scheme != SchemeHTTP
}

// URL returns scheme://host.
func (p PodConfig) URL() string {
	return p.Scheme + "://" + p.Host
}

// AccountConfig contains the login credentials.
type AccountConfig struct {
	Username string `yaml:"username" json:"username"`

	// Password may be left empty; the CLI then prompts for it
	Password string `yaml:"password" json:"-"`
}

// StorageConfig contains storage-related settings.
type StorageConfig struct {
	// Path to BoltDB database file
	DBPath string `yaml:"db_path" json:"db_path"`
}

// OutboxConfig contains the drop-directory publishing settings.
type OutboxConfig struct {
	// Directory watched for drafts
	Dir string `yaml:"dir" json:"dir"`

	// Quiet period before a changed draft is published
	Debounce time.Duration `yaml:"debounce" json:"debounce"`

	// Aspects used when a draft names none
	DefaultAspects []string `yaml:"default_aspects" json:"default_aspects"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format"`
}

// Validate checks if the configuration satisfies all invariants.
//
// An empty pod host is accepted here; commands that talk to the pod call
// ValidatePod as well.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	if c.Pod.Scheme != SchemeHTTPS && c.Pod.Scheme != SchemeHTTP {
		return ErrInvalidScheme
	}
	if c.Pod.Host != "" && !validHost(c.Pod.Host) {
		return ErrInvalidHost
	}
	if c.Pod.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Outbox.Debounce <= 0 {
		return ErrInvalidDebounce
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// ValidatePod runs Validate and additionally requires a pod host.
func (c *Config) ValidatePod() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Pod.Host == "" {
		return ErrNoHost
	}
	return nil
}

// validHost rejects anything that is more than a domain with optional port.
func validHost(host string) bool {
	if strings.Contains(host, "://") {
		return false
	}
	return !strings.ContainsAny(host, "/?# ")
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Pod: PodConfig{
			Scheme:   SchemeHTTPS,
			Timeout:  60 * time.Second,
			Provider: "podpost",
		},
		Storage: StorageConfig{
			DBPath: defaultDBPath(),
		},
		Outbox: OutboxConfig{
			Dir:            defaultOutboxDir(),
			Debounce:       500 * time.Millisecond,
			DefaultAspects: []string{"public"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}
