package config

import (
	"os"
	"path/filepath"
)

// appDir returns ~/.config/podpost, or "." when there is no home directory.
func appDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(homeDir, ".config", "podpost")
}

// defaultDBPath returns the default database file path.
//
// Returns: ~/.config/podpost/podpost.db.
func defaultDBPath() string {
	return filepath.Join(appDir(), "podpost.db")
}

// defaultOutboxDir returns the default drop directory.
//
// Returns: ~/.config/podpost/outbox/.
func defaultOutboxDir() string {
	return filepath.Join(appDir(), "outbox")
}

// DefaultConfigPath returns the per-user configuration file path.
//
// Returns: ~/.config/podpost/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(appDir(), "config.yaml")
}

// SearchPaths lists the configuration files Load looks for, in order.
func SearchPaths() []string {
	return []string{
		"./podpost.yaml",
		DefaultConfigPath(),
	}
}
