package config

import (
	"os"
	"path/filepath"
)

// Dir returns the sparky config directory (~/.config/sparky)
// Creates it if it doesn't exist
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(homeDir, ".config", "sparky")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return configDir, nil
}

// DefaultStateFile returns the default local state file path
func DefaultStateFile() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "state.json"), nil
}

// DefaultPath returns the default config file path
func DefaultPath() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
