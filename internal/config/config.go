// Package config loads sparkyd settings from config.toml, applies
// environment overrides, and reloads provider configuration when the
// file changes on disk.
package config

import (
	"fmt"
	"log"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/sparkyhq/sparky/internal/model"
)

// Remote holds remote replica connection settings. Mirroring is only
// attempted when both fields resolve.
type Remote struct {
	DSN    string `toml:"dsn"`
	UserID string `toml:"user_id"`
}

// ProviderEntry is one AI provider in the config file
type ProviderEntry struct {
	ID      string `toml:"id"`
	Name    string `toml:"name"`
	APIKey  string `toml:"api_key"`
	Enabled bool   `toml:"enabled"`
}

// AI holds provider settings
type AI struct {
	OpenAIKey      string          `toml:"openai_api_key"`
	ActiveProvider string          `toml:"active_provider"`
	Providers      []ProviderEntry `toml:"providers"`
}

// Config is the sparkyd configuration file
type Config struct {
	HTTPAddr  string `toml:"http_addr"`
	StateFile string `toml:"state_file"`
	Remote    Remote `toml:"remote"`
	AI        AI     `toml:"ai"`
}

// Load reads the config file and applies environment overrides. A
// missing file yields defaults; credentials are resolved once here.
func Load(path string) (*Config, error) {
	cfg := &Config{HTTPAddr: ":8080"}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err):
		// Defaults + environment only
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.AI.OpenAIKey = v
	}
	if v := os.Getenv("SPARKY_DB_DSN"); v != "" {
		cfg.Remote.DSN = v
	}
	if v := os.Getenv("SPARKY_USER_ID"); v != "" {
		cfg.Remote.UserID = v
	}

	if cfg.StateFile == "" {
		cfg.StateFile, err = DefaultStateFile()
		if err != nil {
			return nil, fmt.Errorf("resolve state file: %w", err)
		}
	}
	return cfg, nil
}

// AppConfig converts the file's provider section into the store's
// provider configuration, falling back to the defaults
func (c *Config) AppConfig() model.AppConfig {
	if len(c.AI.Providers) == 0 {
		return model.DefaultConfig()
	}

	appCfg := model.AppConfig{ActiveProvider: c.AI.ActiveProvider}
	if appCfg.ActiveProvider == "" {
		appCfg.ActiveProvider = c.AI.Providers[0].ID
	}
	for _, p := range c.AI.Providers {
		appCfg.Providers = append(appCfg.Providers, model.AIProvider{
			ID:      p.ID,
			Name:    p.Name,
			APIKey:  p.APIKey,
			Enabled: p.Enabled,
		})
	}
	return appCfg
}

// ReloadHandler receives the provider config parsed from a changed file
type ReloadHandler func(model.AppConfig)

// Manager watches the config file and pushes provider changes to a
// handler (typically Store.UpdateConfig)
type Manager struct {
	path    string
	watcher *fileWatcher
	handler ReloadHandler
}

// NewManager creates a manager watching the config file for changes
func NewManager(path string, handler ReloadHandler) (*Manager, error) {
	m := &Manager{path: path, handler: handler}

	watcher, err := watchConfigFile(path, m.reload)
	if err != nil {
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}

	m.watcher = watcher
	log.Printf("[Config] Watching file: %s", path)
	return m, nil
}

// Stop stops the file watcher
func (m *Manager) Stop() {
	if m.watcher != nil {
		m.watcher.stop()
	}
}

func (m *Manager) reload() {
	cfg, err := Load(m.path)
	if err != nil {
		log.Printf("[Config] Failed to reload: %v", err)
		return
	}
	if m.handler != nil {
		m.handler(cfg.AppConfig())
	}
}
