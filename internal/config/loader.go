package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and merges configuration from global and project paths.
// Precedence, highest to lowest: project config, global config, defaults.
// Missing files are not errors; malformed JSON is.
func Load(globalPath, projectPath string) (*Config, error) {
	cfg := DefaultConfig()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}
	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	if cfg.Defaults.SessionDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		cfg.Defaults.SessionDir = filepath.Join(home, ".arena", "sessions")
	}
	return cfg, nil
}

// LoadDefault loads configuration from conventional paths.
// Global: ~/.arena/config.json
// Project: .arena/config.json (relative to cwd)
func LoadDefault() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	globalPath := filepath.Join(home, ".arena", "config.json")
	projectPath := filepath.Join(".arena", "config.json")
	return Load(globalPath, projectPath)
}

// mergeConfigFile reads a JSON config file and merges it into the base.
// Missing files are silently skipped.
func mergeConfigFile(base *Config, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	for key, provider := range loaded.Providers {
		base.Providers[key] = provider
	}
	for key, role := range loaded.Roles {
		base.Roles[key] = role
	}
	if loaded.Defaults.Budget > 0 {
		base.Defaults.Budget = loaded.Defaults.Budget
	}
	if loaded.Defaults.SessionDir != "" {
		base.Defaults.SessionDir = loaded.Defaults.SessionDir
	}
	if loaded.Defaults.Autonomous {
		base.Defaults.Autonomous = true
	}
	return nil
}
