package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name           string
		globalConfig   *Config
		projectConfig  *Config
		checkRole      string
		expectProvider string
		expectModel    string
		expectBudget   int
	}{
		{
			name:         "No config files - returns defaults",
			expectBudget: 20,
		},
		{
			name: "Global only - adds new role",
			globalConfig: &Config{
				Roles: map[string]RoleConfig{
					"researcher": {
						Provider:     "claude",
						SystemPrompt: "You dig through sources and report findings.",
					},
				},
			},
			checkRole:      "researcher",
			expectProvider: "claude",
			expectBudget:   20,
		},
		{
			name: "Project overrides global - project wins",
			globalConfig: &Config{
				Roles: map[string]RoleConfig{
					"coder": {Provider: "claude", Model: "model-x"},
				},
				Defaults: RunDefaults{Budget: 30},
			},
			projectConfig: &Config{
				Roles: map[string]RoleConfig{
					"coder": {Provider: "claude", Model: "model-y"},
				},
				Defaults: RunDefaults{Budget: 50},
			},
			checkRole:      "coder",
			expectProvider: "claude",
			expectModel:    "model-y",
			expectBudget:   50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()

			writeConfig := func(name string, cfg *Config) string {
				if cfg == nil {
					return ""
				}
				path := filepath.Join(tmpDir, name)
				data, err := json.Marshal(cfg)
				if err != nil {
					t.Fatalf("marshaling config: %v", err)
				}
				if err := os.WriteFile(path, data, 0644); err != nil {
					t.Fatalf("writing config: %v", err)
				}
				return path
			}

			globalPath := writeConfig("global.json", tt.globalConfig)
			projectPath := writeConfig("project.json", tt.projectConfig)

			cfg, err := Load(globalPath, projectPath)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if cfg.Defaults.Budget != tt.expectBudget {
				t.Errorf("default budget = %d, want %d", cfg.Defaults.Budget, tt.expectBudget)
			}
			if tt.checkRole != "" {
				role := cfg.Role(tt.checkRole)
				if role.Provider != tt.expectProvider {
					t.Errorf("role %q provider = %q, want %q", tt.checkRole, role.Provider, tt.expectProvider)
				}
				if tt.expectModel != "" && role.Model != tt.expectModel {
					t.Errorf("role %q model = %q, want %q", tt.checkRole, role.Model, tt.expectModel)
				}
			}
		})
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	tmpDir := t.TempDir()

	globalPath := filepath.Join(tmpDir, "global.json")
	if err := os.WriteFile(globalPath, []byte("{invalid json"), 0644); err != nil {
		t.Fatalf("writing malformed config: %v", err)
	}

	if _, err := Load(globalPath, ""); err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

func TestLoad_MissingFilesNotError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"), "")
	if err != nil {
		t.Fatalf("expected no error for missing files, got: %v", err)
	}
	if cfg.Role("anything").Provider != "claude" {
		t.Errorf("wildcard role should fall back to claude provider")
	}
	if cfg.Defaults.SessionDir == "" {
		t.Error("session dir should be resolved to a default")
	}
}

func TestRoleFallback(t *testing.T) {
	cfg := DefaultConfig()

	if got := cfg.Role("director").SystemPrompt; got == "" {
		t.Error("director role should carry a system prompt")
	}
	// Unknown roles fall through to the wildcard entry.
	if got := cfg.Role("welder").Provider; got != "claude" {
		t.Errorf("unknown role provider = %q, want claude", got)
	}
	if got := cfg.Provider("missing").Command; got != "claude" {
		t.Errorf("missing provider command = %q, want claude", got)
	}
}
