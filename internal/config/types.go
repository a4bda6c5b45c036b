// Package config loads arena configuration from layered JSON files and
// mission definitions from YAML files.
package config

// ProviderConfig defines a transport layer (CLI command plus base args).
// Providers are separate from roles; multiple roles can share one provider.
type ProviderConfig struct {
	Command string   `json:"command"`        // CLI binary name (e.g., "claude")
	Args    []string `json:"args,omitempty"` // Default args appended to every invocation
}

// RoleConfig binds a participant role to a provider, an optional model
// override, and a role-specific system prompt.
type RoleConfig struct {
	Provider     string `json:"provider"`
	Model        string `json:"model,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// RunDefaults are the knobs a mission falls back to when the CLI and the
// mission file leave them unset.
type RunDefaults struct {
	Budget     int    `json:"budget,omitempty"`      // shared turn budget
	SessionDir string `json:"session_dir,omitempty"` // root of the session store
	Autonomous bool   `json:"autonomous,omitempty"`  // skip agent permission prompts
}

// Config is the top-level configuration.
type Config struct {
	Providers map[string]ProviderConfig `json:"providers"`
	Roles     map[string]RoleConfig     `json:"roles"`
	Defaults  RunDefaults               `json:"defaults"`
}

// Role returns the config for a role, falling back to the wildcard "*"
// entry and then to a bare default provider.
func (c *Config) Role(name string) RoleConfig {
	if rc, ok := c.Roles[name]; ok {
		return rc
	}
	if rc, ok := c.Roles["*"]; ok {
		return rc
	}
	return RoleConfig{Provider: "claude"}
}

// Provider resolves a role's provider, defaulting to the claude CLI when
// the named provider is missing.
func (c *Config) Provider(name string) ProviderConfig {
	if pc, ok := c.Providers[name]; ok {
		return pc
	}
	return ProviderConfig{Command: "claude"}
}
