package config

// DefaultConfig returns the built-in providers, roles and run defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]ProviderConfig{
			"claude": {
				Command: "claude",
			},
		},
		Roles: map[string]RoleConfig{
			"director": {
				Provider:     "claude",
				SystemPrompt: "You coordinate a team of specialist agents. You decompose missions, delegate work, and rule on conflicts.",
			},
			"*": {
				Provider: "claude",
			},
		},
		Defaults: RunDefaults{
			Budget:     20,
			SessionDir: "", // resolved to ~/.arena/sessions by the loader
		},
	}
}
