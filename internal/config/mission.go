package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// MissionFile is a declarative mission definition. It captures everything
// `arena run` takes as flags, so repeatable missions live in version
// control instead of shell history.
type MissionFile struct {
	Mission string   `yaml:"mission"`
	Doers   []string `yaml:"doers"`
	Budget  int      `yaml:"budget,omitempty"`
}

// LoadMission reads and validates a YAML mission file.
func LoadMission(path string) (*MissionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mission file: %w", err)
	}
	var mf MissionFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if strings.TrimSpace(mf.Mission) == "" {
		return nil, fmt.Errorf("%s: mission text is required", path)
	}
	if len(mf.Doers) == 0 {
		return nil, fmt.Errorf("%s: at least one doer role is required", path)
	}
	seen := make(map[string]bool, len(mf.Doers))
	for _, d := range mf.Doers {
		if strings.TrimSpace(d) == "" {
			return nil, fmt.Errorf("%s: empty doer role", path)
		}
		if seen[d] {
			return nil, fmt.Errorf("%s: duplicate doer role %q", path, d)
		}
		seen[d] = true
	}
	return &mf, nil
}
