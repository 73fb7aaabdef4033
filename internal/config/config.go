// Package config loads the optional sphinx.yaml settings file: default
// word size, default output context, and a cycle cap for runaway
// programs. The file's absence is not an error — it's the all-defaults
// case — matching the teacher's general tolerance for optional startup
// files over hard-failing on a missing one.
package config

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Config holds the settings sphinx.yaml may override. Zero values mean
// "unset"; callers fall back to their own defaults (memfmt's 2-byte
// word, the "signed" output context, no cycle cap).
type Config struct {
	WordSize      int    `json:"wordSize,omitempty"`
	OutputContext string `json:"outputContext,omitempty"`
	MaxCycles     int    `json:"maxCycles,omitempty"`
}

// Load reads path and unmarshals it as YAML. A missing file yields a
// zero-value Config and a nil error; any other read or parse failure is
// returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if c.WordSize < 0 {
		return nil, fmt.Errorf("config: %s: wordSize must be positive, got %d", path, c.WordSize)
	}
	if c.MaxCycles < 0 {
		return nil, fmt.Errorf("config: %s: maxCycles must not be negative, got %d", path, c.MaxCycles)
	}
	switch c.OutputContext {
	case "", "byte", "signed", "unsigned":
	default:
		return nil, fmt.Errorf("config: %s: invalid outputContext %q, must be byte, signed, or unsigned", path, c.OutputContext)
	}
	return &c, nil
}
