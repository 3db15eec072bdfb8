package settings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration file.
type Config struct {
	// Inputs are the controller input device names; overridden by the
	// preset's enabled inputs when a preset is loaded.
	Inputs []string `yaml:"inputs"`
	Output string   `yaml:"output"`

	BPM      float64 `yaml:"bpm"`
	LoopBars int     `yaml:"loop_bars"`
	Quantize bool    `yaml:"quantize"`

	Preset string `yaml:"preset"`

	// Tracks names the instrument tracks to create at startup.
	Tracks []string `yaml:"tracks"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		BPM:      120,
		LoopBars: 4,
		Tracks:   []string{"loop 1", "loop 2", "loop 3", "loop 4"},
	}
}

// LoadConfig reads a YAML configuration file, filling unset fields from the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.BPM <= 0 {
		cfg.BPM = 120
	}
	return cfg, nil
}
