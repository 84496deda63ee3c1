// Package config loads the optional YAML configuration file consumed by the
// CLI. All fields are optional; zero values fall back to the built-in
// defaults, and command-line flags override file values.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File mirrors the YAML configuration layout.
type File struct {
	Rules     []string `yaml:"rules"`     // Assignment rules, "device=track[,track...]".
	Speed     uint64   `yaml:"speed"`     // Playback speed percentage; 0 = default (100).
	Unit      uint64   `yaml:"unit"`      // Merge quantization width in ms; 0 = default (40).
	Transport string   `yaml:"transport"` // "midi" or "serial"; empty = "midi".

	Serial struct {
		Port  string `yaml:"port"`  // Serial device name.
		Baud  int    `yaml:"baud"`  // Baud rate.
		Cubes int    `yaml:"cubes"` // Cubes behind the bridge.
	} `yaml:"serial"`
}

// Load reads and parses the configuration at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &f, nil
}

// LoadIfExists behaves like Load but treats a missing file as an empty
// configuration. Used for the default config path, which the user may simply
// not have created.
func LoadIfExists(path string) (*File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &File{}, nil
	}
	return Load(path)
}
