package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"voicepack-extractor/internal/keysearch"
)

// Config holds all configurable paths and extraction settings.
type Config struct {
	// Paths
	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`

	// Cipher material, 16 ASCII characters each. Left empty when the key is
	// to be recovered with findkey first.
	Key string `json:"key"`
	IV  string `json:"iv"`

	// Extraction settings
	Workers int `json:"workers"`

	// Key search settings
	Window int `json:"window"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.InputDir != "" {
		c.InputDir = flags.InputDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Key != "" {
		c.Key = flags.Key
	}
	if flags.IV != "" {
		c.IV = flags.IV
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Window > 0 {
		c.Window = flags.Window
	}

	// Defaults
	if c.InputDir == "" {
		c.InputDir = "voice-packs"
	}
	if c.OutputDir == "" {
		c.OutputDir = "extracted"
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Window <= 0 {
		c.Window = keysearch.DefaultWindow
	}
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	InputDir  string
	OutputDir string
	Key       string
	IV        string
	Workers   int
	Window    int
}
