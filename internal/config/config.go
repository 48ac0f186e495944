// Package config loads the colony.yaml game configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the tunable surface of the game loop. Everything here has
// a playable default; the file only overrides.
type Config struct {
	TickRate         float64 `yaml:"tick_rate"`
	SolLength        float64 `yaml:"sol_length"`
	AutosaveInterval float64 `yaml:"autosave_interval"`
	SavePath         string  `yaml:"save_path"`
	FrameRateMs      int     `yaml:"frame_rate_ms"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		TickRate:         1.0,
		SolLength:        60.0,
		AutosaveInterval: 120.0,
		SavePath:         defaultSavePath(),
		FrameRateMs:      250,
	}
}

func defaultSavePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "colony_save.json"
	}
	return filepath.Join(home, ".colony", "colony_save.json")
}

// Load reads a YAML config file, applying defaults for absent fields.
// A missing file is not an error: the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.sanitize()
	return cfg, nil
}

// sanitize snaps out-of-range values back to their defaults.
func (c *Config) sanitize() {
	def := Default()
	if c.TickRate <= 0 {
		c.TickRate = def.TickRate
	}
	if c.SolLength <= 0 {
		c.SolLength = def.SolLength
	}
	if c.AutosaveInterval < 0 {
		c.AutosaveInterval = def.AutosaveInterval
	}
	if c.SavePath == "" {
		c.SavePath = def.SavePath
	}
	if c.FrameRateMs <= 0 {
		c.FrameRateMs = def.FrameRateMs
	}
}

// SaveDir returns the directory holding the configured save file.
func (c Config) SaveDir() string {
	return filepath.Dir(c.SavePath)
}
