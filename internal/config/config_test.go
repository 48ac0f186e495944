package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	def := Default()
	if cfg.TickRate != def.TickRate || cfg.SolLength != def.SolLength {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colony.yaml")
	content := "tick_rate: 0.5\nsave_path: /tmp/colony/save.json\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TickRate != 0.5 {
		t.Errorf("expected tick_rate 0.5, got %f", cfg.TickRate)
	}
	if cfg.SavePath != "/tmp/colony/save.json" {
		t.Errorf("expected overridden save path, got %q", cfg.SavePath)
	}
	// Unlisted fields keep their defaults.
	if cfg.SolLength != Default().SolLength {
		t.Errorf("expected default sol_length, got %f", cfg.SolLength)
	}
	if cfg.SaveDir() != "/tmp/colony" {
		t.Errorf("expected save dir /tmp/colony, got %q", cfg.SaveDir())
	}
}

func TestLoadSanitizesBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colony.yaml")
	content := "tick_rate: -3\nsol_length: 0\nframe_rate_ms: -10\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	if cfg.TickRate != def.TickRate {
		t.Errorf("expected tick_rate snapped to default, got %f", cfg.TickRate)
	}
	if cfg.SolLength != def.SolLength {
		t.Errorf("expected sol_length snapped to default, got %f", cfg.SolLength)
	}
	if cfg.FrameRateMs != def.FrameRateMs {
		t.Errorf("expected frame_rate_ms snapped to default, got %d", cfg.FrameRateMs)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colony.yaml")
	if err := os.WriteFile(path, []byte("tick_rate: [not a number"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
