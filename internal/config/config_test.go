package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scrub.yaml")
	data := `
base_dir: frames/deo
ext: webp
count: 150
width: 390
height: 844
dpr: 3
scroll_duration: 12s
window:
  start: 13
  duration: 50
  total: 63
segments:
  - {end: 0.125, from: "0", to: "30%"}
  - {end: 0.75, from: "30%", to: "56%"}
  - {end: 1, from: "56%", to: end}
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Ext != "webp" || cfg.Count != 150 || cfg.DPR != 3 {
		t.Errorf("Unexpected values: %+v", cfg)
	}
	if cfg.ScrollDuration != 12*time.Second {
		t.Errorf("Expected 12s, got %v", cfg.ScrollDuration)
	}
	if cfg.FPS != 30 || cfg.Scale.Default != 1.05 {
		t.Errorf("Defaults lost: fps=%d scale=%v", cfg.FPS, cfg.Scale.Default)
	}
	if cfg.Window.Start != 13 || cfg.Window.Total != 63 {
		t.Errorf("Unexpected window %+v", cfg.Window)
	}

	table, err := cfg.Table()
	if err != nil {
		t.Fatalf("Table failed: %v", err)
	}
	if got := table.Resolve(0.5, 4); got != 1 {
		t.Errorf("Resolve(0.5, 4) = %d, want 1", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoadNestedWindowAndScale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scrub.yaml")
	data := `
pdf: deck.pdf
scale: {default: 1.1, portrait: 1.4, wide_breakpoint: 1024}
window: {start: 13, duration: 50, total: 63}
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Scale.Default != 1.1 || cfg.Scale.Portrait != 1.4 || cfg.Scale.WideBreakpoint != 1024 {
		t.Errorf("Unexpected scale %+v", cfg.Scale)
	}
	if cfg.Window.Start != 13 || cfg.Window.Duration != 50 || cfg.Window.Total != 63 {
		t.Errorf("Unexpected window %+v", cfg.Window)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SCRUBREEL_COUNT", "42")
	t.Setenv("SCRUBREEL_PRESET", "mobile3d")
	t.Setenv("SCRUBREEL_SCROLL_DURATION", "3s")
	t.Setenv("SCRUBREEL_MQTT_BROKER", "tcp://localhost:1883")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.Count != 42 || cfg.Preset != "mobile3d" || cfg.ScrollDuration != 3*time.Second {
		t.Errorf("Env not applied: count=%d preset=%s dur=%v", cfg.Count, cfg.Preset, cfg.ScrollDuration)
	}
	if cfg.Broker != "tcp://localhost:1883" {
		t.Errorf("Unexpected broker %q", cfg.Broker)
	}
	// untouched fields keep their defaults
	if cfg.Width != 1280 {
		t.Errorf("Expected default width, got %d", cfg.Width)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no source", func(c *Config) { c.BaseDir = "" }},
		{"two sources", func(c *Config) { c.URL = "http://x" }},
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"zero dpr", func(c *Config) { c.DPR = 0 }},
		{"underscan", func(c *Config) { c.Scale.Default = 0.9 }},
		{"unknown preset", func(c *Config) { c.Preset = "nope" }},
		{"unknown mode", func(c *Config) { c.Mode = "serve" }},
		{"unknown format", func(c *Config) { c.Format = "gif" }},
		{"unknown driver", func(c *Config) { c.Driver = "bogus" }},
		{"mqtt without broker", func(c *Config) { c.Driver = "mqtt" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.BaseDir = "frames"
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Expected ErrInvalid, got %v", err)
			}
		})
	}

	cfg := Default()
	cfg.BaseDir = "frames"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config with a source should be valid: %v", err)
	}

	cfg.Driver, cfg.Broker, cfg.Mode = "mqtt", "tcp://localhost:1883", "live"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Live mqtt config should be valid: %v", err)
	}
}

func TestApplyPreset(t *testing.T) {
	cfg := Default()
	if err := cfg.ApplyPreset("9:16"); err != nil || cfg.Width != 720 || cfg.Height != 1280 {
		t.Errorf("ApplyPreset(9:16) = %dx%d, %v", cfg.Width, cfg.Height, err)
	}
	if err := cfg.ApplyPreset("3:2"); err == nil {
		t.Error("Expected error for unknown preset")
	}
}
